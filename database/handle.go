package database

// Handle owns a record that has not been inserted yet. Build scripts mutate
// the record through the handle and resolve it with Commit (register into the
// database) or Forget (discard). Every handle must be resolved before Save;
// an unresolved handle at save time is a fatal assertion.
type Handle[T Item] struct {
	db   *DB
	item T
	open bool
}

// Item returns a pointer to the pending record for direct mutation.
func (h *Handle[T]) Item() *T {
	h.checkOpen()
	return &h.item
}

// Edit runs fn against the pending record and returns the handle for
// chaining. The closure's return value is intentionally absent so one-liners
// need no trailing expression.
func (h *Handle[T]) Edit(fn func(*T)) *Handle[T] {
	h.checkOpen()
	fn(&h.item)
	return h
}

// With replaces the pending record with the closure's result.
func (h *Handle[T]) With(fn func(T) T) *Handle[T] {
	h.checkOpen()
	h.item = fn(h.item)
	return h
}

// Clone returns a new unresolved handle holding a copy of the pending
// record. Change the copy's id before committing, or the insert collides.
func (h *Handle[T]) Clone() *Handle[T] {
	h.checkOpen()
	return Add(h.db, h.item)
}

// Commit registers the record into the database and closes the handle.
func (h *Handle[T]) Commit() {
	h.checkOpen()
	h.open = false
	h.db.insert(h.item)
	h.db.live.Add(-1)
}

// Forget closes the handle without inserting, returning the record.
func (h *Handle[T]) Forget() T {
	h.checkOpen()
	h.open = false
	h.db.live.Add(-1)
	return h.item
}

func (h *Handle[T]) checkOpen() {
	if !h.open {
		panic("database: use of a resolved item handle")
	}
}

// Stored is a live view of a record already inside the database. Reads and
// edits go through the record's own lock, so independent records never
// contend. Release must be called before Save.
type Stored[T Item] struct {
	db   *DB
	rec  *record
	open bool
}

// Read runs fn with a read-locked copy view of the record.
func (s *Stored[T]) Read(fn func(T)) *Stored[T] {
	s.checkOpen()
	s.rec.mu.RLock()
	defer s.rec.mu.RUnlock()
	fn(s.rec.item.(T))
	return s
}

// Edit runs fn with exclusive access to the record.
func (s *Stored[T]) Edit(fn func(*T)) *Stored[T] {
	s.checkOpen()
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()
	v := s.rec.item.(T)
	fn(&v)
	s.rec.item = v
	return s
}

// With replaces the record with the closure's result.
func (s *Stored[T]) With(fn func(T) T) *Stored[T] {
	s.checkOpen()
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()
	s.rec.item = fn(s.rec.item.(T))
	return s
}

// Get returns a copy of the current record value.
func (s *Stored[T]) Get() T {
	s.checkOpen()
	s.rec.mu.RLock()
	defer s.rec.mu.RUnlock()
	return s.rec.item.(T)
}

// Clone returns an unresolved handle holding a copy of the stored record.
func (s *Stored[T]) Clone() *Handle[T] {
	return Add(s.db, s.Get())
}

// Release closes the view. The record stays in the database.
func (s *Stored[T]) Release() {
	s.checkOpen()
	s.open = false
	s.db.live.Add(-1)
}

func (s *Stored[T]) checkOpen() {
	if !s.open {
		panic("database: use of a released item view")
	}
}
