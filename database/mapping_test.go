package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMapping() *Mapping {
	m := NewMapping(nil)
	m.AddRange(Range{Start: 100, End: 200})
	return m
}

func TestMappingAllocation(t *testing.T) {
	t.Run("NoDuplicatesWithinRanges", func(t *testing.T) {
		m := NewMapping(nil)
		m.AddRange(Range{Start: 10, End: 15})
		m.AddRange(Range{Start: 30, End: 35})

		seen := make(map[int32]string)
		for _, key := range []string{"a", "b", "c", "d", "e", "f", "g"} {
			id := m.NewID("Quest", key)
			inRange := (id >= 10 && id < 15) || (id >= 30 && id < 35)
			assert.True(t, inRange, "id %d outside configured ranges", id)
			prev, dup := seen[id]
			require.False(t, dup, "id %d issued to both %q and %q", id, prev, key)
			seen[id] = key
		}
	})

	t.Run("RangesConsumedFrontToBack", func(t *testing.T) {
		m := NewMapping(nil)
		m.AddRange(Range{Start: 10, End: 12})
		m.AddRange(Range{Start: 50, End: 52})

		assert.Equal(t, int32(10), m.NewID("Quest", "a"))
		assert.Equal(t, int32(11), m.NewID("Quest", "b"))
		assert.Equal(t, int32(50), m.NewID("Quest", "c"))
	})

	t.Run("OccupiedIdsSkipped", func(t *testing.T) {
		m := NewMapping(nil)
		m.AddRange(Range{Start: 1, End: 10})
		m.SetID("Quest", "pinned", 2)

		assert.Equal(t, int32(1), m.NewID("Quest", "a"))
		assert.Equal(t, int32(3), m.NewID("Quest", "b"))
	})

	t.Run("ExhaustionPanics", func(t *testing.T) {
		m := NewMapping(nil)
		m.AddRange(Range{Start: 0, End: 2})
		m.NewID("Quest", "a")
		m.NewID("Quest", "b")
		assert.PanicsWithValue(t, `database: no free ids are left for kind "Quest"`, func() {
			m.NewID("Quest", "c")
		})
	})

	t.Run("NoRangesPanics", func(t *testing.T) {
		m := NewMapping(nil)
		assert.Panics(t, func() { m.NewID("Quest", "a") })
	})

	t.Run("ClearedRangesPanics", func(t *testing.T) {
		m := newTestMapping()
		m.ClearRangesFor("Quest")
		assert.Panics(t, func() { m.NewID("Quest", "a") })
	})

	t.Run("DedicatedRangesSeedFromDefaults", func(t *testing.T) {
		m := newTestMapping()
		m.AddRangeFor("Quest", Range{Start: 5000, End: 5002})

		// Default pool space first, then the dedicated range.
		assert.Equal(t, int32(100), m.NewID("Quest", "a"))
		// Other kinds keep drawing from the defaults only.
		assert.Equal(t, int32(100), m.NewID("Loot", "a"))
	})
}

func TestMappingKeys(t *testing.T) {
	t.Run("NewIDDuplicateKeyPanics", func(t *testing.T) {
		m := newTestMapping()
		m.NewID("Quest", "x")
		assert.PanicsWithValue(t, `database: id "x" is already in use for kind "Quest"`, func() {
			m.NewID("Quest", "x")
		})
	})

	t.Run("ExistingIDBeforeRegistrationPanics", func(t *testing.T) {
		m := newTestMapping()
		assert.PanicsWithValue(t, `database: id "x" is not present for kind "Quest"`, func() {
			m.ExistingID("Quest", "x")
		})
	})

	t.Run("SetIDPinsAndBlocksReuse", func(t *testing.T) {
		m := NewMapping(nil)
		m.AddRange(Range{Start: 0, End: 100})
		m.SetID("Quest", "eh:tutorial", 1)

		assert.Equal(t, int32(1), m.ExistingID("Quest", "eh:tutorial"))
		assert.Panics(t, func() { m.NewID("Quest", "eh:tutorial") })

		// Later allocation never independently produces the pinned id.
		for i := 0; i < 50; i++ {
			id := m.NewID("Quest", string(rune('a'+i)))
			assert.NotEqual(t, int32(1), id)
		}
	})

	t.Run("GetIDRawIsIdempotent", func(t *testing.T) {
		m := newTestMapping()
		id := m.GetIDRaw("Quest", "x")
		assert.Equal(t, id, m.GetIDRaw("Quest", "x"))
		// No used-key bookkeeping: registering afterwards still works.
		assert.Equal(t, id, m.NewID("Quest", "x"))
	})

	t.Run("ForgetUsedIDReleasesKey", func(t *testing.T) {
		m := newTestMapping()
		id := m.NewID("Quest", "x")
		m.ForgetUsedID("Quest", "x")
		assert.False(t, m.IsUsed("Quest", "x"))
		// The numeric binding survives.
		assert.Equal(t, id, m.NewID("Quest", "x"))
	})

	t.Run("KindsAreIndependentNamespaces", func(t *testing.T) {
		m := newTestMapping()
		m.NewID("Quest", "x")
		assert.NotPanics(t, func() { m.NewID("Loot", "x") })
	})

	t.Run("UnstableIDHasNoKey", func(t *testing.T) {
		m := newTestMapping()
		id := m.UnstableID("Quest")
		_, ok := m.InverseID("Quest", id)
		assert.False(t, ok)
		// The id is occupied regardless.
		assert.NotEqual(t, id, m.NewID("Quest", "a"))
	})
}

func TestMappingInverse(t *testing.T) {
	m := newTestMapping()
	a := m.NewID("Quest", "eh:alpha")
	b := m.NewID("Quest", "eh:beta")

	t.Run("InverseID", func(t *testing.T) {
		key, ok := m.InverseID("Quest", a)
		require.True(t, ok)
		assert.Equal(t, "eh:alpha", key)

		_, ok = m.InverseID("Quest", 9999)
		assert.False(t, ok)
	})

	t.Run("InverseIDs", func(t *testing.T) {
		inv := m.InverseIDs()
		assert.Equal(t, "eh:beta", inv["Quest"][b])
	})

	t.Run("UsedIDsSorted", func(t *testing.T) {
		assert.Equal(t, []string{"eh:alpha", "eh:beta"}, m.UsedIDs("Quest"))
	})

	t.Run("UsedIDsFiltered", func(t *testing.T) {
		keys, err := m.UsedIDsFiltered("Quest", "alpha$")
		require.NoError(t, err)
		assert.Equal(t, []string{"eh:alpha"}, keys)

		_, err = m.UsedIDsFiltered("Quest", "(")
		assert.Error(t, err)
	})
}

func TestMappingPersistence(t *testing.T) {
	t.Run("RoundTripSeedsOccupied", func(t *testing.T) {
		m := newTestMapping()
		m.NewID("Quest", "a")
		m.NewID("Quest", "b")
		m.NewID("Loot", "a")

		reloaded := NewMapping(m.Serializable())
		reloaded.AddRange(Range{Start: 100, End: 200})

		// Persisted bindings resolve without re-registration bookkeeping.
		assert.Equal(t, m.GetIDRaw("Quest", "a"), reloaded.GetIDRaw("Quest", "a"))

		// New allocations skip every previously-persisted id.
		id := reloaded.NewID("Quest", "c")
		assert.NotEqual(t, reloaded.GetIDRaw("Quest", "a"), id)
		assert.NotEqual(t, reloaded.GetIDRaw("Quest", "b"), id)
	})

	t.Run("ReloadedKeysAreNotUsed", func(t *testing.T) {
		m := newTestMapping()
		m.NewID("Quest", "a")

		reloaded := NewMapping(m.Serializable())
		reloaded.AddRange(Range{Start: 100, End: 200})
		assert.False(t, reloaded.IsUsed("Quest", "a"))

		// Re-registering the persisted key re-binds the same number.
		assert.Equal(t, m.GetIDRaw("Quest", "a"), reloaded.NewID("Quest", "a"))
	})
}
