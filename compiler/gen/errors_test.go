package gen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaError(t *testing.T) {
	t.Run("Error message with all fields", func(t *testing.T) {
		cause := errors.New("underlying error")
		err := NewSchemaError("Quest", "Reward", "invalid declaration", cause)

		assert.Contains(t, err.Error(), "modforge: schema error")
		assert.Contains(t, err.Error(), "type Quest")
		assert.Contains(t, err.Error(), "field Reward")
		assert.Contains(t, err.Error(), "invalid declaration")
		assert.Contains(t, err.Error(), "underlying error")
	})

	t.Run("Error message with type only", func(t *testing.T) {
		err := &SchemaError{Type: "Quest"}
		assert.Contains(t, err.Error(), "type Quest")
		assert.NotContains(t, err.Error(), "field")
	})

	t.Run("Unwrap returns cause", func(t *testing.T) {
		cause := errors.New("root cause")
		err := NewSchemaError("Quest", "", "", cause)

		assert.Equal(t, cause, err.Unwrap())
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("Is matches ErrInvalidSchema", func(t *testing.T) {
		err := NewSchemaError("Quest", "", "", nil)
		assert.True(t, errors.Is(err, ErrInvalidSchema))
	})

	t.Run("IsSchemaError helper", func(t *testing.T) {
		err := NewSchemaError("Quest", "Reward", "test", nil)
		assert.True(t, IsSchemaError(err))
		assert.False(t, IsSchemaError(errors.New("other")))
	})
}

func TestGenerationError(t *testing.T) {
	t.Run("Error message with all fields", func(t *testing.T) {
		cause := errors.New("disk full")
		err := NewGenerationError("write", "quest.go", "cannot write output", cause)

		assert.Contains(t, err.Error(), "modforge: generation error")
		assert.Contains(t, err.Error(), "phase write")
		assert.Contains(t, err.Error(), "quest.go")
		assert.Contains(t, err.Error(), "cannot write output")
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("Is matches ErrGenerationFailed", func(t *testing.T) {
		err := NewGenerationError("render", "", "", nil)
		assert.True(t, errors.Is(err, ErrGenerationFailed))
	})

	t.Run("Unwrap returns cause", func(t *testing.T) {
		cause := errors.New("root cause")
		err := NewGenerationError("format", "a.go", "", cause)
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("IsGenerationError helper", func(t *testing.T) {
		err := NewGenerationError("render", "a.go", "", nil)
		assert.True(t, IsGenerationError(err))
		assert.False(t, IsGenerationError(errors.New("other")))
	})
}

func TestPathError(t *testing.T) {
	t.Run("wraps with path prefix", func(t *testing.T) {
		inner := NewSchemaError("Quest", "", "bad", nil)
		err := pathError("quests/quest.xml", inner)
		assert.Contains(t, err.Error(), "quests/quest.xml")
		assert.True(t, errors.Is(err, ErrInvalidSchema))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, pathError("a.xml", nil))
	})
}
