package diagnostic

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	t.Run("formats nested segments", func(t *testing.T) {
		p := Path{}.Push(Field("loot")).Push(Index(2)).Push(Field("weight"))
		assert.Equal(t, "loot[2].weight", p.String())
	})

	t.Run("formats variant segments", func(t *testing.T) {
		p := Path{}.Push(Field("start")).Push(Variant("HaveQuestItem")).Push(Field("min_value"))
		assert.Equal(t, "start<HaveQuestItem>.min_value", p.String())
	})

	t.Run("push does not mutate the parent", func(t *testing.T) {
		parent := Path{}.Push(Field("a"))
		left := parent.Push(Field("b"))
		right := parent.Push(Field("c"))
		assert.Equal(t, "a.b", left.String())
		assert.Equal(t, "a.c", right.String())
		assert.Equal(t, "a", parent.String())
	})

	t.Run("last is field", func(t *testing.T) {
		p := Path{}.Push(Field("x")).Push(Field("cell_type"))
		assert.True(t, p.LastIsField("cell_type"))
		assert.False(t, p.LastIsField("x"))
		assert.False(t, Path{}.LastIsField("x"))
	})
}

func TestKind(t *testing.T) {
	t.Run("severity split", func(t *testing.T) {
		assert.False(t, ObsoleteField().IsError())
		assert.False(t, TooSmall(0, -1).IsError())
		assert.False(t, TooLarge(10, 11).IsError())
		assert.True(t, LayoutNotSquare(8).IsError())
	})

	t.Run("messages carry observed values", func(t *testing.T) {
		assert.Contains(t, TooSmall(1, -3).String(), "-3")
		assert.Contains(t, TooLarge(10, 42).String(), "42")
		assert.Contains(t, LayoutNotSquare(8).String(), "8")
	})
}

func TestContext(t *testing.T) {
	t.Run("groups diagnostics per entry", func(t *testing.T) {
		ctx := NewContext()
		ctx.Enter("quests/intro.json").Field("reward").Emit(TooLarge(100, 500))
		ctx.Enter("quests/intro.json").Field("layout").Emit(LayoutNotSquare(8))
		ctx.Enter("ships/frigate.json").Emit(ObsoleteField())

		assert.Equal(t, []string{"quests/intro.json", "ships/frigate.json"}, ctx.Entries())
		assert.Len(t, ctx.Get("quests/intro.json"), 2)
		assert.Equal(t, 3, ctx.Len())
	})

	t.Run("nested refs record the full path", func(t *testing.T) {
		ctx := NewContext()
		ref := ctx.Enter("file.json")
		items := ref.Field("items")
		items.Index(0).Field("weight").Emit(TooSmall(0, -1))
		items.Index(1).Field("weight").Emit(TooSmall(0, -2))

		ds := ctx.Get("file.json")
		require.Len(t, ds, 2)
		assert.Equal(t, "items[0].weight", ds[0].Path.String())
		assert.Equal(t, "items[1].weight", ds[1].Path.String())
	})

	t.Run("enter new panics on duplicate entry", func(t *testing.T) {
		ctx := NewContext()
		ctx.EnterNew("a.json")
		assert.Panics(t, func() { ctx.EnterNew("a.json") })
	})
}

func TestReport(t *testing.T) {
	t.Run("filters builtin warnings but keeps errors", func(t *testing.T) {
		ctx := NewContext()
		ctx.Enter("auto/Quest_17.json").Emit(ObsoleteField())
		ctx.Enter("auto/Quest_18.json").Emit(LayoutNotSquare(8))
		ctx.Enter("quests/mine.json").Emit(ObsoleteField())

		var buf bytes.Buffer
		shown := Report(&buf, ctx)
		assert.Equal(t, 2, shown)
		assert.NotContains(t, buf.String(), "auto/Quest_17.json")
		assert.Contains(t, buf.String(), "auto/Quest_18.json")
		assert.Contains(t, buf.String(), "quests/mine.json")
	})

	t.Run("empty context prints nothing", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Equal(t, 0, Report(&buf, NewContext()))
		assert.Empty(t, buf.String())
	})
}
