package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "")
	c, err := Load(path)
	require.NoError(t, err)

	base := filepath.Dir(path)
	assert.Equal(t, filepath.Join(base, "schema"), c.Schema)
	assert.Equal(t, filepath.Join(base, "content"), c.Output.Dir)
	assert.Equal(t, "content", c.Output.Package)
	assert.Equal(t, filepath.Join(base, "build"), c.Database.Dir)
	assert.Nil(t, c.Container)
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
schema: defs
output:
  dir: gen/content
  package: content
database:
  dir: out
container:
  path: dist/mod.pak
  name: Example
  guid: 9e107d9d-372b-4c81-8a9b-7c093ee4a3f1
  version_major: 2
  version_minor: 1
ranges:
  default:
    - {start: 1, end: 1000}
  kinds:
    Quest:
      - {start: 5000, end: 6000}
`)
	c, err := Load(path)
	require.NoError(t, err)

	base := filepath.Dir(path)
	assert.Equal(t, filepath.Join(base, "defs"), c.Schema)
	assert.Equal(t, filepath.Join(base, "gen", "content"), c.Output.Dir)
	assert.Equal(t, filepath.Join(base, "out"), c.Database.Dir)

	require.NotNil(t, c.Container)
	assert.Equal(t, filepath.Join(base, "dist", "mod.pak"), c.Container.Path)
	info := c.Container.Info()
	assert.Equal(t, "Example", info.Name)
	assert.Equal(t, int32(2), info.VersionMajor)
	assert.Equal(t, int32(1), info.VersionMinor)

	require.Len(t, c.Ranges.Default, 1)
	assert.Equal(t, Range{Start: 1, End: 1000}, c.Ranges.Default[0])
	assert.Equal(t, []Range{{Start: 5000, End: 6000}}, c.Ranges.Kinds["Quest"])
}

func TestLoadGeneratesGUID(t *testing.T) {
	path := writeConfig(t, `
container:
  path: dist/mod.pak
  name: Example
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, c.Container)
	_, err = uuid.Parse(c.Container.GUID)
	assert.NoError(t, err)
}

func TestLoadRejects(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), DefaultFile))
		assert.Error(t, err)
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		_, err := Load(writeConfig(t, "schema: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("EmptyRange", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
ranges:
  default:
    - {start: 10, end: 10}
`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.True(t, IsConfigError(err))
		assert.Contains(t, err.Error(), "ranges.default")
	})

	t.Run("InvertedKindRange", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
ranges:
  kinds:
    Quest:
      - {start: 20, end: 10}
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ranges.kinds.Quest")
	})

	t.Run("ContainerWithoutName", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
container:
  path: dist/mod.pak
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "container.name")
	})

	t.Run("ContainerWithoutPath", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
container:
  name: Example
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "container.path")
	})

	t.Run("ContainerBadGUID", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
container:
  path: dist/mod.pak
  name: Example
  guid: not-a-guid
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a valid UUID")
	})
}
