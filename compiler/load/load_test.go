package load

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchema(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestParseItem(t *testing.T) {
	t.Run("VersionMarker", func(t *testing.T) {
		it, err := parseItem([]byte(`<schema><version name="base" major="1" minor="4"/></schema>`))
		require.NoError(t, err)
		require.NotNil(t, it.Version)
		assert.Nil(t, it.Data)
		assert.Equal(t, "base", it.Version.Name)
		assert.Equal(t, "1", it.Version.Major)
		assert.Equal(t, "4", it.Version.Minor)
	})
	t.Run("StructMembers", func(t *testing.T) {
		it, err := parseItem([]byte(`
			<data type="struct" name="Reward">
				<member name="Amount" type="int" minvalue="0" maxvalue="100" default="5">How much.</member>
				<member name="Kind" type="enum" typeid="RewardKind"/>
			</data>`))
		require.NoError(t, err)
		require.NotNil(t, it.Data)
		assert.Equal(t, TypeStruct, it.Data.Type)
		require.Len(t, it.Data.Members, 2)

		amount := it.Data.Members[0]
		assert.Equal(t, MemberInt, amount.Type)
		require.NotNil(t, amount.MinValue)
		assert.Equal(t, 0.0, *amount.MinValue)
		require.NotNil(t, amount.MaxValue)
		assert.Equal(t, 100.0, *amount.MaxValue)
		require.NotNil(t, amount.Default)
		assert.Equal(t, "5", *amount.Default)
		assert.Equal(t, "How much.", amount.Doc())

		kind := it.Data.Members[1]
		assert.Nil(t, kind.MinValue)
		assert.Nil(t, kind.Default)
		assert.Equal(t, "RewardKind", kind.TypeID)
	})
	t.Run("EnumItems", func(t *testing.T) {
		it, err := parseItem([]byte(`
			<data type="enum" name="Rarity">
				<item name="Common"/>
				<item name="Rare" value="10"/>
			</data>`))
		require.NoError(t, err)
		require.Len(t, it.Data.Items, 2)
		assert.Nil(t, it.Data.Items[0].Value)
		require.NotNil(t, it.Data.Items[1].Value)
		assert.Equal(t, "10", *it.Data.Items[1].Value)
	})
	t.Run("SwitchAttribute", func(t *testing.T) {
		it, err := parseItem([]byte(`
			<data type="struct" name="Effect" switch="Kind">
				<member name="Kind" type="enum" typeid="EffectKind"/>
				<member name="Radius" type="float" case="Area, Beam"/>
			</data>`))
		require.NoError(t, err)
		assert.True(t, it.Data.IsSwitch())
		assert.Equal(t, []string{"Area", "Beam"}, it.Data.Members[1].CaseList())
		assert.Nil(t, it.Data.Members[0].CaseList())
	})
	t.Run("Options", func(t *testing.T) {
		it, err := parseItem([]byte(`
			<data type="object" name="Quest" typeid="Quest">
				<member name="Title" type="string" options="notnull, localized"/>
			</data>`))
		require.NoError(t, err)
		m := it.Data.Members[0]
		assert.True(t, m.HasOption("notnull"))
		assert.True(t, m.HasOption("localized"))
		assert.False(t, m.HasOption("obsolete"))
	})
	t.Run("UnknownDataType", func(t *testing.T) {
		_, err := parseItem([]byte(`<data type="widget" name="X"/>`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown data type")
	})
	t.Run("UnknownMemberType", func(t *testing.T) {
		_, err := parseItem([]byte(`<data type="struct" name="X"><member name="A" type="quaternion"/></data>`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown member type")
	})
	t.Run("UnexpectedRoot", func(t *testing.T) {
		_, err := parseItem([]byte(`<settings name="X"/>`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected root element")
	})
	t.Run("MissingName", func(t *testing.T) {
		_, err := parseItem([]byte(`<data type="struct"/>`))
		require.Error(t, err)
	})
}

func TestDir(t *testing.T) {
	t.Run("GenerationOrder", func(t *testing.T) {
		dir := t.TempDir()
		writeSchema(t, dir, "quest.xml", `<data type="object" name="Quest" typeid="Quest"/>`)
		writeSchema(t, dir, "sub/reward.xml", `<data type="struct" name="Reward"/>`)
		writeSchema(t, dir, "rarity.xml", `<data type="enum" name="Rarity"><item name="Common"/></data>`)
		writeSchema(t, dir, "version.xml", `<schema><version name="base" major="2" minor="0"/></schema>`)
		writeSchema(t, dir, "game.xml", `<data type="settings" name="GameSettings"/>`)

		files, err := Dir(dir)
		require.NoError(t, err)
		require.Len(t, files, 5)

		assert.NotNil(t, files[0].Item.Version)
		assert.Equal(t, TypeEnum, files[1].Item.Data.Type)
		assert.Equal(t, TypeStruct, files[2].Item.Data.Type)
		assert.Equal(t, TypeSettings, files[3].Item.Data.Type)
		assert.Equal(t, TypeObject, files[4].Item.Data.Type)
		assert.Equal(t, "sub/reward.xml", files[2].Path)
	})
	t.Run("TestdataProject", func(t *testing.T) {
		files, err := Dir(filepath.Join("testdata", "basic"))
		require.NoError(t, err)
		require.Len(t, files, 9)

		version := files[0].Item.Version
		require.NotNil(t, version)
		assert.Equal(t, "adventure", version.Name)

		byName := make(map[string]*Data)
		for _, f := range files[1:] {
			require.NotNil(t, f.Item.Data, "file %s", f.Path)
			byName[f.Item.Data.Name] = f.Item.Data
		}
		assert.True(t, byName["Effect"].IsSwitch())
		assert.Equal(t, TypeObject, byName["Quest"].Type)
		assert.Equal(t, TypeSettings, byName["AdventureSettings"].Type)
		assert.Equal(t, []string{"Beam"}, byName["Effect"].Members[3].CaseList())
	})
	t.Run("PathTiebreaker", func(t *testing.T) {
		dir := t.TempDir()
		writeSchema(t, dir, "b.xml", `<data type="enum" name="B"/>`)
		writeSchema(t, dir, "a.xml", `<data type="enum" name="A"/>`)

		files, err := Dir(dir)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "a.xml", files[0].Path)
		assert.Equal(t, "b.xml", files[1].Path)
	})
	t.Run("SkipsNonXML", func(t *testing.T) {
		dir := t.TempDir()
		writeSchema(t, dir, "notes.txt", `not a schema`)
		writeSchema(t, dir, "a.xml", `<data type="enum" name="A"/>`)

		files, err := Dir(dir)
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})
	t.Run("ParseErrorNamesFile", func(t *testing.T) {
		dir := t.TempDir()
		writeSchema(t, dir, "broken.xml", `<data type="struct"`)

		_, err := Dir(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken.xml")
	})
}
