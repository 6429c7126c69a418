package gen

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modforge-dev/modforge/compiler/load"
)

// TestGeneratedCodeRuns generates from the schema fixtures into a throwaway
// module, compiles the output and executes JSON codec checks against it, so
// the emitted round-trip behavior is exercised as running code rather than
// as source text.
func TestGeneratedCodeRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping generated-code compilation in short mode")
	}
	goTool, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go tool not available")
	}

	repoRoot, err := filepath.Abs(filepath.Join("..", ".."))
	require.NoError(t, err)

	files, err := load.Dir(filepath.Join("..", "load", "testdata", "basic"))
	require.NoError(t, err)

	dir := t.TempDir()
	out := filepath.Join(dir, "content")
	require.NoError(t, New(out).WithPackage("content").Run(context.Background(), files))

	gomod := "module gentest\n\ngo 1.24.4\n\n" +
		"require github.com/modforge-dev/modforge v0.0.0\n\n" +
		"replace github.com/modforge-dev/modforge => " + repoRoot + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(out, "codec_test.go"), []byte(codecChecks), 0o644))

	goRun := func(args ...string) ([]byte, error) {
		cmd := exec.Command(goTool, args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GOWORK=off", "GOFLAGS=-mod=mod")
		return cmd.CombinedOutput()
	}

	if msg, err := goRun("mod", "tidy"); err != nil {
		t.Skipf("cannot resolve modules here, skipping compilation: %v\n%s", err, msg)
	}
	msg, err := goRun("test", "./content")
	require.NoError(t, err, "generated code failed:\n%s", msg)
}

// codecChecks runs inside the generated package. It uses only the standard
// library so the throwaway module needs no test dependencies of its own.
const codecChecks = `package content

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestSwitchRoundTrip(t *testing.T) {
	e := EffectBeam{Power: 2, Length: 7, Damage: DamageTypeIce}.AsEffect()
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), ` + "`" + `"Kind":1` + "`" + `) {
		t.Fatalf("tag not serialized beside the variant members: %s", data)
	}

	var back Effect
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(e, back) {
		t.Fatalf("round trip mismatch: %#v != %#v", e, back)
	}

	again, err := json.Marshal(back)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(data) {
		t.Fatalf("second marshal differs: %s vs %s", again, data)
	}
}

func TestSwitchMissingTagDecodesDefaultVariant(t *testing.T) {
	var e Effect
	if err := json.Unmarshal([]byte(` + "`" + `{"Power": 3}` + "`" + `), &e); err != nil {
		t.Fatal(err)
	}
	if e.Kind() != EffectKindArea {
		t.Fatalf("missing tag must decode as the default variant, got %v", e.Kind())
	}
	if e.Power() != 3 {
		t.Fatalf("shared member lost on decode: %v", e.Power())
	}
}

func TestSwitchUnknownTagRejected(t *testing.T) {
	var e Effect
	if err := json.Unmarshal([]byte(` + "`" + `{"Kind": 99}` + "`" + `), &e); err == nil {
		t.Fatal("unknown tag must fail decoding")
	}
}

func TestCharEnumCodec(t *testing.T) {
	data, err := json.Marshal(DamageTypeFire)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != ` + "`" + `"f"` + "`" + ` {
		t.Fatalf("char enum must serialize as its code, got %s", data)
	}

	var d DamageType
	if err := json.Unmarshal([]byte(` + "`" + `"i"` + "`" + `), &d); err != nil {
		t.Fatal(err)
	}
	if d != DamageTypeIce {
		t.Fatalf("decoded wrong variant: %v", d)
	}

	err = json.Unmarshal([]byte(` + "`" + `"z"` + "`" + `), &d)
	if err == nil {
		t.Fatal("unknown code must fail decoding")
	}
	for _, name := range []string{"Fire", "Ice", "Shock"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error must list valid variant %s: %v", name, err)
		}
	}
}

func TestNumericEnumOrdinalWire(t *testing.T) {
	data, err := json.Marshal(RarityRare)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "10" {
		t.Fatalf("numeric enum must serialize ordinally, got %s", data)
	}
}

func TestLayoutSerializesAsDigitString(t *testing.T) {
	data, err := json.Marshal(DefaultReward().WithGrid("0110"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), ` + "`" + `"Grid":"0110"` + "`" + `) {
		t.Fatalf("layout must serialize as a digit string, got %s", data)
	}

	var r Reward
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatal(err)
	}
	if r.Grid != "0110" {
		t.Fatalf("layout round trip mismatch: %q", r.Grid)
	}
}
`
