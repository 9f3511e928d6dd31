package accounts

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.json")
	doc := `{"accounts":[
		{"username":"alice","password":"pw1","notes":"primary"},
		{"username":"bob","password":"pw2","enabled":false},
		{"username":"","password":"pw3"}
	]}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	accs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(accs) != 2 {
		t.Fatalf("expected 2 accounts (blank username skipped), got %d", len(accs))
	}
	if accs[0].Username != "alice" || !accs[0].Enabled || accs[0].Notes != "primary" {
		t.Fatalf("unexpected first account: %+v", accs[0])
	}
	if accs[1].Username != "bob" || accs[1].Enabled {
		t.Fatalf("expected bob disabled, got %+v", accs[1])
	}
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseEnvFormats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  int
	}{
		{"object", `{"accounts":[{"username":"a","password":"p"}]}`, 1},
		{"array", `[{"username":"a","password":"p"},{"username":"b","password":"q"}]`, 2},
		{"pairs", "a:p, b:q ,c:r", 3},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			accs, err := ParseEnv(tc.input)
			if err != nil {
				t.Fatalf("ParseEnv(%q) error = %v", tc.input, err)
			}
			if len(accs) != tc.want {
				t.Fatalf("ParseEnv(%q) = %d accounts, want %d", tc.input, len(accs), tc.want)
			}
			for _, a := range accs {
				if a.Username == "" || a.Password == "" || !a.Enabled {
					t.Fatalf("unexpected account %+v", a)
				}
			}
		})
	}
}

func TestParseEnvEmptyAndBad(t *testing.T) {
	t.Parallel()

	if accs, err := ParseEnv("   "); err != nil || accs != nil {
		t.Fatalf("expected nil for blank input, got %v, %v", accs, err)
	}
	if _, err := ParseEnv("nocolonhere"); err == nil {
		t.Fatal("expected error for unrecognizable input")
	}
}
