package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadProfiles_LineForm(t *testing.T) {
	path := writeTemp(t, "myhome example.com 4000 look ; inventory\n")

	profiles, warnings, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
	p := profiles[0]
	if p.Name != "myhome" || p.Host != "example.com" || p.Port != 4000 {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if len(p.ConnectCommands) != 2 || p.ConnectCommands[0] != "look" || p.ConnectCommands[1] != "inventory" {
		t.Fatalf("unexpected connect commands: %v", p.ConnectCommands)
	}
}

func TestLoadProfiles_BlockFormWithParentAndAutomation(t *testing.T) {
	content := `
MUD base {
	Host base.example.com 4000;
	Alias look l;
}

MUD myhome {
	Host example.com 4000;
	Commands look;
	Commands inventory;
	Alias sayto tell %1 %+2;
	Action ^hungry$ eat bread;
	Macro F1 look;
	parent base;
}
`
	path := writeTemp(t, content)
	profiles, warnings, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}

	var myhome = profiles[0]
	if myhome.Name != "myhome" {
		// order depends on declaration order in the file; find explicitly.
		for _, p := range profiles {
			if p.Name == "myhome" {
				myhome = p
			}
		}
	}
	if myhome.Parent == nil || myhome.Parent.Name != "base" {
		t.Fatalf("expected myhome.Parent == base, got %v", myhome.Parent)
	}
	if len(myhome.ConnectCommands) != 2 {
		t.Fatalf("expected 2 connect commands, got %v", myhome.ConnectCommands)
	}
	if a := myhome.LookupAlias("sayto"); a == nil || a.Template != "tell %1 %+2" {
		t.Fatalf("expected sayto alias on myhome")
	}
	if a := myhome.LookupAlias("look"); a == nil || a.Template != "l" {
		t.Fatalf("expected look alias resolved via parent chain")
	}
}

func TestLoadProfiles_MissingFileIsNotAnError(t *testing.T) {
	profiles, warnings, err := LoadProfiles(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if len(profiles) != 0 || len(warnings) != 0 {
		t.Fatalf("expected no profiles/warnings, got %v %v", profiles, warnings)
	}
}

func TestLoadProfiles_MalformedLineWarnsAndContinues(t *testing.T) {
	path := writeTemp(t, "this is not valid\nmyhome example.com 4000\n")
	profiles, warnings, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile despite the malformed line, got %d", len(profiles))
	}
}
