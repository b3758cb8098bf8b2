package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_FullProfile(t *testing.T) {
	data := []byte(`
name: Amsius
rooms:
  - "!chat:example.org"
  - "!lounge:example.org"
ignored_users:
  - nightbot
  - moobot
memory:
  corpus_cap: 5000
  max_length: 200
  count_threshold: 20
  history_size: 8
  database_path: ./amsius.db
  snapshot_path: ./memory.json
`)

	p, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Name != "Amsius" {
		t.Errorf("Name = %q, want %q", p.Name, "Amsius")
	}
	if len(p.Rooms) != 2 || p.Rooms[0] != "!chat:example.org" {
		t.Errorf("Rooms = %v", p.Rooms)
	}
	if len(p.IgnoredUsers) != 2 || p.IgnoredUsers[1] != "moobot" {
		t.Errorf("IgnoredUsers = %v", p.IgnoredUsers)
	}
	if p.Memory.CorpusCap != 5000 {
		t.Errorf("Memory.CorpusCap = %d, want 5000", p.Memory.CorpusCap)
	}
	if p.Memory.CountThreshold != 20 {
		t.Errorf("Memory.CountThreshold = %d, want 20", p.Memory.CountThreshold)
	}
	if p.Memory.DatabasePath != "./amsius.db" {
		t.Errorf("Memory.DatabasePath = %q", p.Memory.DatabasePath)
	}
}

func TestParse_MinimalProfile(t *testing.T) {
	p, err := Parse([]byte(`name: Amsius`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name != "Amsius" {
		t.Errorf("Name = %q, want %q", p.Name, "Amsius")
	}
	if p.Memory.CorpusCap != 0 {
		t.Errorf("Memory.CorpusCap = %d, want 0 (defaults applied later)", p.Memory.CorpusCap)
	}
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "name: [unclosed"},
		{"unknown top-level key", "nmae: Amsius"},
		{"unknown memory key", "memory:\n  corpuscap: 10"},
		{"wrong type", "rooms: not-a-list"},
		{"zero threshold", "memory:\n  count_threshold: 0"},
		{"negative cap", "memory:\n  corpus_cap: -5"},
		{"empty name", `name: ""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.data)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("name: Amsius\n"), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "Amsius" {
		t.Errorf("Name = %q, want %q", p.Name, "Amsius")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing profile file")
	}
}
