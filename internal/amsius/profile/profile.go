// Package profile loads the optional YAML bot profile. The profile holds
// the same knobs as the environment variables (name, rooms, memory tuning,
// ignored users); environment values take precedence where both are set.
//
// Documents are validated against an embedded JSON schema before decoding,
// so a typoed key or a negative threshold fails loudly at startup instead
// of silently running with defaults.
package profile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("profile/schema.json", schemaJSON)

// Profile is the decoded bot profile.
type Profile struct {
	// Name is the bot's display name, used for mention detection.
	Name string `yaml:"name"`

	// Rooms are the Matrix room IDs the bot joins and listens on.
	Rooms []string `yaml:"rooms"`

	// IgnoredUsers lists usernames of other automated accounts whose
	// messages are never learned and never trigger a replay.
	IgnoredUsers []string `yaml:"ignored_users"`

	// Memory tunes the learning subsystem.
	Memory Memory `yaml:"memory"`
}

// Memory holds the learning-subsystem knobs. Zero values mean "use the
// built-in default".
type Memory struct {
	// CorpusCap bounds the retained corpus (default 20000).
	CorpusCap int `yaml:"corpus_cap"`

	// MaxLength caps learned and replayed message length (default 160).
	MaxLength int `yaml:"max_length"`

	// CountThreshold is the number of observed messages between
	// count-triggered replays (default 15).
	CountThreshold int `yaml:"count_threshold"`

	// HistorySize is the anti-repetition window (default 5).
	HistorySize int `yaml:"history_size"`

	// DatabasePath selects the SQLite row store. Empty means snapshot-file
	// mode.
	DatabasePath string `yaml:"database_path"`

	// SnapshotPath overrides the snapshot file location.
	SnapshotPath string `yaml:"snapshot_path"`
}

// Load reads and parses the profile at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile: %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a YAML profile document, validating it against the schema
// first. It is the canonical entry point for loading profiles.
func Parse(data []byte) (*Profile, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	// The schema validator expects JSON-decoded values, so round-trip the
	// YAML document through encoding/json before validating.
	doc, err := jsonRoundTrip(raw)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &p, nil
}

// jsonRoundTrip converts a yaml-decoded value into its encoding/json
// equivalent (string-keyed maps, float64 numbers).
func jsonRoundTrip(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}
	return out, nil
}
