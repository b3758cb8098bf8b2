package memory

import (
	"strings"
	"testing"
)

func TestPolicy_Learnable(t *testing.T) {
	p := NewPolicy("Amsius", 0)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"plain message", "hello there", true},
		{"exactly two chars", "hi", true},
		{"single char", "k", false},
		{"empty", "", false},
		{"whitespace only", "   \t  ", false},
		{"trimmed before measuring", "  a  ", false},
		{"command prefix", "!skip this", false},
		{"command prefix after spaces", "   !roll 20", false},
		{"mention of own name", "hey @Amsius say something", false},
		{"mention case-insensitive", "ping @aMsIuS", false},
		{"other mention is fine", "thanks @alice", true},
		{"http link", "check http://example.com out", false},
		{"https link", "see HTTPS://example.com", false},
		{"www token", "go to www.example.com", false},
		{"www mid-word is fine", "swwwoosh", true},
		{"over max length", strings.Repeat("a", DefaultMaxLength+1), false},
		{"at max length", strings.Repeat("a", DefaultMaxLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Learnable(tt.text); got != tt.want {
				t.Errorf("Learnable(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestPolicy_Learnable_CustomMaxLength(t *testing.T) {
	p := NewPolicy("Amsius", 10)

	if p.Learnable("this message is longer than ten runes") {
		t.Error("expected message over the custom cap to be rejected")
	}
	if !p.Learnable("short one") {
		t.Error("expected message under the custom cap to be accepted")
	}
}

func TestPolicy_Learnable_RuneLength(t *testing.T) {
	// Length limits are measured in runes, not bytes.
	p := NewPolicy("Amsius", 5)

	if !p.Learnable("ééééé") {
		t.Error("expected 5-rune multibyte message to be accepted")
	}
	if p.Learnable("éééééé") {
		t.Error("expected 6-rune multibyte message to be rejected")
	}
}

func TestPolicy_Replayable(t *testing.T) {
	p := NewPolicy("Amsius", 0)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"plain message", "hello there", true},
		{"link excluded", "look at https://example.com", false},
		{"www excluded", "www.example.com is down", false},
		{"over max length", strings.Repeat("x", DefaultMaxLength+1), false},
		// Mentions and commands gate learning only; legacy corpus entries
		// containing them are still replayable.
		{"mention allowed at replay", "@Amsius was here", true},
		{"command prefix allowed at replay", "!legacy command", true},
		{"short messages allowed at replay", "k", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Replayable(tt.text); got != tt.want {
				t.Errorf("Replayable(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestPolicy_Mentions(t *testing.T) {
	p := NewPolicy("Amsius", 0)

	if !p.Mentions("@Amsius tell me something") {
		t.Error("expected direct mention to match")
	}
	if !p.Mentions("did @AMSIUS hear that?") {
		t.Error("expected case-insensitive mention to match")
	}
	if p.Mentions("Amsius without the at sign") {
		t.Error("expected bare name without @ not to match")
	}
	if (Policy{}).Mentions("@Amsius") {
		t.Error("expected policy without a bot name to never match")
	}
}
