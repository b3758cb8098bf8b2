package memory

// filter.go holds the eligibility predicates that gate which chat messages
// enter the corpus and which retained messages may be replayed. All checks
// are pure functions of the trimmed message text and the bot's display name.

import (
	"strings"
	"unicode/utf8"
)

const (
	// MinLearnLength is the minimum message length (in runes) accepted for
	// retention. One-character messages carry no replay value.
	MinLearnLength = 2

	// DefaultMaxLength is the default maximum length (in runes) for both
	// retention and replay.
	DefaultMaxLength = 160

	// commandPrefix marks chat commands addressed to other bots. Commands
	// are never learned.
	commandPrefix = "!"
)

// Policy bundles the learn- and replay-eligibility rules for one bot
// identity. The zero value is usable but matches no mentions; construct
// with NewPolicy to get the documented defaults.
type Policy struct {
	// BotName is the bot's own display name, matched case-insensitively
	// as "@<name>" when looking for mentions.
	BotName string

	// MaxLength caps the length (in runes) of learned and replayed
	// messages. Zero disables the cap.
	MaxLength int
}

// NewPolicy creates a Policy for the given bot name. A non-positive
// maxLength selects DefaultMaxLength.
func NewPolicy(botName string, maxLength int) Policy {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return Policy{BotName: botName, MaxLength: maxLength}
}

// Learnable reports whether text qualifies for retention. Messages that are
// too short, too long, command-prefixed, mention the bot itself, or contain
// a link are rejected.
func (p Policy) Learnable(text string) bool {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < MinLearnLength {
		return false
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return false
	}
	if strings.HasPrefix(text, commandPrefix) {
		return false
	}
	if p.Mentions(text) {
		return false
	}
	return !ContainsLink(text)
}

// Replayable reports whether a retained message may be emitted. Only the
// link and length rules apply here: the mention and command checks gate
// learning, and anything that passed them is already absent from the corpus
// unless it arrived through legacy data — which is exactly what the link
// and length re-checks guard against.
func (p Policy) Replayable(text string) bool {
	if ContainsLink(text) {
		return false
	}
	return p.MaxLength <= 0 || utf8.RuneCountInString(text) <= p.MaxLength
}

// Mentions reports whether text contains a case-insensitive at-mention of
// the bot's own name. A Policy without a BotName never matches.
func (p Policy) Mentions(text string) bool {
	if p.BotName == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), "@"+strings.ToLower(p.BotName))
}

// ContainsLink reports whether text contains a hyperlink-like token: an
// http:// or https:// scheme anywhere, or a whitespace-separated token
// starting with "www.". Matching is case-insensitive.
func ContainsLink(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "http://") || strings.Contains(lower, "https://") {
		return true
	}
	for _, token := range strings.Fields(lower) {
		if strings.HasPrefix(token, "www.") {
			return true
		}
	}
	return false
}
