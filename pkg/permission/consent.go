package permission

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
)

// Default disclaimer phrases the assistant emits when a question falls
// outside its allowed scope. Matching is substring-based after folding.
var DefaultDisclaimers = []string{
	"outside my area of expertise",
	"خارج از حوزه تخصص من",
}

// Default affirmation phrases a user may answer the disclaimer with.
var DefaultAffirmations = []string{
	"yes",
	"yes please",
	"sure",
	"go ahead",
	"okay",
	"ok",
	"please do",
	"بله",
	"آره",
	"باشه",
	"حتما",
	"ادامه بده",
}

// ConsentScanner detects an informed-consent exchange in a conversation:
// an assistant disclaimer immediately followed by a user affirmation.
type ConsentScanner struct {
	disclaimers []string
	affirmation *regexp.Regexp
}

// NewConsentScanner builds a scanner over the given phrase lists, falling
// back to the defaults when a list is empty.
func NewConsentScanner(disclaimers, affirmations []string) (*ConsentScanner, error) {
	if len(disclaimers) == 0 {
		disclaimers = DefaultDisclaimers
	}
	if len(affirmations) == 0 {
		affirmations = DefaultAffirmations
	}

	folded := make([]string, len(disclaimers))
	for i, d := range disclaimers {
		folded[i] = fold(d)
	}

	pattern, err := affirmationPattern(affirmations)
	if err != nil {
		return nil, err
	}

	return &ConsentScanner{disclaimers: folded, affirmation: pattern}, nil
}

// ShouldLiftRestriction scans history for an assistant disclaimer followed
// immediately by a user affirmation. The lift applies to the current turn
// only; the scanner holds no state.
func (s *ConsentScanner) ShouldLiftRestriction(history []chat.Message) bool {
	for i := 0; i+1 < len(history); i++ {
		if history[i].Role != chat.RoleAssistant || history[i+1].Role != chat.RoleUser {
			continue
		}
		if s.containsDisclaimer(history[i].Content) && s.isAffirmation(history[i+1].Content) {
			return true
		}
	}
	return false
}

func (s *ConsentScanner) containsDisclaimer(text string) bool {
	folded := fold(text)
	for _, d := range s.disclaimers {
		if strings.Contains(folded, d) {
			return true
		}
	}
	return false
}

func (s *ConsentScanner) isAffirmation(text string) bool {
	return s.affirmation.MatchString(fold(text))
}

// fold normalizes to NFC and lowercases so phrase lists match regardless of
// how the client composed its Unicode.
func fold(text string) string {
	return strings.ToLower(norm.NFC.String(text))
}

// affirmationPattern builds a word-bounded alternation over the phrase
// list. RE2's \b is ASCII-only, so boundaries are expressed as
// not-letter-not-digit instead; Persian phrases would never match
// otherwise.
func affirmationPattern(phrases []string) (*regexp.Regexp, error) {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(fold(p))
	}

	pattern := fmt.Sprintf(`(?:^|[^\p{L}\p{N}])(?:%s)(?:[^\p{L}\p{N}]|$)`, strings.Join(quoted, "|"))
	return regexp.Compile(pattern)
}
