package automation

import (
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultMatcher is the regex backend wired behind the scripting capability
// when no embedded scripting runtime supplies one (spec §9: triggers are
// stored but inert without a Matcher; DefaultMatcher gives duskline a real
// one out of the box). regexp2 is the one full regex engine already present
// in the retrieved example pack (AhnafCodes-basementui's indirect chroma
// dependency), so it is the grounded choice rather than stdlib regexp,
// which lacks backreferences/lookaround some MUD trigger patterns rely on.
type DefaultMatcher struct {
	// Timeout bounds a single match attempt, per spec §7: "regex match has
	// a timeout via the scripting capability" so a pathological pattern
	// can't hang the event loop.
	Timeout time.Duration
}

// NewDefaultMatcher returns a DefaultMatcher with a conservative timeout.
func NewDefaultMatcher() *DefaultMatcher {
	return &DefaultMatcher{Timeout: 250 * time.Millisecond}
}

func (m *DefaultMatcher) Prepare(pattern string) (MatchHandle, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}
	if m.Timeout > 0 {
		re.MatchTimeout = m.Timeout
	}
	return re, nil
}

func (m *DefaultMatcher) Exec(h MatchHandle, text string) (bool, [2]int, []string) {
	re, ok := h.(*regexp2.Regexp)
	if !ok || re == nil {
		return false, [2]int{}, nil
	}
	match, err := re.FindStringMatch(text)
	if err != nil || match == nil {
		return false, [2]int{}, nil
	}
	groups := make([]string, 0, len(match.Groups()))
	for _, g := range match.Groups() {
		groups = append(groups, g.String())
	}
	start := match.Index
	end := match.Index + match.Length
	return true, [2]int{start, end}, groups
}
