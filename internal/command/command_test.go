package command

import (
	"testing"

	"github.com/duskline/duskline/internal/automation"
)

// fakeHost records Host calls for assertions; it is not safe for concurrent
// use, matching the single-goroutine event-loop contract (spec §5).
type fakeHost struct {
	sent    []string
	status  []string
	profile *automation.Profile
	quit    bool
}

func (h *fakeHost) Send(line string) error { h.sent = append(h.sent, line); return nil }
func (h *fakeHost) Open(host string, port int) error { return nil }
func (h *fakeHost) Close() error                     { return nil }
func (h *fakeHost) Quit()                            { h.quit = true }
func (h *fakeHost) Profile() *automation.Profile     { return h.profile }
func (h *fakeHost) AddAlias(name, template string) error {
	h.profile.AddAlias(name, template, false)
	return nil
}
func (h *fakeHost) RemoveAlias(name string) error { h.profile.RemoveAlias(name); return nil }
func (h *fakeHost) AddAction(pattern, commands string) error {
	return h.profile.AddTrigger(nil, pattern, commands, automation.TriggerAction)
}
func (h *fakeHost) RemoveAction(pattern string) error { h.profile.RemoveTrigger(pattern); return nil }
func (h *fakeHost) AddSubst(pattern, replacement string) error {
	return h.profile.AddTrigger(nil, pattern, replacement, automation.TriggerSubstitution)
}
func (h *fakeHost) AddMacro(keySpec, commands string) error {
	code, err := ParseKeySpec(keySpec)
	if err != nil {
		return err
	}
	h.profile.AddMacro(code, commands)
	return nil
}
func (h *fakeHost) SaveProfile(path string, includeColor bool) error { return nil }
func (h *fakeHost) Version() string                                 { return "duskline test" }
func (h *fakeHost) StatusText() string                               { return "ok" }
func (h *fakeHost) HelpText() string                                 { return "help" }
func (h *fakeHost) Enable(feature string) error                      { return nil }
func (h *fakeHost) Disable(feature string) error                     { return nil }
func (h *fakeHost) SetStatus(text string)                            { h.status = append(h.status, text) }

func newTestProcessor() (*Processor, *fakeHost) {
	h := &fakeHost{profile: &automation.Profile{Name: "test"}}
	return NewProcessor(h), h
}

func TestAliasExpansion_SendsExpandedLine(t *testing.T) {
	p, h := newTestProcessor()
	h.profile.AddAlias("sayto", "tell %1 %+2", false)

	p.Add("sayto bob hello there friend", DefaultFlags)
	p.Execute()

	if len(h.sent) != 1 || h.sent[0] != "tell bob hello there friend" {
		t.Fatalf("sent = %v, want one line 'tell bob hello there friend'", h.sent)
	}
}

func TestAliasRoundTrip_SemicolonSeparatedAlias(t *testing.T) {
	p, h := newTestProcessor()
	h.profile.AddAlias("foo", "bar %1", false)

	p.Add("#alias foo bar %1 ; foo hello", DefaultFlags)
	p.Execute()

	if len(h.sent) != 1 || h.sent[0] != "bar hello" {
		t.Fatalf("sent = %v, want one line 'bar hello'", h.sent)
	}
}

func TestSpeedwalk_ExpandsInOrder(t *testing.T) {
	p, h := newTestProcessor()
	p.Add("3n2e", DefaultFlags)
	p.Execute()

	want := []string{"n", "n", "n", "e", "e"}
	if len(h.sent) != len(want) {
		t.Fatalf("sent = %v, want %v", h.sent, want)
	}
	for i := range want {
		if h.sent[i] != want[i] {
			t.Fatalf("sent[%d] = %q, want %q", i, h.sent[i], want[i])
		}
	}
}

func TestSemicolonSplit_MultipleEntries(t *testing.T) {
	p, h := newTestProcessor()
	p.Add("look ; inventory", DefaultFlags)
	p.Execute()

	if len(h.sent) != 2 || h.sent[0] != "look" || h.sent[1] != "inventory" {
		t.Fatalf("sent = %v", h.sent)
	}
}

func TestVariableSubstitution(t *testing.T) {
	p, h := newTestProcessor()
	p.SetVar("target", "goblin")
	p.Add("kill $target", DefaultFlags)
	p.Execute()

	if len(h.sent) != 1 || h.sent[0] != "kill goblin" {
		t.Fatalf("sent = %v", h.sent)
	}
}

func TestBuiltinCommand_UnknownSurfacesStatus(t *testing.T) {
	p, h := newTestProcessor()
	p.Add("#bogus", DefaultFlags)
	p.Execute()

	if len(h.sent) != 0 {
		t.Fatalf("expected no outbound send for a built-in, got %v", h.sent)
	}
	if len(h.status) != 1 {
		t.Fatalf("expected a status message, got %v", h.status)
	}
}

func TestBuiltinQuit(t *testing.T) {
	p, h := newTestProcessor()
	p.Add("#quit", DefaultFlags)
	p.Execute()
	if !h.quit {
		t.Fatalf("expected Quit to be called")
	}
}

func TestAliasExpandingToSemicolonSpeedwalk_ChainsThroughAllPasses(t *testing.T) {
	p, h := newTestProcessor()
	h.profile.AddAlias("goeast", "2e;look", false)

	p.Add("goeast", DefaultFlags)
	p.Execute()

	want := []string{"e", "e", "look"}
	if len(h.sent) != len(want) {
		t.Fatalf("sent = %v, want %v", h.sent, want)
	}
	for i := range want {
		if h.sent[i] != want[i] {
			t.Fatalf("sent[%d] = %q, want %q", i, h.sent[i], want[i])
		}
	}
}
