// Package command implements the FIFO command queue and expansion passes
// described in spec §4.8: semicolon split, speedwalk, alias substitution,
// and variable substitution, followed by dispatch either to the built-in
// "#"-command table (spec §6) or to the MUD socket.
//
// Grounded on h2/internal/message's MessageQueue shape (a queue plus a
// drain loop that applies transformations per entry before delivery),
// generalized from agent-message priority queuing to the spec's per-entry
// expansion-flag model. Recursion (alias re-enqueue, semicolon re-split) is
// modeled as direct recursive processing rather than a literal re-push onto
// the queue, bounded by maxDepth exactly as spec §4.8 requires ("recursion
// guard refuses to nest beyond depth N").
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/duskline/duskline/internal/automation"
)

// maxDepth bounds alias/semicolon/speedwalk re-expansion nesting (spec
// §4.8's "small constant").
const maxDepth = 8

// Flags selects which expansion passes apply to one queue entry (spec §3
// "Command queue entry").
type Flags struct {
	Alias      bool
	Speedwalk  bool
	Semicolon  bool
	Variables  bool
}

// DefaultFlags enables every pass, the configuration for a line typed
// directly at the input widget.
var DefaultFlags = Flags{Alias: true, Speedwalk: true, Semicolon: true, Variables: true}

func (f Flags) withoutSemicolon() Flags { f.Semicolon = false; return f }
func (f Flags) withoutSpeedwalk() Flags { f.Speedwalk = false; return f }
func (f Flags) withoutAlias() Flags     { f.Alias = false; return f }

// Entry is one pending command string plus its expansion flags.
type Entry struct {
	Text  string
	Flags Flags
}

// Host is the set of actions the built-in "#"-command table (spec §6)
// drives. The processor owns only expansion and dispatch; Host performs
// the actual effects (opening a socket, mutating automation tables, ...).
type Host interface {
	// Send writes line (without a trailing newline; Send adds it) to the
	// MUD socket — the non-"#" dispatch path (spec §4.8).
	Send(line string) error

	Open(host string, port int) error
	Close() error
	Quit()

	Profile() *automation.Profile

	AddAlias(name, template string) error
	RemoveAlias(name string) error
	AddAction(pattern, commands string) error
	RemoveAction(pattern string) error
	AddSubst(pattern, replacement string) error
	AddMacro(keySpec, commands string) error
	SaveProfile(path string, includeColor bool) error

	Version() string
	StatusText() string
	HelpText() string
	Enable(feature string) error
	Disable(feature string) error

	// SetStatus surfaces a one-line status message to the user (spec §7
	// "user" errors: "status line message; input preserved").
	SetStatus(text string)
}

// Processor is the FIFO queue plus expansion engine (spec §4.8).
type Processor struct {
	queue []Entry
	host  Host

	// CommandChar is the prefix that routes an entry to the built-in table
	// instead of the MUD socket (spec §6, default '#').
	CommandChar byte

	vars    map[string]string
	varFunc func(name string) (string, bool)

	builtins map[string]func(args []string) error
}

// NewProcessor builds a Processor bound to host and registers the built-in
// command table from spec §6.
func NewProcessor(host Host) *Processor {
	p := &Processor{
		host:        host,
		CommandChar: '#',
		vars:        make(map[string]string),
	}
	p.registerBuiltins()
	return p
}

// SetVar / GetVar manage the associative variable store (spec §4.8
// "Variable substitution"). VarFunc supplies dynamic values (e.g. a
// scripting backend's exposed `$hp`) consulted when a plain lookup misses.
func (p *Processor) SetVar(name, value string) { p.vars[name] = value }
func (p *Processor) GetVar(name string) (string, bool) {
	if v, ok := p.vars[name]; ok {
		return v, true
	}
	if p.varFunc != nil {
		return p.varFunc(name)
	}
	return "", false
}

// SetVarFunc installs the dynamic-variable fallback hook.
func (p *Processor) SetVarFunc(f func(name string) (string, bool)) { p.varFunc = f }

// Add enqueues text with the given expansion flags (spec §4.8 "add").
func (p *Processor) Add(text string, flags Flags) {
	p.queue = append(p.queue, Entry{Text: text, Flags: flags})
}

// Execute drains the queue, applying expansions then dispatching each
// entry in turn (spec §4.8 "execute"). Pending commands are drained after
// the protocol pipeline finishes processing a feed, never from inside it
// (spec §5 ordering guarantee: re-entrancy is prevented this way).
func (p *Processor) Execute() {
	for len(p.queue) > 0 {
		e := p.queue[0]
		p.queue = p.queue[1:]
		p.process(e, 0)
	}
}

// Pending reports the number of entries still queued.
func (p *Processor) Pending() int { return len(p.queue) }

func (p *Processor) process(e Entry, depth int) {
	if depth > maxDepth {
		p.host.SetStatus(fmt.Sprintf("command expansion too deep (%q)", e.Text))
		return
	}

	if e.Flags.Semicolon {
		if parts := splitSemicolon(e.Text); len(parts) > 1 {
			for _, part := range parts {
				p.process(Entry{Text: part, Flags: e.Flags.withoutSemicolon()}, depth+1)
			}
			return
		}
	}

	if e.Flags.Speedwalk {
		if steps, ok := expandSpeedwalk(e.Text); ok {
			for _, step := range steps {
				p.process(Entry{Text: step, Flags: e.Flags.withoutSpeedwalk().withoutSemicolon()}, depth+1)
			}
			return
		}
	}

	if e.Flags.Alias {
		word, _ := splitFirstWord(e.Text)
		if prof := p.host.Profile(); prof != nil && word != "" {
			if a := prof.LookupAlias(word); a != nil {
				tokens := strings.Fields(e.Text)
				expanded := automation.ExpandTemplate(a, tokens)
				p.process(Entry{Text: expanded, Flags: e.Flags.withoutAlias()}, depth+1)
				return
			}
		}
	}

	text := e.Text
	if e.Flags.Variables {
		text = p.expandVariables(text)
	}

	p.dispatch(text)
}

func (p *Processor) dispatch(text string) {
	if text == "" {
		return
	}
	if text[0] == p.CommandChar {
		p.dispatchBuiltin(text[1:])
		return
	}
	if err := p.host.Send(text); err != nil {
		p.host.SetStatus(fmt.Sprintf("send failed: %v", err))
	}
}

func (p *Processor) dispatchBuiltin(rest string) {
	name, argStr := splitFirstWord(rest)
	if name == "" {
		p.host.SetStatus("empty command")
		return
	}
	handler, ok := p.builtins[strings.ToLower(name)]
	if !ok {
		p.host.SetStatus(fmt.Sprintf("unknown command: #%s", name))
		return
	}
	args, err := shlex.Split(argStr)
	if err != nil {
		p.host.SetStatus(fmt.Sprintf("bad arguments: %v", err))
		return
	}
	if err := handler(args); err != nil {
		p.host.SetStatus(err.Error())
	}
}

// splitFirstWord splits s into its first whitespace-delimited word and the
// (untrimmed-at-start) remainder.
func splitFirstWord(s string) (word, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i+1:], " \t")
}

// splitSemicolon splits s at top-level ';' characters (spec §4.8 item 1).
func splitSemicolon(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// expandSpeedwalk recognizes the `^([0-9]*[nsewud])+$` grammar (spec §4.8
// item 2, literal grammar) and expands e.g. "3n2e" into ["n","n","n","e","e"].
func expandSpeedwalk(s string) ([]string, bool) {
	if s == "" {
		return nil, false
	}
	var steps []string
	i := 0
	for i < len(s) {
		numStart := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i >= len(s) {
			return nil, false
		}
		dir := s[i]
		if !strings.ContainsRune("nsewud", rune(dir)) {
			return nil, false
		}
		count := 1
		if i > numStart {
			n, err := strconv.Atoi(s[numStart:i])
			if err != nil || n <= 0 {
				return nil, false
			}
			count = n
		}
		for k := 0; k < count; k++ {
			steps = append(steps, string(dir))
		}
		i++
	}
	if len(steps) == 0 {
		return nil, false
	}
	return steps, true
}

// expandVariables replaces $name tokens with values from the variable
// store (spec §4.8 item 4). $$ is a literal '$'.
func (p *Processor) expandVariables(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		if s[i+1] == '$' {
			b.WriteByte('$')
			i++
			continue
		}
		j := i + 1
		for j < len(s) && isVarChar(s[j]) {
			j++
		}
		if j == i+1 {
			b.WriteByte(c)
			continue
		}
		name := s[i+1 : j]
		if v, ok := p.GetVar(name); ok {
			b.WriteString(v)
		}
		i = j - 1
	}
	return b.String()
}

func isVarChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
