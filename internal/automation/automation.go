// Package automation holds the per-profile alias, trigger, and macro tables
// described in spec §3/§4.9, plus the default regex-matching backend behind
// the scripting capability's match_prepare/match_exec contract (spec §4.7,
// §9 "regex is not implemented here" — the core defers matching to a
// pluggable Matcher; this package ships the one real default).
package automation

import (
	"fmt"
	"strconv"
	"strings"
)

// TriggerKind distinguishes the three trigger behaviors spec §3 names.
type TriggerKind int

const (
	TriggerAction TriggerKind = iota
	TriggerSubstitution
	TriggerGag
)

// Alias is a named command template with positional parameter expansion
// (spec §3). Literal marks an alias whose command text is dispatched
// verbatim rather than run through %N template substitution — spec §4.9's
// "single-character prefix ... marks a template alias vs a literal one".
type Alias struct {
	Name     string
	Template string
	Literal  bool
}

// Macro binds a normalized key code (spec §4.9) to a command string.
type Macro struct {
	KeyCode  int
	Commands string
}

// MatchHandle is the opaque compiled-pattern handle a Matcher hands back
// from Prepare; the core never inspects it, only threads it back through
// Exec (spec §3 "Trigger": "the compiled handle is opaque").
type MatchHandle interface{}

// Matcher is the scripting capability's narrow regex surface (spec §4.7:
// match_prepare/match_exec). The core deliberately does not implement
// matching itself; if no Matcher is configured, triggers are stored but
// never fire (spec §9 Design Notes).
type Matcher interface {
	Prepare(pattern string) (MatchHandle, error)
	// Exec reports whether text matches, the full match span, and any
	// captured groups (group 0 is the whole match).
	Exec(h MatchHandle, text string) (matched bool, span [2]int, groups []string)
}

// Trigger is a pattern-driven rule that fires commands, substitutes text,
// or gags a line (spec §3).
type Trigger struct {
	Pattern  string
	Handle   MatchHandle
	Commands string
	Kind     TriggerKind
}

// Profile is a named MUD target plus its automation rules, optionally
// inheriting from a parent profile (spec §3 "MUD profile").
type Profile struct {
	Name            string
	Host            string
	Port            int
	ConnectCommands []string

	Aliases  []*Alias
	Triggers []*Trigger
	Macros   []*Macro

	Parent *Profile
}

// LookupAlias walks the parent chain and returns the nearest-match alias
// (spec §3: "Lookup for aliases/triggers/macros walks the parent chain").
func (p *Profile) LookupAlias(name string) *Alias {
	for prof := p; prof != nil; prof = prof.Parent {
		for _, a := range prof.Aliases {
			if a.Name == name {
				return a
			}
		}
	}
	return nil
}

// LookupMacro walks the parent chain for a macro bound to keyCode.
func (p *Profile) LookupMacro(keyCode int) *Macro {
	for prof := p; prof != nil; prof = prof.Parent {
		for _, m := range prof.Macros {
			if m.KeyCode == keyCode {
				return m
			}
		}
	}
	return nil
}

// AllTriggers collects every trigger reachable from p, nearest profile
// first, for a full match pass over one line. Unlike LookupAlias/LookupMacro
// (first match wins), trigger evaluation considers every rule in the chain
// (spec §4.7 "Trigger pass": "for each trigger ... whose regex matches").
func (p *Profile) AllTriggers() []*Trigger {
	var out []*Trigger
	for prof := p; prof != nil; prof = prof.Parent {
		out = append(out, prof.Triggers...)
	}
	return out
}

// AddAlias adds or replaces (by name) an alias on p directly (spec §6
// "#alias name text" adds/replaces).
func (p *Profile) AddAlias(name, template string, literal bool) {
	for _, a := range p.Aliases {
		if a.Name == name {
			a.Template = template
			a.Literal = literal
			return
		}
	}
	p.Aliases = append(p.Aliases, &Alias{Name: name, Template: template, Literal: literal})
}

// RemoveAlias removes an alias by name from p directly (spec §6 "#unalias").
func (p *Profile) RemoveAlias(name string) bool {
	for i, a := range p.Aliases {
		if a.Name == name {
			p.Aliases = append(p.Aliases[:i], p.Aliases[i+1:]...)
			return true
		}
	}
	return false
}

// AddTrigger compiles pattern via m and appends a trigger of the given kind.
func (p *Profile) AddTrigger(m Matcher, pattern, commands string, kind TriggerKind) error {
	var h MatchHandle
	if m != nil {
		var err error
		h, err = m.Prepare(pattern)
		if err != nil {
			return fmt.Errorf("compile trigger pattern %q: %w", pattern, err)
		}
	}
	p.Triggers = append(p.Triggers, &Trigger{Pattern: pattern, Handle: h, Commands: commands, Kind: kind})
	return nil
}

// RemoveTrigger removes the first trigger on p directly whose pattern text
// equals pattern (spec §6 "#unaction pattern").
func (p *Profile) RemoveTrigger(pattern string) bool {
	for i, t := range p.Triggers {
		if t.Pattern == pattern {
			p.Triggers = append(p.Triggers[:i], p.Triggers[i+1:]...)
			return true
		}
	}
	return false
}

// AddMacro binds keyCode to commands on p directly, replacing any existing
// binding for the same key.
func (p *Profile) AddMacro(keyCode int, commands string) {
	for _, m := range p.Macros {
		if m.KeyCode == keyCode {
			m.Commands = commands
			return
		}
	}
	p.Macros = append(p.Macros, &Macro{KeyCode: keyCode, Commands: commands})
}

// ExpandTemplate applies the §3 alias template substitution rules to
// a.Template given the whitespace-split tokens of the whole command line
// (tokens[0] is the alias name itself, matching reference %0 semantics):
//
//	%0      literal command name (tokens[0])
//	%N      the Nth token (1-indexed), or "" if absent
//	%-N     tokens 1..N joined by a single space
//	%+N     tokens N..end joined by a single space
//	%%      a literal '%'
func ExpandTemplate(a *Alias, tokens []string) string {
	if a.Literal {
		return a.Template
	}
	var b strings.Builder
	src := a.Template
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c != '%' || i+1 >= len(src) {
			b.WriteByte(c)
			continue
		}
		rest := src[i+1:]
		if rest[0] == '%' {
			b.WriteByte('%')
			i++
			continue
		}
		j := 0
		if rest[0] == '-' {
			j++
		} else if rest[0] == '+' {
			j++
		}
		start := j
		for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
			j++
		}
		if j == start {
			// Not a recognized %-form; emit '%' literally and continue.
			b.WriteByte('%')
			continue
		}
		n, _ := strconv.Atoi(rest[start:j])
		i += j // skip past the consumed form (relative to rest, offset by the '%')
		switch {
		case rest[0] == '-':
			b.WriteString(joinRange(tokens, 1, n))
		case rest[0] == '+':
			b.WriteString(joinRange(tokens, n, len(tokens)-1))
		default:
			if n < len(tokens) {
				b.WriteString(tokens[n])
			}
		}
	}
	return b.String()
}

// joinRange joins tokens[from..to] inclusive (1-indexed against the
// alias-invocation tokens, where tokens[0] is the command name) with single
// spaces, tolerating out-of-range bounds by clamping.
func joinRange(tokens []string, from, to int) string {
	if from < 1 {
		from = 1
	}
	if to > len(tokens)-1 {
		to = len(tokens) - 1
	}
	if from > to {
		return ""
	}
	return strings.Join(tokens[from:to+1], " ")
}
