package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/duskline/duskline/internal/keys"
)

// registerBuiltins wires the minimum built-in "#"-command set from spec §6
// to Host methods. Unknown "#"-commands are handled generically by
// dispatchBuiltin's table-miss branch.
func (p *Processor) registerBuiltins() {
	p.builtins = map[string]func(args []string) error{
		"quit":    p.builtinQuit,
		"open":    p.builtinOpen,
		"close":   p.builtinClose,
		"alias":   p.builtinAlias,
		"unalias": p.builtinUnalias,
		"action":  p.builtinAction,
		"unaction": p.builtinUnaction,
		"subst":   p.builtinSubst,
		"macro":   p.builtinMacro,
		"save":    p.builtinSave,
		"version": p.builtinVersion,
		"status":  p.builtinStatus,
		"help":    p.builtinHelp,
		"enable":  p.builtinEnable,
		"disable": p.builtinDisable,
	}
}

func (p *Processor) builtinQuit(args []string) error {
	p.host.Quit()
	return nil
}

func (p *Processor) builtinOpen(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: #open host port")
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("#open: bad port %q", args[1])
	}
	return p.host.Open(args[0], port)
}

func (p *Processor) builtinClose(args []string) error {
	return p.host.Close()
}

func (p *Processor) builtinAlias(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: #alias name text")
	}
	return p.host.AddAlias(args[0], strings.Join(args[1:], " "))
}

func (p *Processor) builtinUnalias(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: #unalias name")
	}
	return p.host.RemoveAlias(args[0])
}

func (p *Processor) builtinAction(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: #action pattern commands")
	}
	return p.host.AddAction(args[0], strings.Join(args[1:], " "))
}

func (p *Processor) builtinUnaction(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: #unaction pattern")
	}
	return p.host.RemoveAction(args[0])
}

func (p *Processor) builtinSubst(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: #subst pattern replacement")
	}
	return p.host.AddSubst(args[0], strings.Join(args[1:], " "))
}

func (p *Processor) builtinMacro(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: #macro key commands")
	}
	return p.host.AddMacro(args[0], strings.Join(args[1:], " "))
}

func (p *Processor) builtinSave(args []string) error {
	includeColor := false
	rest := args
	if len(rest) > 0 && rest[0] == "-c" {
		includeColor = true
		rest = rest[1:]
	}
	if len(rest) != 1 {
		return fmt.Errorf("usage: #save [-c] path")
	}
	return p.host.SaveProfile(rest[0], includeColor)
}

func (p *Processor) builtinVersion(args []string) error {
	p.host.SetStatus(p.host.Version())
	return nil
}

func (p *Processor) builtinStatus(args []string) error {
	p.host.SetStatus(p.host.StatusText())
	return nil
}

func (p *Processor) builtinHelp(args []string) error {
	p.host.SetStatus(p.host.HelpText())
	return nil
}

func (p *Processor) builtinEnable(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: #enable feature")
	}
	return p.host.Enable(args[0])
}

func (p *Processor) builtinDisable(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: #disable feature")
	}
	return p.host.Disable(args[0])
}

// namedKeys maps the macro key-spec names accepted by "#macro key commands"
// to the keys.Code the event loop's decoder actually produces, so macro
// bindings in a saved profile survive in a human-readable form (spec §4.9:
// "Macros are keyed by a normalized key code ... as produced by the input
// decoder").
var namedKeys = map[string]keys.Code{
	"up": keys.CodeArrowUp, "down": keys.CodeArrowDown,
	"left": keys.CodeArrowLeft, "right": keys.CodeArrowRight,
	"home": keys.CodeHome, "end": keys.CodeEnd,
	"pgup": keys.CodePgUp, "pgdn": keys.CodePgDown,
	"f1": keys.CodeF1, "f2": keys.CodeF2, "f3": keys.CodeF3, "f4": keys.CodeF4,
	"f5": keys.CodeF5, "f6": keys.CodeF6, "f7": keys.CodeF7, "f8": keys.CodeF8,
	"f9": keys.CodeF9, "f10": keys.CodeF10, "f11": keys.CodeF11, "f12": keys.CodeF12,
}

// ParseKeySpec resolves a macro key-spec token into a normalized key code:
// a named special key, a single ASCII character, or a raw integer code.
func ParseKeySpec(spec string) (int, error) {
	if c, ok := namedKeys[strings.ToLower(spec)]; ok {
		return int(c), nil
	}
	if len([]rune(spec)) == 1 {
		return int([]rune(spec)[0]), nil
	}
	n, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("unrecognized key spec %q", spec)
	}
	return n, nil
}
