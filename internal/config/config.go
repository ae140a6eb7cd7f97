// Package config resolves duskline's on-disk config directory and parses
// the profile/configuration file described in spec §6: a line form
// ("name host port [commands]") and a block form
// ("MUD name { Host host port; Commands …; Alias …; Action …; Macro …;
// parent other; }").
//
// Grounded on h2/internal/config's ConfigDir()/ResolveDir() shape for
// directory resolution, and on AhnafCodes-basementui's
// go/basement/parser.go technique of dispatching each line through an
// ordered table of shape regexes rather than a hand-rolled recursive-descent
// parser — appropriate here since the DSL has no nesting beyond one
// Host/Commands/Alias/Action/Macro/parent block level.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/duskline/duskline/internal/automation"
	"github.com/duskline/duskline/internal/command"
)

// AppName names the subdirectory under the user's config home
// ($XDG_CONFIG_HOME or ~/.config) where duskline keeps its files (spec §6).
const AppName = "duskline"

// ConfigDir returns $XDG_CONFIG_HOME/duskline, or ~/.config/duskline if
// XDG_CONFIG_HOME is unset, mirroring h2's ConfigDir() shape (a single
// function with a safe fallback, no error return) while following the
// XDG convention spec §6 names explicitly ("${config}").
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+AppName)
	}
	return filepath.Join(home, ".config", AppName)
}

// EnsureConfigDir creates ConfigDir() if it doesn't exist.
func EnsureConfigDir() (string, error) {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// ProfilePath returns ${config}/config, the profile file's conventional
// location (spec §6).
func ProfilePath() string {
	return filepath.Join(ConfigDir(), "config")
}

var (
	reBlockStart = regexp.MustCompile(`^MUD\s+(\S+)\s*\{$`)
	reBlockEnd   = regexp.MustCompile(`^\}$`)
	reHost       = regexp.MustCompile(`^Host\s+(\S+)\s+(\d+);?$`)
	reCommands   = regexp.MustCompile(`^Commands\s+(.+?);?$`)
	reAlias      = regexp.MustCompile(`^Alias\s+(\S+)\s+(.+?);?$`)
	reAction     = regexp.MustCompile(`^Action\s+(\S+)\s+(.+?);?$`)
	reMacro      = regexp.MustCompile(`^Macro\s+(\S+)\s+(.+?);?$`)
	reParent     = regexp.MustCompile(`^parent\s+([^\s;]+);?$`)
	reLineForm   = regexp.MustCompile(`^(\S+)\s+(\S+)\s+(\d+)(?:\s+(.+))?$`)
)

// LoadProfiles parses path, accepting both config forms from spec §6 on a
// per-line basis, and returns every profile found (with parent references
// resolved by name). Malformed lines are skipped with a returned warning
// rather than aborting the whole file (spec §7 "config" errors: "skip
// entry; status line warning; do not abort").
func LoadProfiles(path string) ([]*automation.Profile, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("open profile file: %w", err)
	}
	defer f.Close()

	var profiles []*automation.Profile
	var warnings []string
	var parentRefs = map[string]string{}

	var cur *automation.Profile
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case cur == nil && reBlockStart.MatchString(line):
			m := reBlockStart.FindStringSubmatch(line)
			cur = &automation.Profile{Name: m[1]}

		case cur != nil && reBlockEnd.MatchString(line):
			profiles = append(profiles, cur)
			cur = nil

		case cur != nil && reHost.MatchString(line):
			m := reHost.FindStringSubmatch(line)
			port, _ := strconv.Atoi(m[2])
			cur.Host, cur.Port = m[1], port

		case cur != nil && reCommands.MatchString(line):
			m := reCommands.FindStringSubmatch(line)
			cur.ConnectCommands = append(cur.ConnectCommands, splitTopLevel(m[1])...)

		case cur != nil && reAlias.MatchString(line):
			m := reAlias.FindStringSubmatch(line)
			cur.AddAlias(m[1], m[2], false)

		case cur != nil && reAction.MatchString(line):
			m := reAction.FindStringSubmatch(line)
			if err := cur.AddTrigger(nil, m[1], m[2], automation.TriggerAction); err != nil {
				warnings = append(warnings, fmt.Sprintf("line %d: %v", lineNo, err))
			}

		case cur != nil && reMacro.MatchString(line):
			m := reMacro.FindStringSubmatch(line)
			code, err := parseKeyToken(m[1])
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("line %d: %v", lineNo, err))
				continue
			}
			cur.AddMacro(code, m[2])

		case cur != nil && reParent.MatchString(line):
			m := reParent.FindStringSubmatch(line)
			parentRefs[cur.Name] = m[1]

		case cur == nil && reLineForm.MatchString(line):
			m := reLineForm.FindStringSubmatch(line)
			port, err := strconv.Atoi(m[3])
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("line %d: bad port", lineNo))
				continue
			}
			p := &automation.Profile{Name: m[1], Host: m[2], Port: port}
			if m[4] != "" {
				p.ConnectCommands = splitTopLevel(m[4])
			}
			profiles = append(profiles, p)

		default:
			warnings = append(warnings, fmt.Sprintf("line %d: unrecognized config line %q", lineNo, line))
		}
	}
	if cur != nil {
		warnings = append(warnings, fmt.Sprintf("unterminated MUD block %q", cur.Name))
	}
	if err := scanner.Err(); err != nil {
		return profiles, warnings, fmt.Errorf("read profile file: %w", err)
	}

	byName := make(map[string]*automation.Profile, len(profiles))
	for _, p := range profiles {
		byName[p.Name] = p
	}
	for name, parentName := range parentRefs {
		if child, ok := byName[name]; ok {
			if parent, ok := byName[parentName]; ok {
				child.Parent = parent
			} else {
				warnings = append(warnings, fmt.Sprintf("profile %q: unknown parent %q", name, parentName))
			}
		}
	}

	return profiles, warnings, nil
}

// splitTopLevel splits a semicolon-separated command list, trimming
// whitespace and dropping empty entries.
func splitTopLevel(s string) []string {
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

func parseKeyToken(tok string) (int, error) {
	return command.ParseKeySpec(tok)
}

// SaveProfile writes p back out in block form to path (spec §6 "#save").
// When includeColor is true, this is the color-preserving export variant
// named by "#save -c" (spec §6); profile save never carries color data
// itself (it's MUD metadata, not scrollback), so includeColor only affects
// how callers combine this with a scrollback export — kept as a parameter
// here so Host.SaveProfile has one signature for both.
func SaveProfile(path string, p *automation.Profile, includeColor bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "MUD %s {\n", p.Name)
	fmt.Fprintf(&b, "\tHost %s %d;\n", p.Host, p.Port)
	for _, c := range p.ConnectCommands {
		fmt.Fprintf(&b, "\tCommands %s;\n", c)
	}
	for _, a := range p.Aliases {
		fmt.Fprintf(&b, "\tAlias %s %s;\n", a.Name, a.Template)
	}
	for _, tr := range p.Triggers {
		if tr.Kind == automation.TriggerAction {
			fmt.Fprintf(&b, "\tAction %s %s;\n", tr.Pattern, tr.Commands)
		}
	}
	for _, m := range p.Macros {
		fmt.Fprintf(&b, "\tMacro %d %s;\n", m.KeyCode, m.Commands)
	}
	if p.Parent != nil {
		fmt.Fprintf(&b, "\tparent %s;\n", p.Parent.Name)
	}
	b.WriteString("}\n")
	return os.WriteFile(path, []byte(b.String()), 0o600)
}
