package session

import (
	"fmt"

	"github.com/duskline/duskline/internal/automation"
	"github.com/duskline/duskline/internal/command"
	"github.com/duskline/duskline/internal/config"
)

// This file implements command.Host on *Session: the built-in "#"-command
// table (spec §6) drives these methods directly rather than going through
// another layer of indirection, since Session already owns the profile,
// the socket, and the scripting stack those commands act on.

var knownFeatures = map[string]bool{"mccp": true, "gag": true, "ansi": true, "log": true}

func (s *Session) Quit() {
	if s.OnQuit != nil {
		s.OnQuit()
	}
	s.Quitting = true
}

func (s *Session) Profile() *automation.Profile { return s.Mud }

// templateMarker is the single-character prefix that marks an alias's
// command text as a template subject to %N substitution rather than a
// literal string dispatched as-is (spec §4.9: "a single-character prefix
// ... marks a 'template' alias vs a literal one").
const templateMarker = '%'

func (s *Session) AddAlias(name, template string) error {
	p := s.activeProfile()
	literal := true
	if len(template) > 0 && template[0] == templateMarker {
		literal, template = false, template[1:]
	}
	p.AddAlias(name, template, literal)
	return nil
}

func (s *Session) RemoveAlias(name string) error {
	p := s.activeProfile()
	if !p.RemoveAlias(name) {
		return fmt.Errorf("no such alias: %s", name)
	}
	return nil
}

func (s *Session) AddAction(pattern, commands string) error {
	return s.activeProfile().AddTrigger(s.matcher(), pattern, commands, automation.TriggerAction)
}

func (s *Session) RemoveAction(pattern string) error {
	p := s.activeProfile()
	if !p.RemoveTrigger(pattern) {
		return fmt.Errorf("no such trigger: %s", pattern)
	}
	return nil
}

func (s *Session) AddSubst(pattern, replacement string) error {
	return s.activeProfile().AddTrigger(s.matcher(), pattern, replacement, automation.TriggerSubstitution)
}

func (s *Session) AddMacro(keySpec, commands string) error {
	code, err := command.ParseKeySpec(keySpec)
	if err != nil {
		return err
	}
	s.activeProfile().AddMacro(code, commands)
	return nil
}

func (s *Session) SaveProfile(path string, includeColor bool) error {
	if path == "" {
		path = s.ProfilesPath
	}
	return config.SaveProfile(path, s.activeProfile(), includeColor)
}

func (s *Session) Version() string {
	if s.VersionString != "" {
		return s.VersionString
	}
	return "duskline (dev)"
}

func (s *Session) StatusText() string {
	name := "(no profile)"
	if s.Mud != nil {
		name = s.Mud.Name
	}
	return fmt.Sprintf("%s — %s", name, s.State)
}

func (s *Session) HelpText() string {
	return "#quit #open #close #alias #unalias #action #unaction #subst #macro #save #version #status #help #enable #disable"
}

func (s *Session) Enable(feature string) error  { return s.setFeature(feature, true) }
func (s *Session) Disable(feature string) error { return s.setFeature(feature, false) }

func (s *Session) setFeature(feature string, on bool) error {
	if !knownFeatures[feature] {
		return fmt.Errorf("unknown feature: %s", feature)
	}
	if s.features == nil {
		s.features = make(map[string]bool)
	}
	s.features[feature] = on
	return nil
}

// FeatureEnabled reports whether feature was turned on via #enable (known
// features default to on).
func (s *Session) FeatureEnabled(feature string) bool {
	if v, ok := s.features[feature]; ok {
		return v
	}
	return true
}

func (s *Session) SetStatus(text string) { s.surfaceStatus(text) }

// activeProfile lazily creates an unnamed profile so #alias/#action/#macro
// work even before a MUD connection names one (spec §4.9 assumes "the
// active profile" always resolves to something).
func (s *Session) activeProfile() *automation.Profile {
	if s.Mud == nil {
		s.Mud = &automation.Profile{Name: "(unnamed)"}
	}
	return s.Mud
}
