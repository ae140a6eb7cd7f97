package session

import "github.com/duskline/duskline/internal/automation"

// Scripting is the narrow external collaborator interface named in spec
// §4.7 "Scripting capability": eval/load_file/run/set/get plus the
// match_prepare/match_exec surface the trigger engine defers to (spec §9:
// "the core does not implement regex"). automation.Matcher already names
// match_prepare/match_exec exactly; Scripting embeds it rather than
// repeating the two methods under different names.
type Scripting interface {
	automation.Matcher

	// Eval executes code in the backend's own language.
	Eval(code string) error
	// LoadFile loads a script file; quiet suppresses the backend's own
	// "loaded" status message.
	LoadFile(path string, quiet bool) error
	// Run invokes a named hook function with text, returning the
	// (possibly transformed) text to pass to the next stacked backend.
	Run(function, text string) (string, error)
	// Set/Get expose the backend's variable namespace to the command
	// processor's $name substitution fallback (see Processor.SetVarFunc).
	Set(name, value string) error
	Get(name string) (string, bool)
}
