package session

import (
	"fmt"
	"strings"

	"github.com/duskline/duskline/internal/automation"
	"github.com/duskline/duskline/internal/cell"
	"github.com/duskline/duskline/internal/command"
	"github.com/duskline/duskline/internal/proto"
)

// defaultMaxPromptLen caps a flushed prompt line when MaxPromptLen is left at its
// zero value (spec §4.7: "truncated to a maximum").
const defaultMaxPromptLen = 200

// FeedInbound drives bytes read from the MUD socket through
// decompress -> telnet -> ANSI -> line/trigger dispatch (spec §4.7
// "feed_inbound(bytes)"). Trigger actions are enqueued onto Commands but
// never executed here; the caller runs Commands.Execute() once FeedInbound
// returns (spec §5 "the command queue is drained after the pipeline, not
// inside it").
func (s *Session) FeedInbound(raw []byte) error {
	s.Stats.BytesIn += int64(len(raw))

	out, status, err := s.Decompressor.Feed(raw)
	if err != nil {
		s.logWarn("protocol", err)
		return err
	}
	if status == proto.StatusEOS {
		s.logWarn("protocol", fmt.Errorf("decompression stream ended"))
	}

	app, prompts, subnegs, replies := s.Telnet.Feed(out)
	for _, sn := range subnegs {
		if r := s.handleSubneg(sn); r != nil {
			replies = append(replies, r...)
		}
	}
	if len(replies) > 0 {
		if err := s.WriteRaw(replies); err != nil {
			s.logWarn("network", err)
		}
	}

	events := s.ANSI.Feed(app, nil)
	var cur cell.Attribute = s.ANSI.Current()
	for _, ev := range events {
		switch ev.Kind {
		case proto.EventSetColor:
			cur = ev.Attr
		case proto.EventText:
			if ev.Byte == '\n' {
				s.commitLine()
				continue
			}
			s.lineBuffer = append(s.lineBuffer, coloredByte{b: ev.Byte, attr: cur})
		}
	}

	for range prompts {
		s.flushPrompt()
	}
	return nil
}

// handleSubneg recognizes the MCCP compression-start handshake (spec §4.1),
// the one place compression negotiation is resolved — one layer above the
// telnet parser, which only strips and hands up subnegotiation bodies.
func (s *Session) handleSubneg(sn proto.Subneg) []byte {
	if len(sn.Body) == 0 {
		return nil
	}
	switch sn.Body[0] {
	case proto.OptCompressV2:
		s.Decompressor.Activate()
		s.compressV2 = true
		return proto.ReplyDo(proto.OptCompressV2)
	case proto.OptCompressV1:
		if s.compressV2 {
			return proto.ReplyDont(proto.OptCompressV1)
		}
		s.Decompressor.Activate()
		return proto.ReplyDo(proto.OptCompressV1)
	}
	return nil
}

// commitLine runs the trigger/substitution/gag pass (spec §4.9 "Trigger
// pass") over the completed line, then — unless gagged — paints it into the
// output widget and clears the buffer.
//
// Painting is deferred to this point rather than happening per-byte as each
// Text(b) event arrives. A gag or substitution can only be resolved once the
// whole line is known, and the scrollback ring has no way to un-paint cells
// already committed; buffering until the pass decides gag-or-not is the only
// way both the gag and substitution contracts (spec §4.9) and the "gagged
// lines never appear in scrollback" guarantee (spec §8) can hold at once.
func (s *Session) commitLine() {
	text := s.lineBufferText()
	gagged, actions := s.runTriggerPass(text)

	for _, cmds := range actions {
		s.Commands.Add(cmds, command.DefaultFlags)
	}

	if !gagged {
		for _, cb := range s.lineBuffer {
			s.Output.WriteCell(cb.b, cb.attr)
		}
		s.Output.Newline()
	}
	s.lineBuffer = s.lineBuffer[:0]
	s.invokeHook("sys/output", text)
}

// runTriggerPass evaluates every trigger reachable from the active profile
// against text (spec §4.9): gag triggers suppress the line outright (and, per
// the gag-wins decision recorded in DESIGN.md, skip any substitution that
// would otherwise have run); substitution triggers rewrite s.lineBuffer in
// place, preserving the first replaced cell's color; action triggers append
// their command string to the returned action list for the caller to enqueue.
func (s *Session) runTriggerPass(text string) (gagged bool, actions []string) {
	if s.Mud == nil {
		return false, nil
	}
	matcher := s.matcher()
	for _, t := range s.Mud.AllTriggers() {
		if t.Kind == automation.TriggerGag {
			if s.triggerMatches(matcher, t, text) {
				return true, actions
			}
		}
	}
	for _, t := range s.Mud.AllTriggers() {
		switch t.Kind {
		case automation.TriggerAction:
			if s.triggerMatches(matcher, t, text) {
				actions = append(actions, t.Commands)
			}
		case automation.TriggerSubstitution:
			if matcher == nil {
				continue
			}
			matched, span, _ := matcher.Exec(t.Handle, text)
			if matched {
				s.applySubstitution(span, t.Commands)
				text = s.lineBufferText()
			}
		}
	}
	return false, actions
}

func (s *Session) triggerMatches(m automation.Matcher, t *automation.Trigger, text string) bool {
	if m == nil {
		return false
	}
	matched, _, _ := m.Exec(t.Handle, text)
	return matched
}

// applySubstitution replaces line_buffer[span[0]:span[1]] with replacement,
// keeping the color of the first replaced cell (spec §4.9: "preserving the
// color of the first replaced cell").
func (s *Session) applySubstitution(span [2]int, replacement string) {
	if span[0] < 0 || span[1] > len(s.lineBuffer) || span[0] > span[1] {
		return
	}
	attr := cell.DefaultAttr
	if span[0] < len(s.lineBuffer) {
		attr = s.lineBuffer[span[0]].attr
	}
	repl := make([]coloredByte, len(replacement))
	for i := 0; i < len(replacement); i++ {
		repl[i] = coloredByte{b: replacement[i], attr: attr}
	}
	head := append([]coloredByte(nil), s.lineBuffer[:span[0]]...)
	tail := append([]coloredByte(nil), s.lineBuffer[span[1]:]...)
	s.lineBuffer = append(append(head, repl...), tail...)
}

// matcher returns the first stacked scripting backend that also implements
// automation.Matcher, or nil if none does (spec §9: "if no scripting backend
// is present, #action/#subst may be stored but must not match").
func (s *Session) matcher() automation.Matcher {
	for _, sc := range s.Scripts {
		if m, ok := sc.(automation.Matcher); ok {
			return m
		}
	}
	return nil
}

// flushPrompt handles a telnet GA/EOR marker (spec §4.7 item 4): the current
// line buffer becomes the input widget's prompt, stripped of the newlines it
// can't contain anyway and truncated to a maximum, then rendered.
func (s *Session) flushPrompt() {
	text := s.lineBufferText()
	text = strings.ReplaceAll(text, "\n", " ")
	max := s.MaxPromptLen
	if max <= 0 {
		max = defaultMaxPromptLen
	}
	if len(text) > max {
		text = text[:max]
	}
	for _, cb := range s.lineBuffer {
		s.Output.WriteCell(cb.b, cb.attr)
	}
	if s.Input != nil {
		s.Input.SetPrompt([]byte(text))
	}
	s.lineBuffer = s.lineBuffer[:0]
	s.invokeHook("sys/prompt", text)
}
