// Package history implements the per-channel input-line history described
// in spec §4.10: a ring of {text, timestamp} per history_id, persisted to
// ${config}/history in the "<id> <unix-ts> <text>" line form, mode 0600.
//
// Navigation (Prev/Next/Reset) is grounded directly on
// dcosson-h2/internal/session/client/history.go's HistoryUp/HistoryDown
// shape (a -1 "not browsing" sentinel, a Saved buffer restored on
// HistoryDown past the newest entry), generalized from one global buffer to
// a HistorySet keyed by channel id and given disk persistence h2's version
// never needed (h2 has no cross-process history file to guard; duskline's
// headless instance and an attached terminal client can both touch it, so
// saves are flock-guarded via github.com/gofrs/flock).
package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Entry is one saved history line (spec §4.10 "{ text, timestamp }").
type Entry struct {
	Text      string
	Timestamp int64 // unix seconds
}

// ring is one channel's history buffer plus browse-position state.
type ring struct {
	entries []Entry
	idx     int // -1 when not browsing (mirrors h2's HistIdx)
}

// Set maps history_id -> ring (spec §3 "HistorySet").
type Set struct {
	rings map[string]*ring
}

// NewSet returns an empty history set.
func NewSet() *Set {
	return &Set{rings: make(map[string]*ring)}
}

func (s *Set) ringFor(id string) *ring {
	r, ok := s.rings[id]
	if !ok {
		r = &ring{idx: -1}
		s.rings[id] = r
	}
	return r
}

// Push appends text to channel id's history, skipping insertion if it
// duplicates the most recent entry (spec §4.10: "duplicates of the most
// recent entry are not inserted"). The entry is stamped with the current
// time; tests that need a fixed timestamp use PushAt.
func (s *Set) Push(id string, text []byte) {
	s.PushAt(id, text, time.Now().Unix())
}

// PushAt is Push with an explicit timestamp, for deterministic tests.
func (s *Set) PushAt(id string, text []byte, ts int64) {
	r := s.ringFor(id)
	t := string(text)
	if n := len(r.entries); n > 0 && r.entries[n-1].Text == t {
		return
	}
	r.entries = append(r.entries, Entry{Text: t, Timestamp: ts})
}

// Prev moves to the previous (older) entry for id (spec §4.10 "Up moves to
// prior"). saved is not stored: the caller keeps its own copy of the
// in-progress buffer to restore when browsing ends.
func (s *Set) Prev(id string, saved []byte) ([]byte, bool) {
	r := s.ringFor(id)
	if len(r.entries) == 0 {
		return nil, false
	}
	if r.idx == -1 {
		r.idx = len(r.entries) - 1
	} else if r.idx > 0 {
		r.idx--
	} else {
		return nil, false
	}
	return []byte(r.entries[r.idx].Text), true
}

// Next moves to the next (newer) entry; ok=false once it walks past the
// newest entry back to "not browsing" (spec §4.10 "Down to next").
func (s *Set) Next(id string) ([]byte, bool) {
	r := s.ringFor(id)
	if r.idx == -1 {
		return nil, false
	}
	if r.idx < len(r.entries)-1 {
		r.idx++
		return []byte(r.entries[r.idx].Text), true
	}
	r.idx = -1
	return nil, false
}

// Reset returns id's browse position to "not browsing" (spec §4.10: "after
// Enter, position resets to end").
func (s *Set) Reset(id string) {
	s.ringFor(id).idx = -1
}

// fileMode is the required permission for the history file (spec §4.10
// "File permissions must be owner-read/write only").
const fileMode = 0o600

// Load reads ${config}/history if present; each line is
// "<id> <unix-ts> <text>" (spec §4.10/§6). A missing file is not an error.
func Load(path string) (*Set, error) {
	s := NewSet()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			continue // spec §7 "history": warn once, continue — caller logs the file-level failure
		}
		ts, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}
		s.PushAt(parts[0], []byte(parts[2]), ts)
	}
	if err := scanner.Err(); err != nil {
		return s, fmt.Errorf("read history file: %w", err)
	}
	return s, nil
}

// Save writes the union of every channel's history to path, sorted by id
// then timestamp (spec §4.10: "write the union sorted by id then time"),
// holding an advisory file lock for the duration of the rewrite so a
// headless instance and an attached terminal client don't interleave
// writes (spec §5 "no locks" describes in-process state only; this is
// cross-process file I/O, grounded on github.com/gofrs/flock as used
// elsewhere in the pack).
func Save(path string, s *Set) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock history file: %w", err)
	}
	defer lock.Unlock()

	type row struct {
		id string
		Entry
	}
	var rows []row
	for id, r := range s.rings {
		for _, e := range r.entries {
			rows = append(rows, row{id: id, Entry: e})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].id != rows[j].id {
			return rows[i].id < rows[j].id
		}
		return rows[i].Timestamp < rows[j].Timestamp
	})

	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%s %d %s\n", r.id, r.Timestamp, r.Text)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), fileMode); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return os.Chmod(path, fileMode)
}
