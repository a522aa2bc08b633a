// Package diagnostics turns sandbox faults and script output into the text a script author sees.
package diagnostics

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/robbyt/go-shapescript/platform/sandbox"
)

// TimeExceeded is the user-facing text for a run stopped by its time budget.
const TimeExceeded = "Execution time exceeded."

const marker = sandbox.ScriptName + "#"

// RemapTable maps known internal fault messages to user-facing text. Lookup is by exact message.
type RemapTable map[string]string

// DefaultRemap returns the built-in remap entries.
func DefaultRemap() RemapTable {
	return RemapTable{sandbox.SignalTimeBudget: TimeExceeded}
}

// Merge returns a copy of t with extra added, extra winning on conflicts.
func (t RemapTable) Merge(extra map[string]string) RemapTable {
	out := maps.Clone(t)
	if out == nil {
		out = make(RemapTable, len(extra))
	}
	maps.Copy(out, extra)
	return out
}

// Lookup returns the replacement for msg, or msg itself.
func (t RemapTable) Lookup(msg string) string {
	if friendly, ok := t[msg]; ok {
		return friendly
	}
	return msg
}

// AddErrorLine rewrites an internal location marker "<cmd>#N" in msg into a reference to the
// author's own script. N counts lines of the augmented script, so the visible line is
// N - headerLines. The marker and everything after it are removed; when the visible line is
// inside the script its text is appended as "Script Line(V): <text>". A fault inside the
// injected header (V <= 0) gets no line reference. Messages without a marker are unchanged.
func AddErrorLine(msg string, headerLines int, script string) string {
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return msg
	}

	rest := msg[idx+len(marker):]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		end = len(rest)
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return msg
	}

	prefix := strings.TrimRight(strings.TrimSuffix(msg[:idx], "("), " ")
	visible := n - headerLines
	if visible <= 0 {
		return prefix
	}

	lines := strings.Split(script, "\n")
	if visible > len(lines) {
		return prefix
	}
	return fmt.Sprintf("%s\nScript Line(%d): %s", prefix, visible, lines[visible-1])
}
