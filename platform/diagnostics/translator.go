package diagnostics

import (
	"strings"

	"github.com/robbyt/go-shapescript/platform/sandbox"
)

// Translator renders fault reports for the script author.
type Translator struct {
	remap RemapTable
}

// NewTranslator uses the default remap table extended with extra.
func NewTranslator(extra map[string]string) *Translator {
	return &Translator{remap: DefaultRemap().Merge(extra)}
}

// Translate remaps the fault's message, then rewrites its location against the user's script.
func (t *Translator) Translate(f *sandbox.Fault, headerLines int, script string) string {
	if f == nil {
		return ""
	}
	remapped := &sandbox.Fault{Message: t.remap.Lookup(f.Message), Line: f.Line}
	return AddErrorLine(remapped.Error(), headerLines, script)
}

// Text translates every fault and joins them one per line.
func (t *Translator) Text(faults []*sandbox.Fault, headerLines int, script string) string {
	out := make([]string, 0, len(faults))
	for _, f := range faults {
		out = append(out, t.Translate(f, headerLines, script))
	}
	return strings.Join(out, "\n")
}
