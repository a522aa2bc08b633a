package capability

import (
	"fmt"
	"strings"
)

// Dialect renders the engine's single-line declaration for an entry.
type Dialect interface {
	Declare(e Entry) string
}

// Injector prepends one declaration per allow-listed entry to a script.
type Injector struct {
	list   AllowList
	header string
}

// NewInjector renders the header once. The header never changes for the injector's lifetime, so
// every Augment call reports the same line count.
func NewInjector(list AllowList, dialect Dialect) (*Injector, error) {
	if err := list.Validate(); err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, e := range list.Entries {
		decl := dialect.Declare(e)
		if strings.ContainsAny(decl, "\r\n") {
			return nil, fmt.Errorf("%w: %q", ErrMultiline, e.Name)
		}
		b.WriteString(decl)
		b.WriteByte('\n')
	}
	return &Injector{list: list, header: b.String()}, nil
}

// AllowList returns the list the injector was built from.
func (i *Injector) AllowList() AllowList {
	return i.list
}

// HeaderLines is the number of lines Augment adds.
func (i *Injector) HeaderLines() int {
	return len(i.list.Entries)
}

// Augment returns the script with the declaration header prepended, and the header line count.
func (i *Injector) Augment(script string) (string, int) {
	return i.header + script, i.HeaderLines()
}
