// Package capability holds the fixed list of host facilities a script may reach, and the injector
// that declares them at the top of every script.
package capability

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrEmptyName     = errors.New("capability name is empty")
	ErrDuplicateName = errors.New("duplicate capability name")
	ErrMultiline     = errors.New("capability declaration spans more than one line")
)

// Kind is the sort of host facility an entry names.
type Kind string

const (
	KindPackage Kind = "package"
	KindClass   Kind = "class"
	KindPlugin  Kind = "plugin"
)

// Entry is one allow-listed facility.
type Entry struct {
	Name string
	Kind Kind
}

// AllowList is a versioned, ordered set of entries. Everything outside it is unreachable from
// script code.
type AllowList struct {
	Version string
	Entries []Entry
}

// Default is the allow-list every evaluator starts from.
func Default() AllowList {
	return AllowList{
		Version: "1",
		Entries: []Entry{
			{Name: "math", Kind: KindPackage},
			{Name: "json", Kind: KindPackage},
			{Name: "time", Kind: KindPackage},
			{Name: "datasources", Kind: KindPackage},
			{Name: "transforms", Kind: KindPackage},
			{Name: "log", Kind: KindPackage},
			{Name: "Shape", Kind: KindClass},
			{Name: "Bounds", Kind: KindClass},
			{Name: "Vector3", Kind: KindClass},
		},
	}
}

// Allows reports whether name is on the list.
func (a AllowList) Allows(name string) bool {
	return slices.ContainsFunc(a.Entries, func(e Entry) bool { return e.Name == name })
}

// Names returns entry names in order.
func (a AllowList) Names() []string {
	names := make([]string, 0, len(a.Entries))
	for _, e := range a.Entries {
		names = append(names, e.Name)
	}
	return names
}

// With returns a copy of a with extra entries appended. The version gains a suffix naming the
// additions so two lists with different entries never share a version.
func (a AllowList) With(extra ...Entry) AllowList {
	out := AllowList{
		Version: a.Version,
		Entries: append(slices.Clone(a.Entries), extra...),
	}
	if len(extra) > 0 {
		names := make([]string, 0, len(extra))
		for _, e := range extra {
			names = append(names, e.Name)
		}
		out.Version = a.Version + "+" + strings.Join(names, ",")
	}
	return out
}

// Validate checks names are present and unique.
func (a AllowList) Validate() error {
	seen := make(map[string]struct{}, len(a.Entries))
	for i, e := range a.Entries {
		if e.Name == "" {
			return fmt.Errorf("%w: entry %d", ErrEmptyName, i)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}
