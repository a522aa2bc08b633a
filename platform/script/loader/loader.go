// Package loader reads script text from a string, a byte slice, a file or an HTTP URL, and
// names each source with a stable URL.
package loader

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"unicode/utf8"
)

var (
	ErrScriptNotAvailable = errors.New("script not available")
	ErrNotText            = errors.New("script is not valid UTF-8 text")
)

// Loader is an interface used by the evaluator to load script text.
type Loader interface {
	GetReader() (io.ReadCloser, error)
	GetSourceURL() *url.URL
}

// ReadScript reads the whole script behind l. The text is returned exactly as stored, so line
// numbers in diagnostics match the source.
func ReadScript(l Loader) (string, error) {
	r, err := l.GetReader()
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrScriptNotAvailable, err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: %s", ErrNotText, l.GetSourceURL())
	}
	return string(b), nil
}
