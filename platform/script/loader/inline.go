package loader

import (
	"bytes"
	"fmt"
	"io"
	"net/url"

	"github.com/robbyt/go-shapescript/internal/helpers"
)

// inline holds script text kept in memory. Its source URL is scheme://inline/<digest>, so two
// loaders with the same text share a URL.
type inline struct {
	content   []byte
	sourceURL *url.URL
}

func newInline(scheme string, content []byte) (inline, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return inline{}, fmt.Errorf("%w: %s content is blank", ErrScriptNotAvailable, scheme)
	}
	return inline{
		content:   bytes.Clone(content),
		sourceURL: &url.URL{Scheme: scheme, Host: "inline", Path: "/" + helpers.ShortDigest(content)},
	}, nil
}

func (l inline) GetReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.content)), nil
}

func (l inline) GetSourceURL() *url.URL {
	return l.sourceURL
}

// FromString serves script text given as a string, untrimmed.
type FromString struct {
	inline
}

func NewFromString(content string) (*FromString, error) {
	in, err := newInline("string", []byte(content))
	if err != nil {
		return nil, err
	}
	return &FromString{in}, nil
}

func (l *FromString) String() string {
	return fmt.Sprintf("loader.FromString{URL: %s}", l.sourceURL)
}

// FromBytes serves a private copy of a byte slice.
type FromBytes struct {
	inline
}

func NewFromBytes(content []byte) (*FromBytes, error) {
	in, err := newInline("bytes", content)
	if err != nil {
		return nil, err
	}
	return &FromBytes{in}, nil
}

func (l *FromBytes) String() string {
	return fmt.Sprintf("loader.FromBytes{URL: %s, Bytes: %d}", l.sourceURL, len(l.content))
}
