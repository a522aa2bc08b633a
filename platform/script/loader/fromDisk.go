package loader

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// FromDisk implements the Loader interface for a script file. The file is opened on every
// GetReader call, so edits are picked up.
type FromDisk struct {
	path      string
	sourceURL *url.URL
}

// NewFromDisk creates a loader for the file at path, which is made absolute.
func NewFromDisk(path string) (*FromDisk, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path is empty", ErrScriptNotAvailable)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptNotAvailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrScriptNotAvailable, abs)
	}

	return &FromDisk{
		path:      abs,
		sourceURL: &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)},
	}, nil
}

func (l *FromDisk) String() string {
	return fmt.Sprintf("loader.FromDisk{Path: %s}", l.path)
}

// Path returns the absolute path of the script.
func (l *FromDisk) Path() string {
	return l.path
}

func (l *FromDisk) GetReader() (io.ReadCloser, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptNotAvailable, err)
	}
	return f, nil
}

// GetSourceURL returns the source URL of the script.
func (l *FromDisk) GetSourceURL() *url.URL {
	return l.sourceURL
}
