package loader

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/robbyt/go-shapescript/platform/script/loader/httpauth"
)

var ErrSchemeUnsupported = errors.New("unsupported URL scheme")

const userAgent = "shapescript/http-loader"

// HTTPOptions configures a FromHTTP loader.
type HTTPOptions struct {
	// Timeout bounds each request. Zero means no limit.
	Timeout time.Duration
	Auth    httpauth.Authenticator
	// Headers are added to every request before authentication runs.
	Headers map[string]string
	// MaxBytes caps the script size. Zero means no limit.
	MaxBytes int64
}

// DefaultHTTPOptions returns a 30 second timeout, no credentials and a 1MiB size cap.
func DefaultHTTPOptions() *HTTPOptions {
	return &HTTPOptions{
		Timeout:  30 * time.Second,
		Auth:     httpauth.None{},
		Headers:  make(map[string]string),
		MaxBytes: 1 << 20,
	}
}

// FromHTTP implements the Loader interface for http and https URLs. Every GetReader call fetches
// the script again.
type FromHTTP struct {
	sourceURL *url.URL
	options   *HTTPOptions
	client    *http.Client
}

// NewFromHTTP creates a loader for rawURL with DefaultHTTPOptions.
func NewFromHTTP(rawURL string) (*FromHTTP, error) {
	return NewFromHTTPWithOptions(rawURL, DefaultHTTPOptions())
}

// NewFromHTTPWithOptions creates a loader for rawURL. A nil options value uses the defaults.
func NewFromHTTPWithOptions(rawURL string, options *HTTPOptions) (*FromHTTP, error) {
	sourceURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse URL: %w", err)
	}
	if sourceURL.Scheme != "http" && sourceURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrSchemeUnsupported, rawURL)
	}

	if options == nil {
		options = DefaultHTTPOptions()
	}
	if options.Auth == nil {
		options.Auth = httpauth.None{}
	}

	return &FromHTTP{
		sourceURL: sourceURL,
		options:   options,
		client:    &http.Client{Timeout: options.Timeout},
	}, nil
}

func (l *FromHTTP) String() string {
	return fmt.Sprintf("loader.FromHTTP{URL: %s, Auth: %s}", l.sourceURL, l.options.Auth.Name())
}

func (l *FromHTTP) GetReader() (io.ReadCloser, error) {
	req, err := http.NewRequest(http.MethodGet, l.sourceURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range l.options.Headers {
		req.Header.Set(key, value)
	}
	if err := l.options.Auth.Authenticate(req); err != nil {
		return nil, fmt.Errorf("failed to authenticate request: %w", err)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptNotAvailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %s", ErrScriptNotAvailable, resp.Status)
	}
	if l.options.MaxBytes <= 0 {
		return resp.Body, nil
	}
	return &limitedBody{
		Reader: io.LimitReader(resp.Body, l.options.MaxBytes+1),
		Closer: resp.Body,
		limit:  l.options.MaxBytes,
	}, nil
}

// GetSourceURL returns the URL the script is fetched from.
func (l *FromHTTP) GetSourceURL() *url.URL {
	return l.sourceURL
}

// limitedBody fails the read once more than limit bytes arrive.
type limitedBody struct {
	io.Reader
	io.Closer
	limit int64
	read  int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.Reader.Read(p)
	b.read += int64(n)
	if b.read > b.limit {
		return n, fmt.Errorf("%w: larger than %d bytes", ErrScriptNotAvailable, b.limit)
	}
	return n, err
}
