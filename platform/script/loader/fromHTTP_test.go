package loader

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/robbyt/go-shapescript/platform/script/loader/httpauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromHTTP(t *testing.T) {
	t.Parallel()

	t.Run("valid url", func(t *testing.T) {
		l, err := NewFromHTTP("https://example.com/ball.star")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/ball.star", l.GetSourceURL().String())
		assert.Equal(t, "loader.FromHTTP{URL: https://example.com/ball.star, Auth: None}", l.String())
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := NewFromHTTP("ftp://example.com/ball.star")
		require.ErrorIs(t, err, ErrSchemeUnsupported)
	})

	t.Run("unparsable url", func(t *testing.T) {
		_, err := NewFromHTTP("http://[::1")
		require.Error(t, err)
	})

	t.Run("nil options", func(t *testing.T) {
		l, err := NewFromHTTPWithOptions("http://example.com/x", nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultHTTPOptions().Timeout, l.client.Timeout)
	})
}

func TestFromHTTPGetReader(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ball.star":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
			assert.Equal(t, "1", r.Header.Get("X-Trace"))
			_, _ = w.Write([]byte(multilineScript))
		case "/big.star":
			_, _ = w.Write([]byte(strings.Repeat("#", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	options := func() *HTTPOptions {
		o := DefaultHTTPOptions()
		o.Auth = httpauth.NewBearer("tok")
		o.Headers["X-Trace"] = "1"
		return o
	}

	t.Run("authenticated fetch", func(t *testing.T) {
		l, err := NewFromHTTPWithOptions(server.URL+"/ball.star", options())
		require.NoError(t, err)
		got, err := ReadScript(l)
		require.NoError(t, err)
		assert.Equal(t, multilineScript, got)
	})

	t.Run("missing credentials", func(t *testing.T) {
		l, err := NewFromHTTP(server.URL + "/ball.star")
		require.NoError(t, err)
		_, err = ReadScript(l)
		require.ErrorIs(t, err, ErrScriptNotAvailable)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("not found", func(t *testing.T) {
		l, err := NewFromHTTPWithOptions(server.URL+"/nope.star", options())
		require.NoError(t, err)
		_, err = ReadScript(l)
		require.ErrorIs(t, err, ErrScriptNotAvailable)
	})

	t.Run("size cap", func(t *testing.T) {
		o := options()
		o.MaxBytes = 16
		l, err := NewFromHTTPWithOptions(server.URL+"/big.star", o)
		require.NoError(t, err)
		_, err = ReadScript(l)
		require.ErrorIs(t, err, ErrScriptNotAvailable)

		o.MaxBytes = 64
		l, err = NewFromHTTPWithOptions(server.URL+"/big.star", o)
		require.NoError(t, err)
		got, err := ReadScript(l)
		require.NoError(t, err)
		assert.Len(t, got, 64)
	})

	t.Run("unreachable server", func(t *testing.T) {
		closed := httptest.NewServer(http.NotFoundHandler())
		url := closed.URL
		closed.Close()

		l, err := NewFromHTTP(url + "/ball.star")
		require.NoError(t, err)
		_, err = ReadScript(l)
		require.ErrorIs(t, err, ErrScriptNotAvailable)
	})
}
