// Package httpauth applies credentials to script fetch requests.
package httpauth

import (
	"maps"
	"net/http"
	"strings"
)

// Authenticator adds credentials to an outgoing request in place.
type Authenticator interface {
	Authenticate(req *http.Request) error
	Name() string
}

// None sends requests without credentials.
type None struct{}

func (None) Authenticate(*http.Request) error { return nil }

func (None) Name() string { return "None" }

// Basic implements RFC 7617 basic authentication. An empty username sends nothing.
type Basic struct {
	Username string
	Password string
}

func NewBasic(username, password string) *Basic {
	return &Basic{Username: username, Password: password}
}

func (b *Basic) Authenticate(req *http.Request) error {
	if b.Username != "" {
		req.SetBasicAuth(b.Username, b.Password)
	}
	return nil
}

func (b *Basic) Name() string { return "Basic" }

// Header sets a fixed set of headers, such as an API key.
type Header struct {
	Headers map[string]string
}

func NewHeader(headers map[string]string) *Header {
	return &Header{Headers: maps.Clone(headers)}
}

// NewBearer sends token in an Authorization header.
func NewBearer(token string) *Header {
	return &Header{Headers: map[string]string{"Authorization": "Bearer " + strings.TrimSpace(token)}}
}

func (h *Header) Authenticate(req *http.Request) error {
	for key, value := range h.Headers {
		req.Header.Set(key, value)
	}
	return nil
}

func (h *Header) Name() string { return "Header" }
