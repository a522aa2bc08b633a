package helpers

import (
	"log/slog"
	"os"
)

// SetupLogger returns the handler a component should keep plus a logger grouped under groupName.
// A nil handler falls back to a text handler on stdout grouped under component, and the fallback
// is announced with a warning.
func SetupLogger(handler slog.Handler, component string, groupName string) (slog.Handler, *slog.Logger) {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, nil).WithGroup(component)
		slog.New(handler).Warn("Handler is nil, using the default logger configuration.")
	}

	if groupName == "" {
		return handler, slog.New(handler)
	}
	return handler, slog.New(handler.WithGroup(groupName))
}
