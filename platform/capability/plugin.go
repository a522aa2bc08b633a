package capability

import "context"

// Plugin is a host extension reachable from scripts as an allow-listed package. Each export is
// called with keyword arguments converted to plain Go values.
type Plugin interface {
	Exports() []string
	Call(ctx context.Context, export string, input map[string]any) (any, error)
}
