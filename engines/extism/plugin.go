// Package extism hosts WASM plugins that scripts can call as allow-listed capability packages.
// Each plugin is compiled once and instantiated per call; arguments and results cross the
// boundary as JSON.
package extism

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	extismSDK "github.com/extism/go-sdk"
	"github.com/robbyt/go-shapescript/engines/extism/adapters"
	"github.com/robbyt/go-shapescript/internal/helpers"
	"github.com/robbyt/go-shapescript/platform/capability"
	"github.com/tetratelabs/wazero"
)

var (
	ErrContentNil     = errors.New("wasm content is empty")
	ErrCompileFailed  = errors.New("failed to compile wasm plugin")
	ErrExportNotFound = errors.New("plugin export not found")
	ErrCallFailed     = errors.New("plugin call failed")
)

// Settings controls how a plugin is compiled.
type Settings struct {
	EnableWASI bool
	// MemoryLimitPages caps linear memory in 64KiB pages. Zero keeps the wazero default.
	MemoryLimitPages uint32
	HostFunctions    []extismSDK.HostFunction
}

// DefaultSettings enables WASI and keeps the default memory limit.
func DefaultSettings() Settings {
	return Settings{EnableWASI: true}
}

func (s Settings) runtimeConfig() wazero.RuntimeConfig {
	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if s.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(s.MemoryLimitPages)
	}
	return rc
}

// Plugin is a compiled WASM module exposing a fixed set of exports.
type Plugin struct {
	name     string
	exports  []string
	compiled adapters.CompiledPlugin
	logger   *slog.Logger
}

var _ capability.Plugin = (*Plugin)(nil)

// New wraps an already compiled plugin.
func New(handler slog.Handler, name string, exports []string, compiled adapters.CompiledPlugin) (*Plugin, error) {
	if compiled == nil {
		return nil, fmt.Errorf("plugin %q: %w", name, ErrContentNil)
	}
	if len(exports) == 0 {
		return nil, fmt.Errorf("plugin %q declares no exports", name)
	}
	_, logger := helpers.SetupLogger(handler, "extism", "Plugin")
	return &Plugin{
		name:     name,
		exports:  slices.Clone(exports),
		compiled: compiled,
		logger:   logger.With("plugin", name),
	}, nil
}

// Compile builds a plugin from raw WASM bytes.
func Compile(
	ctx context.Context,
	handler slog.Handler,
	name string,
	wasm []byte,
	exports []string,
	settings Settings,
) (*Plugin, error) {
	if len(wasm) == 0 {
		return nil, fmt.Errorf("plugin %q: %w", name, ErrContentNil)
	}

	manifest := extismSDK.Manifest{
		Wasm: []extismSDK.Wasm{
			extismSDK.WasmData{Data: wasm},
		},
	}
	config := extismSDK.PluginConfig{
		EnableWasi:    settings.EnableWASI,
		RuntimeConfig: settings.runtimeConfig(),
	}

	compiled, err := extismSDK.NewCompiledPlugin(ctx, manifest, config, settings.HostFunctions)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrCompileFailed, name, err)
	}
	return New(handler, name, exports, adapters.NewCompiledPlugin(compiled))
}

// Load compiles the WASM file at path.
func Load(
	ctx context.Context,
	handler slog.Handler,
	name string,
	path string,
	exports []string,
	settings Settings,
) (*Plugin, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", name, err)
	}
	return Compile(ctx, handler, name, wasm, exports, settings)
}

func (p *Plugin) String() string {
	return "extism.Plugin{" + p.name + "}"
}

// Name is the allow-list name of the plugin.
func (p *Plugin) Name() string {
	return p.name
}

// Exports lists the functions scripts may call.
func (p *Plugin) Exports() []string {
	return slices.Clone(p.exports)
}

// Call runs export in a fresh instance with input encoded as JSON. JSON output is decoded with
// integers kept as int64; any other output comes back as a string.
func (p *Plugin) Call(ctx context.Context, export string, input map[string]any) (any, error) {
	logger := p.logger.WithGroup("Call").With("export", export)
	if !slices.Contains(p.exports, export) {
		return nil, fmt.Errorf("%w: %s.%s", ErrExportNotFound, p.name, export)
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}

	instance, err := p.compiled.Instance(ctx, adapters.NewPluginInstanceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin instance: %w", err)
	}
	defer func() {
		if err := instance.Close(ctx); err != nil {
			logger.WarnContext(ctx, "failed to close plugin instance", "error", err)
		}
	}()

	if !instance.FunctionExists(export) {
		return nil, fmt.Errorf("%w: %s.%s", ErrExportNotFound, p.name, export)
	}

	start := time.Now()
	exit, output, err := instance.CallWithContext(ctx, export, payload)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCallFailed, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ErrCallFailed, err)
	}
	if exit != 0 {
		return nil, fmt.Errorf("%w: exit code %d", ErrCallFailed, exit)
	}

	result := decodeOutput(output)
	logger.DebugContext(ctx, "call complete", "elapsed", elapsed)
	return result, nil
}

// Close releases the compiled module.
func (p *Plugin) Close(ctx context.Context) error {
	return p.compiled.Close(ctx)
}

func decodeOutput(output []byte) any {
	if len(output) == 0 {
		return nil
	}
	var result any
	d := json.NewDecoder(bytes.NewReader(output))
	d.UseNumber()
	if err := d.Decode(&result); err != nil {
		return string(output)
	}
	return fixNumbers(result)
}

// fixNumbers replaces json.Number with int64 where the number is integral, float64 otherwise.
func fixNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		for k, item := range val {
			val[k] = fixNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = fixNumbers(item)
		}
		return val
	}
	return v
}
