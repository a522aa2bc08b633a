package options

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/robbyt/go-shapescript/platform/capability"
	"github.com/robbyt/go-shapescript/platform/sandbox"
	"github.com/robbyt/go-shapescript/platform/script/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPlugin is a testify mock implementation of capability.Plugin for testing
type MockPlugin struct {
	mock.Mock
}

func (m *MockPlugin) Exports() []string {
	args := m.Called()
	exports, _ := args.Get(0).([]string)
	return exports
}

func (m *MockPlugin) Call(ctx context.Context, export string, input map[string]any) (any, error) {
	args := m.Called(ctx, export, input)
	return args.Get(0), args.Error(1)
}

type stubDialect struct{}

func (stubDialect) Declare(e capability.Entry) string { return "use " + e.Name }

func stubFactory(sandbox.Reporter) (sandbox.Sandbox, error) { return nil, nil }

func TestWithOptions(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	testHandler := slog.NewTextHandler(os.Stdout, nil)
	plugin := &MockPlugin{}
	testLoader, err := loader.NewFromString("uiParams = []")
	require.NoError(t, err)

	opts := []Option{
		WithLogHandler(testHandler),
		WithMaxSteps(1000),
		WithFaultRemap(map[string]string{"too deep": "Recursion limit reached."}),
		WithSandboxFactory(stubFactory, stubDialect{}),
		WithSchemaGlobal("params"),
		WithPlugin("lattice", plugin),
		WithLoader(testLoader),
	}
	for _, opt := range opts {
		require.NoError(t, opt(cfg))
	}
	require.NoError(t, cfg.Validate())

	require.Equal(t, testHandler, cfg.GetHandler())
	assert.Equal(t, uint64(1000), cfg.GetMaxSteps())
	assert.Equal(t, map[string]string{"too deep": "Recursion limit reached."}, cfg.GetFaultRemap())
	assert.NotNil(t, cfg.GetSandboxFactory())
	assert.Equal(t, stubDialect{}, cfg.GetDialect())
	assert.Equal(t, "params", cfg.GetSchemaGlobal())
	assert.Equal(t, map[string]capability.Plugin{"lattice": plugin}, cfg.GetPlugins())
	assert.Equal(t, testLoader, cfg.GetLoader())

	list := cfg.GetAllowList()
	assert.True(t, list.Allows("lattice"))
	assert.True(t, list.Allows("datasources"))
	assert.Equal(t, "1+lattice", list.Version)
}

func TestWithLogHandlerIgnoresNil(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	before := cfg.GetHandler()
	require.NoError(t, WithLogHandler(nil)(cfg))
	assert.Equal(t, before, cfg.GetHandler())
}

func TestOptionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opt  Option
		err  error
	}{
		{"nil plugin", WithPlugin("x", nil), ErrNilPlugin},
		{"unnamed plugin", WithPlugin("", &MockPlugin{}), capability.ErrEmptyName},
		{"nil factory", WithSandboxFactory(nil, stubDialect{}), ErrNoFactory},
		{"nil dialect", WithSandboxFactory(stubFactory, nil), ErrNoDialect},
		{"empty schema global", WithSchemaGlobal(""), ErrSchemaGlobal},
		{"dotted schema global", WithSchemaGlobal("ui.params"), ErrSchemaGlobal},
		{"leading digit", WithSchemaGlobal("1params"), ErrSchemaGlobal},
		{"empty remap text", WithFaultRemap(map[string]string{"x": ""}), ErrInvalidRemap},
		{
			"duplicate allow-list entry",
			WithAllowList(capability.AllowList{Version: "x", Entries: []capability.Entry{
				{Name: "a", Kind: capability.KindPackage},
				{Name: "a", Kind: capability.KindClass},
			}}),
			capability.ErrDuplicateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.opt(DefaultConfig())
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	t.Run("missing factory", func(t *testing.T) {
		cfg := DefaultConfig()
		require.ErrorIs(t, cfg.Validate(), ErrNoFactory)
	})

	t.Run("plugin shadows a built-in package", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, WithSandboxFactory(stubFactory, stubDialect{})(cfg))
		require.NoError(t, WithPlugin("math", &MockPlugin{})(cfg))
		require.ErrorIs(t, cfg.Validate(), ErrPluginConflict)
	})

	t.Run("valid", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, WithSandboxFactory(stubFactory, stubDialect{})(cfg))
		require.NoError(t, cfg.Validate())
		assert.Equal(t, capability.Default(), cfg.GetAllowList())
	})
}

func TestWithDefaults(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	require.NoError(t, WithDefaults()(cfg))
	assert.NotNil(t, cfg.GetHandler())
	assert.Equal(t, capability.Default(), cfg.GetAllowList())
	assert.Equal(t, DefaultSchemaGlobal, cfg.GetSchemaGlobal())
}
