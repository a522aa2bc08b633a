package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterfaceImplementation(t *testing.T) {
	t.Parallel()
	var _ CompiledPlugin = (*sdkCompiledPlugin)(nil)
	var _ PluginInstance = (*sdkPluginInstance)(nil)
}

func TestNilPlugin(t *testing.T) {
	t.Parallel()
	assert.Nil(t, NewCompiledPlugin(nil))
}

func TestNewPluginInstanceConfig(t *testing.T) {
	t.Parallel()
	config := NewPluginInstanceConfig()
	require.NotNil(t, config.ModuleConfig)
}
