package shapescript_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robbyt/go-shapescript"
	"github.com/robbyt/go-shapescript/options"
	"github.com/robbyt/go-shapescript/platform/geometry"
	"github.com/robbyt/go-shapescript/platform/params"
	"github.com/robbyt/go-shapescript/platform/script/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ballScript = `uiParams = [
    {"name": "r", "desc": "radius", "type": "double", "default": 2, "rangeMin": 0, "rangeMax": 10, "step": 0.5},
    {"name": "label", "type": "string", "default": "ball", "onChange": "onLabel"},
    {"name": "anchor", "type": "location", "default": {"point": [1, 2, 3]}},
]

def onLabel(args):
    print("label is " + args["label"].value)

def main(args):
    log.info("radius " + str(args["r"].value))
    if args["r"].value > 8:
        log.warn("large radius")
    src = datasources.Sphere(args["anchor"].point, args["r"])
    return Shape(src)
`

func newEvaluator(t *testing.T, opts ...options.Option) *shapescript.Evaluator {
	t.Helper()
	opts = append([]options.Option{options.WithLogHandler(slog.DiscardHandler)}, opts...)
	ev, err := shapescript.NewStarlarkEvaluator(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ev.Reset() })
	return ev
}

func TestStarlarkFullEvaluation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ev := newEvaluator(t)

	bounds := &geometry.Bounds{}
	res := ev.Eval(ctx, ballScript, bounds, nil)
	require.True(t, res.Success, res.ErrorText)
	assert.Equal(t, geometry.NewBounds(-1, 3, 0, 4, 1, 5), *bounds)
	assert.Equal(t, "radius 2.0\n", res.LogText)
	assert.Empty(t, res.ErrorText)
	assert.Equal(t, []string{"r", "label", "anchor"}, res.Schema.Names())

	p, ok := res.Schema.Get("r")
	require.True(t, ok)
	r := p.(*params.Double)
	assert.InDelta(t, 2.0, r.Value, 1e-9)
	assert.InDelta(t, 0.0, r.RangeMin, 1e-9)
	assert.InDelta(t, 10.0, r.RangeMax, 1e-9)
	assert.InDelta(t, 0.5, r.Step, 1e-9)
	assert.Equal(t, "main", r.OnChange())

	t.Run("header count is stable across full evaluations", func(t *testing.T) {
		first := ev.Context().HeaderLines()
		res := ev.Eval(ctx, ballScript, nil, nil)
		require.True(t, res.Success, res.ErrorText)
		assert.Equal(t, first, ev.Context().HeaderLines())
		assert.Equal(t, "radius 2.0\n", res.LogText, "log output is drained between calls")
	})

	t.Run("overrides apply before main", func(t *testing.T) {
		res := ev.Eval(ctx, ballScript, nil, params.Changes{{Name: "r", Value: "1"}})
		require.True(t, res.Success, res.ErrorText)
		assert.Equal(t, geometry.NewBounds(0, 2, 1, 3, 2, 4), *res.Bounds)
	})
}

func TestStarlarkReevaluation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("main reruns with new values and warnings", func(t *testing.T) {
		ev := newEvaluator(t)
		require.True(t, ev.Eval(ctx, ballScript, nil, nil).Success)

		bounds := &geometry.Bounds{}
		res := ev.Reeval(ctx, ballScript, bounds, params.Changes{{Name: "r", Value: "9"}})
		require.True(t, res.Success, res.ErrorText)
		assert.Equal(t, geometry.NewBounds(-8, 10, -7, 11, -6, 12), *bounds)
		assert.Equal(t, "radius 9.0\n", res.LogText)
		assert.Equal(t, `large radius`+"\n"+`Script Line(13):         log.warn("large radius")`, res.ErrorText)
	})

	t.Run("side handler keeps the shape", func(t *testing.T) {
		ev := newEvaluator(t)
		first := ev.Eval(ctx, ballScript, nil, nil)
		require.True(t, first.Success)

		res := ev.Reeval(ctx, ballScript, nil, params.Changes{{Name: "label", Value: `"sphere"`}})
		require.True(t, res.Success, res.ErrorText)
		assert.Equal(t, "label is sphere\n", res.LogText)
		assert.Equal(t, first.Shape, res.Shape)
	})

	t.Run("partial location update keeps the point", func(t *testing.T) {
		ev := newEvaluator(t)
		require.True(t, ev.Eval(ctx, ballScript, nil, nil).Success)

		res := ev.Reeval(ctx, ballScript, nil, params.Changes{{Name: "anchor", Value: `{"normal": [0, 0, 1]}`}})
		require.True(t, res.Success, res.ErrorText)
		assert.Equal(t, geometry.NewBounds(-1, 3, 0, 4, 1, 5), *res.Bounds)

		p, ok := res.Schema.Get("anchor")
		require.True(t, ok)
		loc := p.(*params.Location)
		require.NotNil(t, loc.Point)
		require.NotNil(t, loc.Normal)
		assert.Equal(t, geometry.Vector3{1, 2, 3}, *loc.Point)
		assert.Equal(t, geometry.Vector3{0, 0, 1}, *loc.Normal)
	})

	t.Run("before any full evaluation", func(t *testing.T) {
		ev := newEvaluator(t)
		res := ev.Reeval(ctx, ballScript, nil, params.Changes{{Name: "r", Value: "1"}})
		require.ErrorIs(t, res.Err, shapescript.ErrInvalidState)
		assert.Nil(t, ev.Context())
	})
}

func TestStarlarkFaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("runtime fault is remapped to the script line", func(t *testing.T) {
		ev := newEvaluator(t)
		script := "def main(args):\n    x = 1\n    fail(\"bad radius\")\n"
		res := ev.Eval(ctx, script, nil, nil)
		require.ErrorIs(t, res.Err, shapescript.ErrScriptRuntimeFault)
		assert.Contains(t, res.ErrorText, "bad radius")
		assert.True(t, strings.HasSuffix(res.ErrorText, "\nScript Line(3):     fail(\"bad radius\")"), res.ErrorText)
		assert.NotContains(t, res.ErrorText, "<cmd>")
	})

	t.Run("syntax error leaves no context", func(t *testing.T) {
		ev := newEvaluator(t)
		res := ev.Eval(ctx, "def main(args)\n    return None\n", nil, nil)
		require.ErrorIs(t, res.Err, shapescript.ErrScriptCompileFault)
		assert.True(t, strings.HasPrefix(res.ErrorText, "Script failed to evaluate: "))
		assert.Nil(t, ev.Context())
	})

	t.Run("unlisted module", func(t *testing.T) {
		ev := newEvaluator(t)
		res := ev.Eval(ctx, "load(\"os\", \"os\")\ndef main(args):\n    return None\n", nil, nil)
		require.ErrorIs(t, res.Err, shapescript.ErrScriptCompileFault)
		assert.Contains(t, res.ErrorText, "module not allowed")
	})

	t.Run("step limit reads as a time budget", func(t *testing.T) {
		ev := newEvaluator(t, options.WithMaxSteps(1000))
		script := "def main(args):\n    for i in range(1000000):\n        pass\n"
		res := ev.Eval(ctx, script, nil, nil)
		require.ErrorIs(t, res.Err, shapescript.ErrScriptRuntimeFault)
		assert.True(t, strings.HasPrefix(res.ErrorText, "Execution time exceeded."), res.ErrorText)
	})

	t.Run("failed full evaluation keeps the committed state", func(t *testing.T) {
		ev := newEvaluator(t)
		require.True(t, ev.Eval(ctx, ballScript, nil, nil).Success)
		header := ev.Context().HeaderLines()

		res := ev.Eval(ctx, "def main(args):\n    return 1\n", nil, nil)
		require.ErrorIs(t, res.Err, shapescript.ErrScriptRuntimeFault)
		require.NotNil(t, ev.Context())
		assert.Equal(t, header, ev.Context().HeaderLines())
		assert.Equal(t, 3, ev.Context().Schema().Len())

		again := ev.Reeval(ctx, ballScript, nil, params.Changes{{Name: "r", Value: "3"}})
		require.True(t, again.Success, again.ErrorText)
		assert.Equal(t, geometry.NewBounds(-2, 4, -1, 5, 0, 6), *again.Bounds)
	})
}

type doubler struct{}

func (doubler) Exports() []string { return []string{"double"} }

func (doubler) Call(_ context.Context, _ string, input map[string]any) (any, error) {
	n, _ := input["n"].(float64)
	return n * 2, nil
}

func TestStarlarkPlugin(t *testing.T) {
	t.Parallel()
	ev := newEvaluator(t, options.WithPlugin("calc", doubler{}))
	script := `def main(args):
    r = calc.double(n = 1.5)
    return Shape(datasources.Sphere(Vector3(0, 0, 0), r))
`
	res := ev.Eval(context.Background(), script, nil, nil)
	require.True(t, res.Success, res.ErrorText)
	assert.Equal(t, geometry.NewBounds(-3, 3, -3, 3, -3, 3), *res.Bounds)
	assert.Equal(t, 10, ev.Context().HeaderLines())
}

func TestFromStarlarkFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "ball.star")
	require.NoError(t, os.WriteFile(path, []byte(ballScript), 0o600))

	ev, err := shapescript.FromStarlarkFile(path, options.WithLogHandler(slog.DiscardHandler))
	require.NoError(t, err)
	script, err := ev.Load()
	require.NoError(t, err)
	assert.Equal(t, ballScript, script)

	res := ev.Eval(context.Background(), script, nil, nil)
	require.True(t, res.Success, res.ErrorText)

	_, err = shapescript.FromStarlarkFile(filepath.Join(t.TempDir(), "missing.star"))
	require.Error(t, err)

	bare, err := shapescript.NewStarlarkEvaluator(options.WithLogHandler(slog.DiscardHandler))
	require.NoError(t, err)
	_, err = bare.Load()
	require.ErrorIs(t, err, shapescript.ErrNoLoader)
}

func TestFromStarlarkURL(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(ballScript))
	}))
	t.Cleanup(server.Close)

	ev, err := shapescript.FromStarlarkURL(server.URL+"/ball.star", nil, options.WithLogHandler(slog.DiscardHandler))
	require.NoError(t, err)
	script, err := ev.Load()
	require.NoError(t, err)
	assert.Equal(t, ballScript, script)

	res := ev.Eval(context.Background(), script, nil, nil)
	require.True(t, res.Success, res.ErrorText)

	_, err = shapescript.FromStarlarkURL("file:///ball.star", nil)
	require.ErrorIs(t, err, loader.ErrSchemeUnsupported)
}
