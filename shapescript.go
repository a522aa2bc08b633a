// Package shapescript evaluates procedural-geometry scripts in a sandbox. A script declares a
// parameter schema and a main function returning a shape; the evaluator runs it once in full and
// then re-runs only the handlers bound to parameters that change.
package shapescript

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/robbyt/go-shapescript/engines/starlark"
	"github.com/robbyt/go-shapescript/internal/helpers"
	"github.com/robbyt/go-shapescript/options"
	"github.com/robbyt/go-shapescript/platform/capability"
	"github.com/robbyt/go-shapescript/platform/diagnostics"
	"github.com/robbyt/go-shapescript/platform/sandbox"
	"github.com/robbyt/go-shapescript/platform/script/loader"
)

// ErrNoLoader is returned by Load when the evaluator was built without a script loader.
var ErrNoLoader = errors.New("no script loader configured")

// NewEvaluator creates an evaluator for the sandbox factory set with options.WithSandboxFactory.
func NewEvaluator(opts ...options.Option) (*Evaluator, error) {
	cfg, err := configure(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return createEvaluator(cfg)
}

// NewStarlarkEvaluator creates an evaluator for Starlark scripts.
func NewStarlarkEvaluator(opts ...options.Option) (*Evaluator, error) {
	cfg, err := configure(opts)
	if err != nil {
		return nil, err
	}

	factory := starlark.NewFactory(starlark.Config{
		Handler:   cfg.GetHandler(),
		AllowList: cfg.GetAllowList(),
		MaxSteps:  cfg.GetMaxSteps(),
		Plugins:   cfg.GetPlugins(),
	})
	if err := options.WithSandboxFactory(factory, starlark.Dialect{})(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return createEvaluator(cfg)
}

// FromStarlarkFile creates a Starlark evaluator that loads its script from path.
func FromStarlarkFile(path string, opts ...options.Option) (*Evaluator, error) {
	l, err := loader.NewFromDisk(path)
	if err != nil {
		return nil, err
	}
	return NewStarlarkEvaluator(append([]options.Option{options.WithLoader(l)}, opts...)...)
}

// FromStarlarkURL creates a Starlark evaluator that fetches its script from an http or https URL.
// A nil httpOpts uses loader.DefaultHTTPOptions.
func FromStarlarkURL(rawURL string, httpOpts *loader.HTTPOptions, opts ...options.Option) (*Evaluator, error) {
	l, err := loader.NewFromHTTPWithOptions(rawURL, httpOpts)
	if err != nil {
		return nil, err
	}
	return NewStarlarkEvaluator(append([]options.Option{options.WithLoader(l)}, opts...)...)
}

// FromStarlarkString creates a Starlark evaluator whose script is content.
func FromStarlarkString(content string, opts ...options.Option) (*Evaluator, error) {
	l, err := loader.NewFromString(content)
	if err != nil {
		return nil, err
	}
	return NewStarlarkEvaluator(append([]options.Option{options.WithLoader(l)}, opts...)...)
}

func configure(opts []options.Option) (*options.Config, error) {
	cfg := options.DefaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	if err := options.WithDefaults()(cfg); err != nil {
		return nil, fmt.Errorf("error applying defaults: %w", err)
	}
	return cfg, nil
}

func createEvaluator(cfg *options.Config) (*Evaluator, error) {
	injector, err := capability.NewInjector(cfg.GetAllowList(), cfg.GetDialect())
	if err != nil {
		return nil, err
	}
	handler, logger := helpers.SetupLogger(cfg.GetHandler(), "shapescript", "Evaluator")
	return &Evaluator{
		handler:      handler,
		logger:       logger,
		factory:      cfg.GetSandboxFactory(),
		injector:     injector,
		translator:   diagnostics.NewTranslator(cfg.GetFaultRemap()),
		schemaGlobal: cfg.GetSchemaGlobal(),
		loader:       cfg.GetLoader(),
	}, nil
}

// Evaluator runs scripts against a persistent ExecutionContext. It is not safe for concurrent
// use; callers serialize access, typically one evaluator per job.
type Evaluator struct {
	handler      slog.Handler
	logger       *slog.Logger
	factory      sandbox.Factory
	injector     *capability.Injector
	translator   *diagnostics.Translator
	schemaGlobal string
	loader       loader.Loader
	ectx         *ExecutionContext
}

func (e *Evaluator) String() string {
	return fmt.Sprintf("shapescript.Evaluator{AllowList: %s, Active: %t}",
		e.injector.AllowList().Version, e.ectx != nil)
}

// Load reads the script from the configured loader. File loaders read the file again each time.
func (e *Evaluator) Load() (string, error) {
	if e.loader == nil {
		return "", ErrNoLoader
	}
	return loader.ReadScript(e.loader)
}

// Context returns the current execution context, nil before the first successful full
// evaluation or after Reset.
func (e *Evaluator) Context() *ExecutionContext {
	return e.ectx
}

// Reset tears down the execution context. A full evaluation is required before the next
// re-evaluation.
func (e *Evaluator) Reset() error {
	if e.ectx == nil {
		return nil
	}
	ec := e.ectx
	e.ectx = nil
	return ec.close()
}
