// Command shapescript evaluates procedural-geometry scripts from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/robbyt/go-shapescript"
	"github.com/robbyt/go-shapescript/internal/config"
	"github.com/robbyt/go-shapescript/platform/script/loader"
)

// Build-time variables (set via ldflags)
var version = "dev"

var errEvalFailed = errors.New("evaluation failed")

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("shapescript"),
		kong.Description("Evaluate parametric shape scripts in a sandbox."),
		kong.UsageOnError(),
		kongVars(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a, err := newApp(ctx, cli.Config, cli.EnvFile, os.Stdout, os.Stderr)
	if err == nil {
		err = kctx.Run(a)
	}
	stop()
	kctx.FatalIfErrorf(err)
}

// app is what every command runs with.
type app struct {
	ctx     context.Context
	cfg     *config.Config
	handler slog.Handler
	logger  *slog.Logger
	out     io.Writer
}

func newApp(ctx context.Context, path string, envFiles []string, out, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(path, envFiles...)
	if err != nil {
		return nil, err
	}
	handler, err := cfg.Handler(logOut)
	if err != nil {
		return nil, err
	}
	return &app{
		ctx:     ctx,
		cfg:     cfg,
		handler: handler,
		logger:  slog.New(handler.WithGroup("cli")),
		out:     out,
	}, nil
}

// evaluator builds a Starlark evaluator for the script at source, a file path or an http(s) URL.
// The returned function releases it together with any plugins.
func (a *app) evaluator(source string) (*shapescript.Evaluator, func(), error) {
	opts, closePlugins, err := a.cfg.Options(a.ctx, a.handler)
	if err != nil {
		return nil, nil, err
	}

	var ev *shapescript.Evaluator
	if isURL(source) {
		var fetch *loader.HTTPOptions
		if fetch, err = a.cfg.FetchOptions(); err == nil {
			ev, err = shapescript.FromStarlarkURL(source, fetch, opts...)
		}
	} else {
		ev, err = shapescript.FromStarlarkFile(source, opts...)
	}
	if err != nil {
		_ = closePlugins(a.ctx)
		return nil, nil, err
	}
	release := func() {
		if err := ev.Reset(); err != nil {
			a.logger.Warn("failed to reset evaluator", "error", err)
		}
		if err := closePlugins(context.Background()); err != nil {
			a.logger.Warn("failed to close plugins", "error", err)
		}
	}
	return ev, release, nil
}

// callContext bounds a single evaluation call by the configured timeout.
func (a *app) callContext() (context.Context, context.CancelFunc) {
	timeout, _ := a.cfg.Timeout()
	if timeout <= 0 {
		return context.WithCancel(a.ctx)
	}
	return context.WithTimeout(a.ctx, timeout)
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func failure(res *shapescript.Result) error {
	return fmt.Errorf("%w after %s: %s", errEvalFailed, res.Elapsed.Round(time.Microsecond), res.ErrorText)
}
