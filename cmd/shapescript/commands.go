package main

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robbyt/go-shapescript/platform/params"
)

func (c *EvalCmd) Run(a *app) error {
	ev, release, err := a.evaluator(c.Script)
	if err != nil {
		return err
	}
	defer release()

	script, err := ev.Load()
	if err != nil {
		return err
	}

	ctx, cancel := a.callContext()
	res := ev.Eval(ctx, script, nil, params.ChangesFromMap(c.Param))
	cancel()
	if err := a.print(res); err != nil {
		return err
	}
	if !res.Success {
		return failure(res)
	}
	if len(c.Update) == 0 {
		return nil
	}

	ctx, cancel = a.callContext()
	res = ev.Reeval(ctx, script, nil, params.ChangesFromMap(c.Update))
	cancel()
	if err := a.print(res); err != nil {
		return err
	}
	if !res.Success {
		return failure(res)
	}
	return nil
}

func (c *SchemaCmd) Run(a *app) error {
	ev, release, err := a.evaluator(c.Script)
	if err != nil {
		return err
	}
	defer release()

	script, err := ev.Load()
	if err != nil {
		return err
	}
	ctx, cancel := a.callContext()
	defer cancel()
	res := ev.Eval(ctx, script, nil, nil)
	if !res.Success {
		return failure(res)
	}
	return a.print(res.Schema)
}

func (c *WatchCmd) Run(a *app) error {
	ev, release, err := a.evaluator(c.Script)
	if err != nil {
		return err
	}
	defer release()

	path, err := filepath.Abs(c.Script)
	if err != nil {
		return err
	}
	overrides := params.ChangesFromMap(c.Param)

	render := func() {
		script, err := ev.Load()
		if err != nil {
			a.logger.Warn("failed to read script", "error", err)
			return
		}
		ctx, cancel := a.callContext()
		res := ev.Eval(ctx, script, nil, overrides)
		cancel()
		if err := a.print(res); err != nil {
			a.logger.Warn("failed to print result", "error", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory and filter by name.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	render()
	return watch(a, watcher, path, c.Debounce, render)
}

func watch(a *app, watcher *fsnotify.Watcher, path string, debounce time.Duration, render func()) error {
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", "error", err)
		case <-timer.C:
			a.logger.Debug("script changed", "path", path)
			render()
		}
	}
}
