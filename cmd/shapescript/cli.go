package main

import (
	"time"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface.
type CLI struct {
	Config  string           `short:"c" type:"path" help:"Config file path (TOML)"`
	EnvFile []string         `name:"env-file" type:"path" help:"Env files to load instead of .env (repeatable)"`
	Version kong.VersionFlag `help:"Show version information"`

	Eval   EvalCmd   `cmd:"" help:"Evaluate a script and print the result as JSON"`
	Schema SchemaCmd `cmd:"" help:"Print the parameter schema a script declares"`
	Watch  WatchCmd  `cmd:"" help:"Evaluate a script again whenever it changes"`
}

// EvalCmd runs a full evaluation and, with --update, one re-evaluation after it.
type EvalCmd struct {
	Script string            `arg:"" help:"Script path or http(s) URL"`
	Param  map[string]string `short:"p" help:"Override name=json for the full evaluation (repeatable)"`
	Update map[string]string `short:"u" help:"Change name=json in a re-evaluation (repeatable)"`
}

// SchemaCmd prints the declared parameters.
type SchemaCmd struct {
	Script string `arg:"" help:"Script path or http(s) URL"`
}

// WatchCmd re-runs the full evaluation on every change to the script.
type WatchCmd struct {
	Script   string            `arg:"" type:"existingfile" help:"Script path"`
	Param    map[string]string `short:"p" help:"Override name=json (repeatable)"`
	Debounce time.Duration     `default:"100ms" help:"Wait this long for writes to settle"`
}

func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
