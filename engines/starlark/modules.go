package starlark

import (
	"context"
	"fmt"

	"github.com/robbyt/go-shapescript/engines/starlark/internal"
	"github.com/robbyt/go-shapescript/platform/capability"
	"github.com/robbyt/go-shapescript/platform/geometry"
	"github.com/robbyt/go-shapescript/platform/sandbox"
	starlarkJSON "go.starlark.net/lib/json"
	starlarkMath "go.starlark.net/lib/math"
	starlarkTime "go.starlark.net/lib/time"
	starlarkLib "go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Thread-local keys.
const (
	localReporter = "shapescript.reporter"
	localContext  = "shapescript.context"
)

type builtinFunc = func(*starlarkLib.Thread, *starlarkLib.Builtin, starlarkLib.Tuple, []starlarkLib.Tuple) (starlarkLib.Value, error)

// capabilityModules returns everything a script may load, keyed by allow-list name.
func capabilityModules(plugins map[string]capability.Plugin) map[string]starlarkLib.Value {
	mods := map[string]starlarkLib.Value{
		"math": starlarkMath.Module,
		"json": starlarkJSON.Module,
		"time": starlarkTime.Module,
		"datasources": newModule("datasources", map[string]builtinFunc{
			"Sphere":       sphere,
			"Box":          box,
			"Cylinder":     cylinder,
			"Union":        composite(geometry.OpUnion),
			"Intersection": composite(geometry.OpIntersection),
			"Subtraction":  subtraction,
		}),
		"transforms": newModule("transforms", map[string]builtinFunc{
			"Translation": translation,
			"Scale":       scale,
		}),
		"log": newModule("log", map[string]builtinFunc{
			"warn": logWarn,
			"info": logInfo,
		}),
		"Shape":   starlarkLib.NewBuiltin("Shape", newShape),
		"Bounds":  starlarkLib.NewBuiltin("Bounds", newBounds),
		"Vector3": starlarkLib.NewBuiltin("Vector3", newVector3),
	}
	for name, p := range plugins {
		mods[name] = pluginModule(name, p)
	}
	return mods
}

func newModule(name string, fns map[string]builtinFunc) *starlarkstruct.Module {
	members := make(starlarkLib.StringDict, len(fns))
	for fn, impl := range fns {
		members[fn] = starlarkLib.NewBuiltin(name+"."+fn, impl)
	}
	return &starlarkstruct.Module{Name: name, Members: members}
}

func sphere(
	_ *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var center vectorArg
	var radius floatArg
	if err := starlarkLib.UnpackArgs(b.Name(), args, kwargs, "center", &center, "radius", &radius); err != nil {
		return nil, err
	}
	return &sourceValue{src: &geometry.Sphere{Center: geometry.Vector3(center), Radius: float64(radius)}}, nil
}

func box(
	_ *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var center, size vectorArg
	if err := starlarkLib.UnpackArgs(b.Name(), args, kwargs, "center", &center, "size", &size); err != nil {
		return nil, err
	}
	return &sourceValue{src: &geometry.Box{Center: geometry.Vector3(center), Size: geometry.Vector3(size)}}, nil
}

func cylinder(
	_ *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var v0, v1 vectorArg
	var radius floatArg
	if err := starlarkLib.UnpackArgs(b.Name(), args, kwargs, "v0", &v0, "v1", &v1, "radius", &radius); err != nil {
		return nil, err
	}
	return &sourceValue{src: &geometry.Cylinder{
		V0:     geometry.Vector3(v0),
		V1:     geometry.Vector3(v1),
		Radius: float64(radius),
	}}, nil
}

func composite(op geometry.Operation) builtinFunc {
	return func(
		_ *starlarkLib.Thread,
		b *starlarkLib.Builtin,
		args starlarkLib.Tuple,
		kwargs []starlarkLib.Tuple,
	) (starlarkLib.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}
		children := make([]geometry.Source, 0, len(args))
		for i, arg := range args {
			var src sourceArg
			if err := src.Unpack(arg); err != nil {
				return nil, fmt.Errorf("%s: for parameter %d: %w", b.Name(), i+1, err)
			}
			children = append(children, src.src)
		}
		c, err := geometry.NewComposite(op, children...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return &sourceValue{src: c}, nil
	}
}

func subtraction(
	_ *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var a, sub sourceArg
	if err := starlarkLib.UnpackArgs(b.Name(), args, kwargs, "a", &a, "b", &sub); err != nil {
		return nil, err
	}
	c, err := geometry.NewComposite(geometry.OpSubtraction, a.src, sub.src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return &sourceValue{src: c}, nil
}

func translation(
	_ *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var src sourceArg
	var offset vectorArg
	if err := starlarkLib.UnpackArgs(b.Name(), args, kwargs, "source", &src, "offset", &offset); err != nil {
		return nil, err
	}
	return &sourceValue{src: &geometry.Translation{Child: src.src, Offset: geometry.Vector3(offset)}}, nil
}

func scale(
	_ *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var src sourceArg
	var factor scaleArg
	if err := starlarkLib.UnpackArgs(b.Name(), args, kwargs, "source", &src, "factor", &factor); err != nil {
		return nil, err
	}
	return &sourceValue{src: &geometry.Scaling{Child: src.src, Factor: geometry.Vector3(factor)}}, nil
}

func newShape(
	_ *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var src sourceArg
	var bounds boundsArg
	if err := starlarkLib.UnpackArgs(b.Name(), args, kwargs, "source", &src, "bounds?", &bounds); err != nil {
		return nil, err
	}
	return &shapeValue{shape: geometry.NewShape(src.src, bounds.b)}, nil
}

func newBounds(
	_ *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var xmin, xmax, ymin, ymax, zmin, zmax floatArg
	if err := starlarkLib.UnpackArgs(b.Name(), args, kwargs,
		"xmin", &xmin, "xmax", &xmax,
		"ymin", &ymin, "ymax", &ymax,
		"zmin", &zmin, "zmax", &zmax,
	); err != nil {
		return nil, err
	}
	return &boundsValue{b: geometry.NewBounds(
		float64(xmin), float64(xmax),
		float64(ymin), float64(ymax),
		float64(zmin), float64(zmax),
	)}, nil
}

func newVector3(
	_ *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var x, y, z floatArg
	if err := starlarkLib.UnpackArgs(b.Name(), args, kwargs, "x", &x, "y", &y, "z", &z); err != nil {
		return nil, err
	}
	return vectorTuple(geometry.Vector3{float64(x), float64(y), float64(z)}), nil
}

// logWarn records a non-fatal fault report at the calling line.
func logWarn(
	thread *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var msg string
	if err := starlarkLib.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &msg); err != nil {
		return nil, err
	}
	if r := threadReporter(thread); r != nil {
		r.Report(sandbox.NewFault(msg, scriptLine(thread.CallStack())))
	}
	return starlarkLib.None, nil
}

func logInfo(
	thread *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var msg string
	if err := starlarkLib.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &msg); err != nil {
		return nil, err
	}
	if r := threadReporter(thread); r != nil {
		r.Print(msg)
	}
	return starlarkLib.None, nil
}

func pluginModule(name string, p capability.Plugin) *starlarkstruct.Module {
	fns := make(map[string]builtinFunc, len(p.Exports()))
	for _, export := range p.Exports() {
		fns[export] = pluginCall(p, export)
	}
	return newModule(name, fns)
}

func pluginCall(p capability.Plugin, export string) builtinFunc {
	return func(
		thread *starlarkLib.Thread,
		b *starlarkLib.Builtin,
		args starlarkLib.Tuple,
		kwargs []starlarkLib.Tuple,
	) (starlarkLib.Value, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("%s: takes keyword arguments only", b.Name())
		}
		input := make(map[string]any, len(kwargs))
		for _, kv := range kwargs {
			key, ok := kv[0].(starlarkLib.String)
			if !ok {
				return nil, fmt.Errorf("%s: keyword %s is not a string", b.Name(), kv[0])
			}
			v, err := internal.ToGo(kv[1])
			if err != nil {
				return nil, fmt.Errorf("%s: for parameter %s: %w", b.Name(), key, err)
			}
			input[string(key)] = v
		}

		out, err := p.Call(threadContext(thread), export, input)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return internal.ToStarlark(out)
	}
}

func threadReporter(thread *starlarkLib.Thread) sandbox.Reporter {
	r, _ := thread.Local(localReporter).(sandbox.Reporter)
	return r
}

func threadContext(thread *starlarkLib.Thread) context.Context {
	if ctx, ok := thread.Local(localContext).(context.Context); ok {
		return ctx
	}
	return context.Background()
}

// scriptLine finds the innermost frame executing script text.
func scriptLine(stack starlarkLib.CallStack) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].Pos.Filename() == sandbox.ScriptName {
			return int(stack[i].Pos.Line)
		}
	}
	return 0
}
