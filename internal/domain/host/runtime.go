package host

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/builder"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/state"
)

// moduleFile names evaluated user code in stack traces
const moduleFile = "App.js"

// runtime wraps the goja VM: restricted globals, the virtual modules and
// module evaluation
type runtime struct {
	vm      *goja.Runtime
	engine  *state.Engine
	modules map[string]*goja.Object
	require goja.Value
	console func(level protocol.Level, msg string)

	// missing records the last module name require rejected
	missing string
}

func newRuntime(cfg Config, engine *state.Engine, console func(protocol.Level, string)) (*runtime, error) {
	vm := goja.New()
	if cfg.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(cfg.MaxCallStackSize)
	}

	r := &runtime{
		vm:      vm,
		engine:  engine,
		modules: make(map[string]*goja.Object),
		console: console,
	}
	if err := r.setupGlobals(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// setupGlobals strips host access and installs React, console and require
func (r *runtime) setupGlobals(cfg Config) error {
	for _, name := range []string{"process", "module", "exports", "require"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("failed to clear %s: %w", name, err)
		}
	}

	react, err := r.reactModule()
	if err != nil {
		return fmt.Errorf("failed to build react module: %w", err)
	}
	native, err := r.nativeModule()
	if err != nil {
		return fmt.Errorf("failed to build react-native module: %w", err)
	}
	r.modules["react"] = react
	r.modules["react-native"] = native
	r.require = r.vm.ToValue(r.requireFunc)

	if err := r.vm.Set("React", react); err != nil {
		return err
	}

	console := r.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		fn := r.makeConsoleFunc(level, cfg.EnableConsole)
		if err := console.Set(level, fn); err != nil {
			return err
		}
	}
	if err := r.vm.Set("console", console); err != nil {
		return err
	}

	// Timers never fire: a pass is synchronous
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"setTimeout", "setInterval", "clearTimeout", "clearInterval"} {
		if err := r.vm.Set(name, noop); err != nil {
			return err
		}
	}
	return nil
}

// requireFunc resolves exactly the virtual modules and throws on anything else
func (r *runtime) requireFunc(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	if m, ok := r.modules[name]; ok {
		return m
	}
	r.missing = name
	panic(r.vm.NewGoError(fmt.Errorf("%w: %q (only react and react-native are available)", ErrModuleNotFound, name)))
}

func (r *runtime) makeConsoleFunc(level string, enabled bool) func(goja.FunctionCall) goja.Value {
	mapped := protocol.LevelInfo
	switch level {
	case "warn":
		mapped = protocol.LevelWarn
	case "error":
		mapped = protocol.LevelError
	case "debug":
		mapped = protocol.LevelDebug
	}
	return func(call goja.FunctionCall) goja.Value {
		if !enabled || r.console == nil {
			return goja.Undefined()
		}
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.String())
		}
		r.console(mapped, strings.Join(parts, " "))
		return goja.Undefined()
	}
}

// load evaluates CommonJS code and returns its default export as the root
// component, invoked with empty props.
func (r *runtime) load(code string) (*builder.Component, error) {
	r.missing = ""
	prog, err := goja.Compile(moduleFile, "(function(module, exports, require) {\n"+code+"\n})", false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}
	wrapper, err := r.vm.RunProgram(prog)
	if err != nil {
		return nil, r.wrapError(err)
	}
	fn, ok := goja.AssertFunction(wrapper)
	if !ok {
		return nil, errors.New("module wrapper is not a function")
	}

	module := r.vm.NewObject()
	exports := r.vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}
	if _, err := fn(goja.Undefined(), module, exports, r.require); err != nil {
		return nil, r.wrapError(err)
	}

	exported := module.Get("exports")
	app := exported
	if obj, ok := exported.(*goja.Object); ok {
		if def := obj.Get("default"); def != nil && !goja.IsUndefined(def) && !goja.IsNull(def) {
			app = def
		}
	}
	render, ok := goja.AssertFunction(app)
	if !ok {
		return nil, ErrNoDefaultExport
	}

	return &builder.Component{
		Name: functionName(app, "App"),
		Render: func() (any, error) {
			out, err := render(goja.Undefined(), r.vm.NewObject())
			if err != nil {
				return nil, r.wrapError(err)
			}
			return export(out), nil
		},
	}, nil
}

// wrapError maps goja failures onto host errors
func (r *runtime) wrapError(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("%w: %v", ErrInterrupted, interrupted.Value())
	}
	if r.missing != "" {
		return fmt.Errorf("%w: %q", ErrModuleNotFound, r.missing)
	}
	return err
}

func (r *runtime) interrupt(reason string) {
	r.vm.Interrupt(reason)
}

func (r *runtime) clearInterrupt() {
	r.vm.ClearInterrupt()
}

// export converts a goja value for the builder; null and undefined become nil
func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

func functionName(v goja.Value, fallback string) string {
	obj, ok := v.(*goja.Object)
	if !ok {
		return fallback
	}
	name := obj.Get("name")
	if name == nil || goja.IsUndefined(name) || name.String() == "" {
		return fallback
	}
	return name.String()
}
