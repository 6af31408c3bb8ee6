package host

import (
	"strings"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/builder"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/state"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/style"
)

// reactModule exports createElement, Fragment and useState. default points
// back at the module so both default and named imports resolve.
func (r *runtime) reactModule() (*goja.Object, error) {
	m := r.vm.NewObject()
	exports := map[string]interface{}{
		"__esModule":    true,
		"createElement": r.createElement,
		"Fragment":      builder.TypeFragment,
		"useState":      r.useState,
	}
	for name, v := range exports {
		if err := m.Set(name, v); err != nil {
			return nil, err
		}
	}
	if err := m.Set("default", m); err != nil {
		return nil, err
	}
	return m, nil
}

// nativeModule exports the supported primitives as element type names plus
// StyleSheet helpers.
func (r *runtime) nativeModule() (*goja.Object, error) {
	m := r.vm.NewObject()
	for _, name := range []string{
		builder.TypeView,
		builder.TypeText,
		builder.TypePressable,
		builder.TypeTouchableOpacity,
		builder.TypeTouchableHighlight,
		builder.TypeSafeAreaView,
		builder.TypeScrollView,
	} {
		if err := m.Set(name, name); err != nil {
			return nil, err
		}
	}

	sheet := r.vm.NewObject()
	if err := sheet.Set("create", func(call goja.FunctionCall) goja.Value {
		return call.Argument(0)
	}); err != nil {
		return nil, err
	}
	if err := sheet.Set("flatten", func(call goja.FunctionCall) goja.Value {
		return r.vm.ToValue(style.Flatten(export(call.Argument(0))))
	}); err != nil {
		return nil, err
	}
	if err := m.Set("StyleSheet", sheet); err != nil {
		return nil, err
	}

	platform := r.vm.NewObject()
	if err := platform.Set("OS", "sandbox"); err != nil {
		return nil, err
	}
	if err := platform.Set("select", func(call goja.FunctionCall) goja.Value {
		obj, ok := call.Argument(0).(*goja.Object)
		if !ok {
			return goja.Undefined()
		}
		return obj.Get("default")
	}); err != nil {
		return nil, err
	}
	if err := m.Set("Platform", platform); err != nil {
		return nil, err
	}

	if err := m.Set("__esModule", true); err != nil {
		return nil, err
	}
	return m, nil
}

// createElement(type, props, ...children) builds a virtual element. String
// types are intrinsic; functions become components rendered later by the
// builder with the props they were created with.
func (r *runtime) createElement(call goja.FunctionCall) goja.Value {
	typ := call.Argument(0)
	props, _ := call.Argument(1).(*goja.Object)
	children := call.Arguments
	if len(children) > 2 {
		children = children[2:]
	} else {
		children = nil
	}

	el := &builder.Element{}
	if props != nil {
		if key := props.Get("key"); key != nil && !goja.IsUndefined(key) && !goja.IsNull(key) {
			el.Key = key.String()
		}
	}

	if fn, ok := goja.AssertFunction(typ); ok {
		propsObj := r.componentProps(props, children)
		el.Component = &builder.Component{
			Name: functionName(typ, "Anonymous"),
			Render: func() (any, error) {
				out, err := fn(goja.Undefined(), propsObj)
				if err != nil {
					return nil, r.wrapError(err)
				}
				return export(out), nil
			},
		}
		return r.vm.ToValue(el)
	}

	if goja.IsUndefined(typ) || goja.IsNull(typ) {
		panic(r.vm.NewTypeError("createElement: element type is %s; check your imports", typ.String()))
	}
	el.Type = typ.String()
	el.Props = make(map[string]any)

	if props != nil {
		for _, k := range props.Keys() {
			if k == "key" || k == "children" {
				continue
			}
			v := props.Get(k)
			if fn, ok := goja.AssertFunction(v); ok && strings.HasPrefix(k, "on") {
				el.Props[k] = r.handler(fn)
				continue
			}
			el.Props[k] = export(v)
		}
		if len(children) == 0 {
			if c := props.Get("children"); c != nil && !goja.IsUndefined(c) {
				children = []goja.Value{c}
			}
		}
	}

	el.Children = make([]any, 0, len(children))
	for _, c := range children {
		el.Children = append(el.Children, export(c))
	}
	return r.vm.ToValue(el)
}

// componentProps copies props for a function component and attaches children
// the way JSX does: one child as-is, several as an array.
func (r *runtime) componentProps(props *goja.Object, children []goja.Value) *goja.Object {
	out := r.vm.NewObject()
	if props != nil {
		for _, k := range props.Keys() {
			if k == "key" {
				continue
			}
			_ = out.Set(k, props.Get(k))
		}
	}
	switch len(children) {
	case 0:
	case 1:
		_ = out.Set("children", children[0])
	default:
		items := make([]interface{}, len(children))
		for i, c := range children {
			items[i] = c
		}
		_ = out.Set("children", r.vm.NewArray(items...))
	}
	return out
}

// handler wraps a JS callback as a host-side press handler
func (r *runtime) handler(fn goja.Callable) builder.Handler {
	return func() error {
		event := r.vm.NewObject()
		_ = event.Set("type", "press")
		_ = event.Set("nativeEvent", r.vm.NewObject())
		if _, err := fn(goja.Undefined(), event); err != nil {
			return r.wrapError(err)
		}
		return nil
	}
}

// useState(initial) returns [value, setter]. A function initial value runs
// once; a function passed to the setter receives the previous value.
func (r *runtime) useState(call goja.FunctionCall) goja.Value {
	initial := call.Argument(0)
	var seed any = initial
	if fn, ok := goja.AssertFunction(initial); ok {
		seed = state.Lazy(func() any {
			v, err := fn(goja.Undefined())
			if err != nil {
				panic(err)
			}
			return v
		})
	}

	value, set, err := r.engine.Acquire(seed)
	if err != nil {
		panic(r.vm.NewGoError(err))
	}

	setter := func(c goja.FunctionCall) goja.Value {
		next := c.Argument(0)
		if fn, ok := goja.AssertFunction(next); ok {
			set(state.Update(func(prev any) any {
				v, err := fn(goja.Undefined(), toValue(r.vm, prev))
				if err != nil {
					panic(err)
				}
				return v
			}))
			return goja.Undefined()
		}
		set(next)
		return goja.Undefined()
	}
	return r.vm.NewArray(toValue(r.vm, value), setter)
}

// sameValue compares cells with SameValue semantics
func sameValue(a, b any) bool {
	va, aok := a.(goja.Value)
	vb, bok := b.(goja.Value)
	if aok && bok {
		return va.SameAs(vb)
	}
	return false
}

func toValue(vm *goja.Runtime, v any) goja.Value {
	if gv, ok := v.(goja.Value); ok {
		return gv
	}
	return vm.ToValue(v)
}
