package state

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrNoInstance is returned when a cell is acquired outside of a component render
var ErrNoInstance = errors.New("state acquired outside of a component")

// Lazy is an initial value computed only when the cell is first created
type Lazy func() any

// Update computes the next value of a cell from its previous value
type Update func(prev any) any

// Setter stores a literal value or applies an Update
type Setter func(next any)

// Options configures an Engine
type Options struct {
	// OnUpdate is invoked after a setter changed a stored value
	OnUpdate func()
	// Debug enables the cell-count check between passes
	Debug bool
	// OnWarn receives debug diagnostics
	OnWarn func(msg string)
	// Equal decides whether a set is a no-op. Defaults to identity of
	// comparable values.
	Equal func(a, b any) bool
}

type instance struct {
	key       string
	cells     []any
	cursor    int
	lastCount int
	released  bool
}

// Engine owns the cells of every mounted component instance
type Engine struct {
	mu        sync.Mutex
	instances map[string]*instance // Protected by mu
	seen      map[string]struct{}  // Protected by mu
	stack     []*instance          // Protected by mu
	opts      Options
}

// New creates an empty engine
func New(opts Options) *Engine {
	if opts.Equal == nil {
		opts.Equal = same
	}
	return &Engine{
		instances: make(map[string]*instance),
		seen:      make(map[string]struct{}),
		opts:      opts,
	}
}

// BeginPass starts an execution pass
func (e *Engine) BeginPass() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = make(map[string]struct{})
	e.stack = e.stack[:0]
}

// EndPass completes a pass and releases every instance that was not
// rendered during it. It returns the number of released instances.
func (e *Engine) EndPass() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	released := 0
	for key, inst := range e.instances {
		if _, ok := e.seen[key]; !ok {
			inst.released = true
			delete(e.instances, key)
			released++
		}
	}
	e.stack = e.stack[:0]
	return released
}

// AbortPass ends a failed pass without releasing anything
func (e *Engine) AbortPass() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stack = e.stack[:0]
}

// Enter makes the instance identified by key current and resets its ordinal
func (e *Engine) Enter(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.instances[key]
	if !ok {
		inst = &instance{key: key, lastCount: -1}
		e.instances[key] = inst
	}
	inst.cursor = 0
	e.seen[key] = struct{}{}
	e.stack = append(e.stack, inst)
}

// Exit leaves the current instance
func (e *Engine) Exit() {
	e.mu.Lock()
	if len(e.stack) == 0 {
		e.mu.Unlock()
		return
	}
	inst := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]

	var warning string
	if e.opts.Debug && inst.lastCount >= 0 && inst.lastCount != inst.cursor {
		warning = fmt.Sprintf("component %s acquired %d state cells, previous pass acquired %d; state may be misaligned",
			inst.key, inst.cursor, inst.lastCount)
	}
	inst.lastCount = inst.cursor
	e.mu.Unlock()

	if warning != "" && e.opts.OnWarn != nil {
		e.opts.OnWarn(warning)
	}
}

// Acquire returns the value stored at the current ordinal of the current
// instance, storing initial first if the cell does not exist yet.
func (e *Engine) Acquire(initial any) (any, Setter, error) {
	e.mu.Lock()
	if len(e.stack) == 0 {
		e.mu.Unlock()
		return nil, nil, ErrNoInstance
	}
	inst := e.stack[len(e.stack)-1]
	index := inst.cursor
	inst.cursor++

	if index == len(inst.cells) {
		e.mu.Unlock()
		// Lazy initializers run user code; keep the lock released.
		if lazy, ok := initial.(Lazy); ok {
			initial = lazy()
		}
		e.mu.Lock()
		if index == len(inst.cells) {
			inst.cells = append(inst.cells, initial)
		}
	}
	value := inst.cells[index]
	e.mu.Unlock()

	return value, e.setter(inst, index), nil
}

func (e *Engine) setter(inst *instance, index int) Setter {
	return func(next any) {
		e.mu.Lock()
		if inst.released || index >= len(inst.cells) {
			e.mu.Unlock()
			return
		}
		prev := inst.cells[index]
		e.mu.Unlock()

		if update, ok := next.(Update); ok {
			next = update(prev)
		}
		if e.opts.Equal(prev, next) {
			return
		}

		e.mu.Lock()
		inst.cells[index] = next
		e.mu.Unlock()

		if e.opts.OnUpdate != nil {
			e.opts.OnUpdate()
		}
	}
}

// Reset drops every instance
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, inst := range e.instances {
		inst.released = true
	}
	e.instances = make(map[string]*instance)
	e.seen = make(map[string]struct{})
	e.stack = e.stack[:0]
}

// Instances returns the number of mounted instances
func (e *Engine) Instances() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.instances)
}

// Cells returns a copy of the cells stored for an instance
func (e *Engine) Cells(key string) []any {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.instances[key]
	if !ok {
		return nil
	}
	out := make([]any, len(inst.cells))
	copy(out, inst.cells)
	return out
}

// same reports identity for comparable values; maps and slices always differ
func same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
