package host

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/tree"
)

const counterSource = `
import React, { useState } from 'react';
import { View, Text, Pressable } from 'react-native';

export default function App() {
  const [count, setCount] = useState(0);
  return (
    <View style={{ flex: 1, padding: 10 }}>
      <Text style={{ fontSize: 18 }}>Count: {count}</Text>
      <Pressable onPress={() => setCount(c => c + 1)} style={{ height: 50, backgroundColor: '#007AFF' }}>
        <Text>Increment</Text>
      </Pressable>
    </View>
  );
}
`

type recorder struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

func (r *recorder) emit(m protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) ofType(t protocol.Type) []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []protocol.Message
	for _, m := range r.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorder) lastTree(t *testing.T) *tree.Serialized {
	t.Helper()
	trees := r.ofType(protocol.TypeTree)
	require.NotEmpty(t, trees, "no tree delivered")
	return trees[len(trees)-1].Tree
}

func (r *recorder) logsContaining(level protocol.Level, text string) int {
	n := 0
	for _, m := range r.ofType(protocol.TypeLog) {
		if m.Level == level && strings.Contains(m.Text, text) {
			n++
		}
	}
	return n
}

func bootHost(t *testing.T, cfg Config) (*Host, *recorder) {
	t.Helper()
	rec := &recorder{}
	h := New(Options{Config: cfg, Transformer: transform.NewEsbuild(), Emit: rec.emit})
	require.NoError(t, h.Boot(context.Background()))
	return h, rec
}

func pressable(s *tree.Serialized) *tree.Serialized {
	if s == nil {
		return nil
	}
	if s.HasPressHandler {
		return s
	}
	for _, c := range s.Children {
		if found := pressable(c); found != nil {
			return found
		}
	}
	return nil
}

func TestHostBootAndExecute(t *testing.T) {
	h, rec := bootHost(t, DefaultConfig())
	assert.Equal(t, StateReady, h.State())
	require.Len(t, rec.ofType(protocol.TypeReady), 1)

	require.NoError(t, h.Execute(context.Background(), counterSource, 390, 844))
	assert.Equal(t, StateIdle, h.State())

	root := rec.lastTree(t)
	assert.Equal(t, tree.KindView, root.Kind)
	assert.Equal(t, tree.Box{Width: 390, Height: 844}, root.Box)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "Count: 0", root.Children[0].Text)
	assert.Equal(t, 10.0, root.Children[0].Box.Left)

	button := root.Children[1]
	assert.True(t, button.HasPressHandler)
	assert.Equal(t, "#007AFF", button.Style.BackgroundColor)
	assert.Equal(t, 50.0, button.Box.Height)
	assert.Equal(t, root, h.Tree())
}

func TestHostExecuteBeforeBoot(t *testing.T) {
	h := New(Options{})
	err := h.Execute(context.Background(), counterSource, 100, 100)
	assert.ErrorIs(t, err, ErrNotReady)
}

type failingTransformer struct{}

func (failingTransformer) Name() string { return "failing" }

func (failingTransformer) Transform(context.Context, string) (string, error) {
	return "", errors.New("not loaded")
}

func TestHostBootFailureIsFatal(t *testing.T) {
	rec := &recorder{}
	h := New(Options{Transformer: failingTransformer{}, Emit: rec.emit})

	err := h.Boot(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHostFailed)
	assert.Equal(t, PhaseInit, PhaseOf(err))
	assert.Equal(t, StateFailed, h.State())
	require.Len(t, rec.ofType(protocol.TypeInitFailed), 1)
	assert.Contains(t, rec.ofType(protocol.TypeInitFailed)[0].Error, "not loaded")

	assert.ErrorIs(t, h.Execute(context.Background(), counterSource, 1, 1), ErrHostFailed)
	assert.ErrorIs(t, h.Boot(context.Background()), ErrHostFailed)
}

func TestHostDispatchRerenders(t *testing.T) {
	h, rec := bootHost(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, h.Execute(ctx, counterSource, 390, 844))

	button := pressable(rec.lastTree(t))
	require.NotNil(t, button)

	require.NoError(t, h.Dispatch(ctx, button.ID, protocol.InputPress))
	root := rec.lastTree(t)
	assert.Equal(t, "Count: 1", root.Children[0].Text)
	assert.Len(t, rec.ofType(protocol.TypeTree), 2)

	next := pressable(root)
	require.NoError(t, h.Dispatch(ctx, next.ID, protocol.InputPress))
	assert.Equal(t, "Count: 2", rec.lastTree(t).Children[0].Text)
}

func TestHostStaleDispatchLogsHandlerNotFound(t *testing.T) {
	h, rec := bootHost(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, h.Execute(ctx, counterSource, 390, 844))
	stale := pressable(rec.lastTree(t)).ID

	require.NoError(t, h.Execute(ctx, counterSource, 390, 844))
	err := h.Dispatch(ctx, stale, protocol.InputPress)

	assert.ErrorIs(t, err, ErrHandlerNotFound)
	assert.Empty(t, rec.ofType(protocol.TypeExecutionFailed))
	assert.Equal(t, 1, rec.logsContaining(protocol.LevelWarn, "handler not found"))
	assert.Equal(t, StateIdle, h.State())
}

func TestHostPassFailures(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		phase   Phase
		wantErr error
	}{
		{
			name:    "syntax error",
			source:  "export default function App( { return <View> }",
			phase:   PhaseTransform,
			wantErr: transform.ErrTransform,
		},
		{
			name:    "unknown module",
			source:  "import fs from 'fs'; export default function App() { return null }",
			phase:   PhaseEvaluate,
			wantErr: ErrModuleNotFound,
		},
		{
			name:    "default export not a function",
			source:  "export default 42",
			phase:   PhaseEvaluate,
			wantErr: ErrNoDefaultExport,
		},
		{
			name:    "missing default export",
			source:  "export const value = 1",
			phase:   PhaseEvaluate,
			wantErr: ErrNoDefaultExport,
		},
		{
			name:    "nothing buildable",
			source:  "export default function App() { return <div>hello</div> }",
			phase:   PhaseBuild,
			wantErr: ErrEmptyTree,
		},
		{
			name: "render loop",
			source: `import { useState } from 'react';
export default function App() {
  const [n, setN] = useState(0);
  setN(n + 1);
  return null;
}`,
			phase:   PhaseEvaluate,
			wantErr: ErrTooManyRerenders,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, rec := bootHost(t, Config{MaxRerenders: 5})
			err := h.Execute(context.Background(), tt.source, 100, 100)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.phase, PhaseOf(err))
			assert.Equal(t, StateIdle, h.State(), "pass failures are not fatal")

			failed := rec.ofType(protocol.TypeExecutionFailed)
			require.Len(t, failed, 1)
			assert.Equal(t, string(tt.phase), failed[0].Phase)
			assert.Empty(t, rec.ofType(protocol.TypeTree))

			require.NoError(t, h.Execute(context.Background(), counterSource, 100, 100), "host accepts further work")
		})
	}
}

func TestHostComponentThrows(t *testing.T) {
	h, rec := bootHost(t, DefaultConfig())
	err := h.Execute(context.Background(), `
function Broken() { throw new Error('kaboom') }
export default function App() { return <Broken /> }
`, 100, 100)

	require.Error(t, err)
	var exc *goja.Exception
	assert.True(t, errors.As(err, &exc))
	assert.Equal(t, PhaseEvaluate, PhaseOf(err))
	assert.Contains(t, rec.ofType(protocol.TypeExecutionFailed)[0].Error, "kaboom")
}

func TestHostHandlerThrows(t *testing.T) {
	h, rec := bootHost(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, h.Execute(ctx, `
import { View } from 'react-native';
export default function App() {
  return <View onPress={() => { throw new Error('bad press') }} style={{ flex: 1 }} />
}`, 100, 100))

	err := h.Dispatch(ctx, rec.lastTree(t).ID, protocol.InputPress)
	require.Error(t, err)
	assert.Equal(t, PhaseDispatch, PhaseOf(err))
	assert.Equal(t, StateIdle, h.State())
	assert.Contains(t, rec.ofType(protocol.TypeExecutionFailed)[0].Error, "bad press")
}

func TestHostSetStateDuringRenderSettles(t *testing.T) {
	h, rec := bootHost(t, DefaultConfig())
	require.NoError(t, h.Execute(context.Background(), `
import { useState } from 'react';
import { Text } from 'react-native';
export default function App() {
  const [n, setN] = useState(0);
  if (n < 3) setN(n + 1);
  return <Text>{n}</Text>;
}`, 100, 100))

	trees := rec.ofType(protocol.TypeTree)
	require.Len(t, trees, 1, "intermediate passes are not delivered")
	assert.Equal(t, "3", trees[0].Tree.Text)
}

func TestHostConsoleAndWarnings(t *testing.T) {
	h, rec := bootHost(t, DefaultConfig())
	require.NoError(t, h.Execute(context.Background(), `
import { View, Text } from 'react-native';
export default function App() {
  console.log('rendering', 1, true);
  console.error('oops');
  return <View><span /><Text>ok</Text></View>;
}`, 100, 100))

	assert.Equal(t, 1, rec.logsContaining(protocol.LevelInfo, "rendering 1 true"))
	assert.Equal(t, 1, rec.logsContaining(protocol.LevelError, "oops"))
	assert.Equal(t, 1, rec.logsContaining(protocol.LevelWarn, "<span>"))
	assert.Len(t, rec.lastTree(t).Children, 1)
}

func TestHostZeroConfigUsesDefaults(t *testing.T) {
	h, rec := bootHost(t, Config{})
	assert.Equal(t, DefaultConfig(), h.cfg)

	require.NoError(t, h.Execute(context.Background(), `
import { View } from 'react-native';
export default function App() {
  console.log('visible');
  return <View />;
}`, 10, 10))
	assert.Equal(t, 1, rec.logsContaining(protocol.LevelInfo, "visible"))
}

func TestHostPlatformModule(t *testing.T) {
	h, rec := bootHost(t, DefaultConfig())
	require.NoError(t, h.Execute(context.Background(), `
import { View, Text, Platform } from 'react-native';
export default function App() {
  return <View><Text>{Platform.OS + ':' + Platform.select({ ios: 'a', default: 'b' })}</Text></View>;
}`, 100, 100))

	assert.Equal(t, "sandbox:b", rec.lastTree(t).Children[0].Text)
}

func TestHostLazyInitialStateRunsOnce(t *testing.T) {
	h, rec := bootHost(t, DefaultConfig())
	ctx := context.Background()
	src := `
import { useState } from 'react';
import { Pressable, Text } from 'react-native';
export default function App() {
  const [v, setV] = useState(() => { console.log('init'); return 5 });
  return <Pressable onPress={() => setV(v * 2)} style={{ flex: 1 }}><Text>{v}</Text></Pressable>;
}`
	require.NoError(t, h.Execute(ctx, src, 100, 100))
	require.NoError(t, h.Dispatch(ctx, rec.lastTree(t).ID, protocol.InputPress))

	assert.Equal(t, "10", rec.lastTree(t).Children[0].Text)
	assert.Equal(t, 1, rec.logsContaining(protocol.LevelInfo, "init"))
}

func TestHostNestedComponentsKeepSeparateState(t *testing.T) {
	h, rec := bootHost(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, h.Execute(ctx, `
import React, { useState } from 'react';
import { View, Text, TouchableOpacity, StyleSheet } from 'react-native';

const styles = StyleSheet.create({ row: { flexDirection: 'row', height: 40 } });

function Counter({ label }) {
  const [n, setN] = useState(0);
  return (
    <TouchableOpacity style={[styles.row, { width: 100 }]} onPress={() => setN(n + 1)}>
      <Text>{label}:{n}</Text>
    </TouchableOpacity>
  );
}

export default function App() {
  return (
    <View style={{ flex: 1 }}>
      <Counter label="a" />
      <Counter label="b" />
    </View>
  );
}`, 200, 200))

	root := rec.lastTree(t)
	require.Len(t, root.Children, 2)
	assert.Equal(t, 100.0, root.Children[1].Box.Width)
	assert.Equal(t, 40.0, root.Children[1].Box.Top)

	require.NoError(t, h.Dispatch(ctx, root.Children[1].ID, protocol.InputPress))
	root = rec.lastTree(t)
	assert.Equal(t, "a:0", root.Children[0].Children[0].Text)
	assert.Equal(t, "b:1", root.Children[1].Children[0].Text)
}

func TestHostDebugStateWarnsOnMismatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DebugState = true
	h, rec := bootHost(t, cfg)
	ctx := context.Background()
	require.NoError(t, h.Execute(ctx, `
import { useState } from 'react';
import { Pressable } from 'react-native';
export default function App() {
  const [on, setOn] = useState(false);
  if (!on) { useState('extra'); }
  return <Pressable onPress={() => setOn(true)} style={{ flex: 1 }} />;
}`, 100, 100))

	require.NoError(t, h.Dispatch(ctx, rec.lastTree(t).ID, protocol.InputPress))
	assert.Equal(t, 1, rec.logsContaining(protocol.LevelWarn, "previous pass acquired 2"))
}

func TestHostReset(t *testing.T) {
	h, rec := bootHost(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, h.Execute(ctx, counterSource, 100, 100))
	require.NoError(t, h.Dispatch(ctx, pressable(rec.lastTree(t)).ID, protocol.InputPress))

	require.NoError(t, h.Reset())
	assert.Equal(t, StateReady, h.State())
	assert.Nil(t, h.Tree())

	require.NoError(t, h.Execute(ctx, counterSource, 100, 100))
	assert.Equal(t, "Count: 0", rec.lastTree(t).Children[0].Text, "state does not survive a reset")
}
