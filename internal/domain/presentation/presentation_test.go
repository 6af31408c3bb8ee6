package presentation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/host"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/paint"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
)

const counterSource = `
import React, { useState } from 'react';
import { View, Text, Pressable } from 'react-native';

export default function App() {
  const [count, setCount] = useState(0);
  return (
    <View style={{ flex: 1, padding: 20 }}>
      <Text>Count: {count}</Text>
      <Pressable onPress={() => setCount(count + 1)} style={{ height: 40, backgroundColor: 'blue' }}>
        <Text style={{ color: 'white' }}>+1</Text>
      </Pressable>
    </View>
  );
}
`

func connect(t *testing.T) (*Host, *paint.Recorder) {
	t.Helper()
	hostEnd, client := protocol.Pipe(32)
	worker := host.NewWorker(host.New(host.Options{}), host.WorkerConfig{Watchdog: 5 * time.Second})

	rec := &paint.Recorder{}
	painter, err := paint.NewPainter("#ffffff", nil)
	require.NoError(t, err)
	p := New(client, Options{Surface: rec, Painter: painter})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = worker.Serve(ctx, hostEnd) }()
	go func() { _ = p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = hostEnd.Close()
	})
	return p, rec
}

func next(t *testing.T, p *Host) Update {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	u, err := p.Next(ctx)
	require.NoError(t, err)
	return u
}

func hasText(rec *paint.Recorder, text string) bool {
	for _, op := range rec.Ops {
		if strings.HasPrefix(op, "text ") && strings.Contains(op, text) {
			return true
		}
	}
	return false
}

func TestPresentationTapRoundTrip(t *testing.T) {
	p, rec := connect(t)
	ctx := context.Background()

	require.NoError(t, p.Initialize(ctx))
	assert.Equal(t, protocol.TypeReady, next(t, p).Type)

	require.NoError(t, p.Execute(ctx, counterSource, 300, 400))
	u := next(t, p)
	require.Equal(t, protocol.TypeTree, u.Type)
	assert.True(t, hasText(rec, `"Count: 0"`))

	button := u.Tree.Children[1]
	box, ok := u.Tree.AbsoluteBox(button.ID)
	require.True(t, ok)

	id, err := p.Tap(ctx, box.Left+box.Width/2, box.Top+box.Height/2)
	require.NoError(t, err)
	assert.Equal(t, button.ID, id, "tap on the label resolves to the pressable ancestor")

	u = next(t, p)
	require.Equal(t, protocol.TypeTree, u.Type)
	assert.Equal(t, "Count: 1", u.Tree.Children[0].Text)
	assert.Same(t, u.Tree, p.Tree())
	assert.Equal(t, 2, p.Trees())
	assert.True(t, hasText(rec, `"Count: 1"`))
	assert.False(t, hasText(rec, `"Count: 0"`), "superseded frame is gone")
}

func TestPresentationTapMiss(t *testing.T) {
	p, _ := connect(t)
	ctx := context.Background()

	_, err := p.Tap(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrNoTarget, "no tree yet")

	require.NoError(t, p.Initialize(ctx))
	next(t, p)
	require.NoError(t, p.Execute(ctx, counterSource, 300, 400))
	next(t, p)

	_, err = p.Tap(ctx, 5, 5)
	assert.ErrorIs(t, err, ErrNoTarget, "padding area has no handler")
	_, err = p.Tap(ctx, 1000, 1000)
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestPresentationKeepsTreeOnFailure(t *testing.T) {
	p, _ := connect(t)
	ctx := context.Background()

	require.NoError(t, p.Initialize(ctx))
	next(t, p)
	require.NoError(t, p.Execute(ctx, counterSource, 300, 400))
	first := next(t, p).Tree

	require.NoError(t, p.Execute(ctx, "export default function App( {", 300, 400))
	u := next(t, p)
	assert.Equal(t, protocol.TypeExecutionFailed, u.Type)
	assert.Equal(t, "transform", u.Phase)
	assert.Same(t, first, p.Tree())
	assert.NotEmpty(t, p.LastError())
}

func TestPresentationInitFailed(t *testing.T) {
	hostEnd, client := protocol.Pipe(4)
	p := New(client, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	require.NoError(t, hostEnd.Send(ctx, protocol.InitFailed(errors.New("transformer missing"))))
	u := next(t, p)
	assert.Equal(t, protocol.TypeInitFailed, u.Type)

	err := p.Execute(ctx, counterSource, 1, 1)
	assert.ErrorIs(t, err, ErrHostFailed)
	assert.Contains(t, err.Error(), "transformer missing")
}

func TestPresentationForwardsLogs(t *testing.T) {
	hostEnd, client := protocol.Pipe(4)
	got := make(chan string, 1)
	p := New(client, Options{OnLog: func(level protocol.Level, text string) {
		got <- string(level) + ":" + text
	}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	require.NoError(t, hostEnd.Send(ctx, protocol.Log(protocol.LevelWarn, "careful")))
	select {
	case line := <-got:
		assert.Equal(t, "warn:careful", line)
	case <-time.After(5 * time.Second):
		t.Fatal("log not forwarded")
	}
}
