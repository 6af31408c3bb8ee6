package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/protocol"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
)

const infiniteLoopSource = `
export default function App() {
  while (true) {}
}
`

// await reads from conn until a message of type want arrives
func await(t *testing.T, conn protocol.Conn, want protocol.Type) protocol.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for {
		m, err := conn.Receive(ctx)
		require.NoError(t, err, "waiting for %s", want)
		if m.Type == want {
			return m
		}
	}
}

func serve(t *testing.T, cfg WorkerConfig) (protocol.Conn, *Worker) {
	t.Helper()
	hostEnd, client := protocol.Pipe(32)
	w := NewWorker(New(Options{Transformer: transform.NewEsbuild()}), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx, hostEnd) }()
	t.Cleanup(func() {
		cancel()
		_ = hostEnd.Close()
		<-done
	})
	return client, w
}

func TestWorkerServeRoundTrip(t *testing.T) {
	client, w := serve(t, WorkerConfig{})
	ctx := context.Background()

	require.NoError(t, client.Send(ctx, protocol.Initialize()))
	await(t, client, protocol.TypeReady)

	require.NoError(t, client.Send(ctx, protocol.Execute(counterSource, 390, 844)))
	first := await(t, client, protocol.TypeTree)
	assert.Equal(t, "Count: 0", first.Tree.Children[0].Text)

	button := pressable(first.Tree)
	require.NoError(t, client.Send(ctx, protocol.DispatchInput(button.ID, protocol.InputPress)))
	second := await(t, client, protocol.TypeTree)
	assert.Equal(t, "Count: 1", second.Tree.Children[0].Text)
	assert.Equal(t, StateIdle, w.Host().State())
}

func TestWorkerExecuteBeforeInitialize(t *testing.T) {
	client, _ := serve(t, WorkerConfig{})

	require.NoError(t, client.Send(context.Background(), protocol.Execute(counterSource, 100, 100)))
	failed := await(t, client, protocol.TypeExecutionFailed)
	assert.Contains(t, failed.Error, ErrNotReady.Error())
}

func TestWorkerWatchdogInterruptsRunawayCode(t *testing.T) {
	client, w := serve(t, WorkerConfig{Watchdog: 200 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, client.Send(ctx, protocol.Initialize()))
	await(t, client, protocol.TypeReady)

	start := time.Now()
	require.NoError(t, client.Send(ctx, protocol.Execute(infiniteLoopSource, 100, 100)))
	failed := await(t, client, protocol.TypeExecutionFailed)
	assert.Contains(t, failed.Error, "interrupted")
	assert.Equal(t, string(PhaseEvaluate), failed.Phase)
	assert.Less(t, time.Since(start), 5*time.Second)

	require.NoError(t, client.Send(ctx, protocol.Execute(counterSource, 100, 100)))
	await(t, client, protocol.TypeTree)
	assert.Equal(t, StateIdle, w.Host().State())
}

func TestWorkerDropsWhenInboxFull(t *testing.T) {
	rec := &recorder{}
	w := NewWorker(New(Options{Emit: rec.emit}), WorkerConfig{Inbox: 1})

	assert.True(t, w.Submit(protocol.Initialize()))
	assert.False(t, w.Submit(protocol.Execute(counterSource, 1, 1)))
	assert.Equal(t, 1, rec.logsContaining(protocol.LevelWarn, "host busy: execute request dropped"))
}

func TestWorkerIgnoresUnexpectedMessages(t *testing.T) {
	rec := &recorder{}
	w := NewWorker(New(Options{Emit: rec.emit}), WorkerConfig{})

	w.handle(context.Background(), protocol.Ready())
	assert.Equal(t, 1, rec.logsContaining(protocol.LevelWarn, "unexpected ready message ignored"))
	assert.Equal(t, StateUninitialized, w.Host().State())
}

func TestWorkerReportsDispatchBeforeBoot(t *testing.T) {
	rec := &recorder{}
	w := NewWorker(New(Options{Emit: rec.emit}), WorkerConfig{})

	w.handle(context.Background(), protocol.DispatchInput("1:1", protocol.InputPress))
	assert.Equal(t, 1, rec.logsContaining(protocol.LevelWarn, "dispatch dropped"))
	assert.Empty(t, rec.ofType(protocol.TypeExecutionFailed), "dispatch problems never fail an execution")
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	w := NewWorker(New(Options{}), WorkerConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
