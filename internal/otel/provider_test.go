package otel

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func resetGlobal(t *testing.T) {
	t.Cleanup(func() {
		otel.SetMeterProvider(noop.NewMeterProvider())
	})
}

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutWriter(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "ferry"})
	assert.Error(t, err)
}

func TestNew_ExportsGlobalInstruments(t *testing.T) {
	resetGlobal(t)
	var buf syncBuffer

	p, err := New(Config{
		Enabled:     true,
		ServiceName: "ferry-test",
		Interval:    time.Hour,
		Writer:      &buf,
	})
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	counter, err := otel.Meter("ferry/test").Int64Counter("ferry.test.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, p.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "ferry.test.counter")
	assert.Contains(t, out, "ferry-test")
}

func TestFlush(t *testing.T) {
	resetGlobal(t)
	var buf syncBuffer

	p, err := New(Config{Enabled: true, ServiceName: "ferry", Interval: time.Hour, Writer: &buf})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	counter, err := p.Meter("ferry/test").Int64Counter("ferry.flush.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "ferry.flush.counter")
}
