package tele_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/mk2pvrouter/hardware/pvrouter"
	"github.com/temoto/mk2pvrouter/internal/tele"
	"github.com/temoto/mk2pvrouter/log2"
	tele_api "github.com/temoto/mk2pvrouter/tele"
	tele_config "github.com/temoto/mk2pvrouter/tele/config"
)

type mockTransport struct {
	sync.Mutex
	fail     int
	readings []tele_api.Reading
	errs     []tele_api.Error
	closed   bool
}

func (m *mockTransport) Init(context.Context, *log2.Log, tele_config.Config) error { return nil }

func (m *mockTransport) SendReading(tag string, payload []byte) bool {
	m.Lock()
	defer m.Unlock()
	if m.fail > 0 {
		m.fail--
		return false
	}
	var r tele_api.Reading
	if err := proto.Unmarshal(payload, &r); err != nil {
		panic(err)
	}
	if r.Tag != tag {
		panic("tag mismatch")
	}
	m.readings = append(m.readings, r)
	return true
}

func (m *mockTransport) SendError(payload []byte) bool {
	m.Lock()
	defer m.Unlock()
	var e tele_api.Error
	if err := proto.Unmarshal(payload, &e); err != nil {
		panic(err)
	}
	m.errs = append(m.errs, e)
	return true
}

func (m *mockTransport) Close() {
	m.Lock()
	m.closed = true
	m.Unlock()
}

func (m *mockTransport) snapshot() ([]tele_api.Reading, []tele_api.Error) {
	m.Lock()
	defer m.Unlock()
	return append([]tele_api.Reading(nil), m.readings...), append([]tele_api.Error(nil), m.errs...)
}

func testConfig() tele_config.Config {
	return tele_config.Config{Enabled: true, MqttBroker: "tcp://127.0.0.1:1"}
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	mt := &mockTransport{}
	tl := tele.NewWithTransporter(mt)
	require.NoError(t, tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), tele_config.Config{}))
	tl.Reading("PV", "1")
	tl.Error(errors.New("ignored"))
	tl.Close()
	rs, es := mt.snapshot()
	assert.Len(t, rs, 0)
	assert.Len(t, es, 0)
	assert.False(t, mt.closed)
	assert.Equal(t, uint64(0), tl.Stat().Snapshot().Queued)
}

func TestInvalidConfig(t *testing.T) {
	t.Parallel()

	tl := tele.NewWithTransporter(&mockTransport{})
	err := tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), tele_config.Config{Enabled: true, Transport: "nats"})
	assert.EqualError(t, err, "tele.nats_url empty not valid")
}

func TestMemoryQueue(t *testing.T) {
	t.Parallel()

	mt := &mockTransport{}
	tl := tele.NewWithTransporter(mt)
	log := log2.NewTest(t, log2.LDebug)
	require.NoError(t, tl.Init(context.Background(), log, testConfig()))
	defer tl.Close()

	src := pvrouter.NewMockSource(pvrouter.EncodeFrame(
		pvrouter.Measurement{Tag: "PV", Value: "1500"},
		pvrouter.Measurement{Tag: "GRID", Value: "-20"},
		pvrouter.Measurement{Tag: "SKIP", Value: "0"},
	))
	r := pvrouter.NewRouter(log, src, 0)
	tl.Subscribe(&r.Registry, []string{"PV", "GRID"})
	r.Update()
	for i := 0; i < 5; i++ {
		r.Loop()
	}
	log.SetErrorFunc(tl.Error)
	log.Errorf("uart gone")

	require.Eventually(t, func() bool {
		rs, es := mt.snapshot()
		return len(rs) == 2 && len(es) == 1
	}, 2*time.Second, 5*time.Millisecond)
	rs, es := mt.snapshot()
	assert.Equal(t, "PV", rs[0].Tag)
	assert.Equal(t, "1500", rs[0].Value)
	assert.Equal(t, uint64(1), rs[0].Seq)
	assert.Equal(t, "GRID", rs[1].Tag)
	assert.Equal(t, uint64(2), rs[1].Seq)
	assert.True(t, rs[1].Time >= rs[0].Time)
	assert.Equal(t, "uart gone", es[0].Message)
	assert.Equal(t, uint32(1), es[0].Count)
	s := tl.Stat().Snapshot()
	assert.Equal(t, uint64(3), s.Queued)
	assert.Equal(t, uint64(3), s.Sent)
}

func TestMemoryQueueRetry(t *testing.T) {
	t.Parallel()

	mt := &mockTransport{fail: 2}
	tl := tele.NewWithTransporter(mt)
	require.NoError(t, tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), testConfig()))
	defer tl.Close()

	tl.Reading("PV", "1")
	tl.Reading("PV", "2")
	require.Eventually(t, func() bool {
		return tl.Stat().Snapshot().Sent == 2
	}, 5*time.Second, 5*time.Millisecond)
	rs, _ := mt.snapshot()
	require.Len(t, rs, 2)
	assert.Equal(t, "1", rs[0].Value)
	assert.Equal(t, "2", rs[1].Value)
	s := tl.Stat().Snapshot()
	assert.Equal(t, uint64(2), s.Retried)
	assert.Equal(t, uint64(0), s.Dropped)
}

func TestMemoryQueueRetryExhausted(t *testing.T) {
	t.Parallel()

	mt := &mockTransport{fail: 1 + tele.MemoryRetries}
	tl := tele.NewWithTransporter(mt)
	require.NoError(t, tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), testConfig()))
	defer tl.Close()

	tl.Reading("PV", "1")
	tl.Reading("PV", "2")
	require.Eventually(t, func() bool {
		s := tl.Stat().Snapshot()
		return s.Sent+s.Dropped == 2
	}, 5*time.Second, 5*time.Millisecond)
	rs, _ := mt.snapshot()
	require.Len(t, rs, 1)
	assert.Equal(t, "2", rs[0].Value)
	s := tl.Stat().Snapshot()
	assert.Equal(t, uint64(1), s.Dropped)
	assert.Equal(t, uint64(tele.MemoryRetries), s.Retried)
}

func TestPersistRetry(t *testing.T) {
	t.Parallel()

	mt := &mockTransport{fail: 2}
	tl := tele.NewWithTransporter(mt)
	c := testConfig()
	c.PersistPath = t.TempDir()
	require.NoError(t, tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), c))

	tl.Reading("PV", "1")
	require.Eventually(t, func() bool {
		rs, _ := mt.snapshot()
		return len(rs) == 1
	}, 5*time.Second, 10*time.Millisecond)
	tl.Close()

	rs, _ := mt.snapshot()
	assert.Equal(t, "1", rs[0].Value)
	s := tl.Stat().Snapshot()
	assert.Equal(t, uint64(1), s.Queued)
	assert.Equal(t, uint64(2), s.Retried)
	assert.Equal(t, uint64(1), s.Sent)
	assert.True(t, mt.closed)
}
