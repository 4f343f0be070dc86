package tele

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"
	"github.com/temoto/mk2pvrouter/log2"
	tele_api "github.com/temoto/mk2pvrouter/tele"
	tele_config "github.com/temoto/mk2pvrouter/tele/config"
)

type mockStore struct {
	sync.Mutex
	fail   bool
	key    string
	ttl    time.Duration
	hash   map[string]interface{}
	writes int
}

func (m *mockStore) Store(ctx context.Context, key string, fields map[string]interface{}, ttl time.Duration) error {
	m.Lock()
	defer m.Unlock()
	if m.fail {
		return errors.New("connection refused")
	}
	if m.hash == nil {
		m.hash = make(map[string]interface{})
	}
	for k, v := range fields {
		m.hash[k] = v
	}
	m.key, m.ttl = key, ttl
	m.writes++
	return nil
}
func (m *mockStore) Close() error { return nil }

func (m *mockStore) get(field string) interface{} {
	m.Lock()
	defer m.Unlock()
	return m.hash[field]
}

func TestRedisShadow(t *testing.T) {
	t.Parallel()

	var stat tele_api.Stat
	store := &mockStore{}
	c := tele_config.Config{RedisTtlSec: 60}
	c.SetDefaults()
	sh := newShadow(log2.NewTest(t, log2.LDebug), store, c, &stat)
	a := alive.NewAlive()
	a.Add(1)
	go sh.run(a)

	at := time.Unix(1700000000, 0)
	sh.update("PV", "1500", at)
	sh.update("GRID", "-20", at)
	sh.update("PV", "1510", at.Add(time.Second))
	require.Eventually(t, func() bool { return store.get("PV") == "1510" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "-20", store.get("GRID"))
	assert.Equal(t, int64(1700000001), store.get("PV:ts"))
	store.Lock()
	assert.Equal(t, "pvrouter:shadow", store.key)
	assert.Equal(t, time.Minute, store.ttl)
	store.Unlock()

	a.Stop()
	a.Wait()
	assert.True(t, stat.Snapshot().Shadow >= 1)
}

func TestRedisShadowFull(t *testing.T) {
	t.Parallel()

	var stat tele_api.Stat
	c := tele_config.Config{QueueSize: 1}
	c.SetDefaults()
	sh := newShadow(nil, &mockStore{fail: true}, c, &stat)
	// no worker running, second update does not fit
	sh.update("PV", "1", time.Now())
	sh.update("PV", "2", time.Now())
	assert.Equal(t, uint64(1), stat.Snapshot().Dropped)
}
