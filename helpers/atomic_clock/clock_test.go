package atomic_clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApi(t *testing.T) {
	t.Parallel()

	c := Now()
	tim := time.Now()
	const delta = 100 * time.Millisecond

	assert.InDelta(t, tim.UnixNano(), c.UnixNano(), float64(delta))
	assert.InDelta(t, tim.Unix(), c.Unix(), 1)

	c.SetTime(tim)
	assert.Equal(t, tim.UnixNano(), c.UnixNano())
	assert.True(t, tim.Equal(c.Time()))

	c.SetNow()
	assert.True(t, Since(c) < delta)
	assert.True(t, Now().Sub(c) >= 0)
}

func TestZero(t *testing.T) {
	t.Parallel()

	var c Clock
	assert.True(t, c.IsZero())
	assert.Equal(t, time.Duration(0), Since(&c))
	c.SetNowIfZero()
	assert.False(t, c.IsZero())
	first := c.UnixNano()
	c.SetNowIfZero()
	assert.Equal(t, first, c.UnixNano())
	c.Reset()
	assert.True(t, c.IsZero())
}
