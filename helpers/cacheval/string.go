// Package cacheval holds last known value with validity timeout.
// "updated" timestamp is set after value, without consistency.
// Usage: sensor readings that go stale when device stops talking.
package cacheval

import (
	"sync/atomic"
	"time"

	"github.com/temoto/mk2pvrouter/helpers/atomic_clock"
)

type String struct {
	value   atomic.Value // string
	updated atomic_clock.Clock
	valid   time.Duration
}

// Not thread-safe. valid=0 means value never goes stale once set.
func (c *String) Init(valid time.Duration) {
	c.value.Store("")
	c.updated.Reset()
	c.valid = valid
}

// Get returns current, possibly stale, value.
func (c *String) Get() string {
	s, _ := c.value.Load().(string)
	return s
}

// GetFresh returns current value and true if it was set within valid duration.
func (c *String) GetFresh() (string, bool) { return c.get(atomic_clock.Source()) }

// Age since last Set, 0 if never set.
func (c *String) Age() time.Duration { return atomic_clock.Since(&c.updated) }

func (c *String) Updated() time.Time {
	if c.updated.IsZero() {
		return time.Time{}
	}
	return c.updated.Time()
}

func (c *String) Set(new string) {
	c.value.Store(new)
	c.updated.SetNow()
}

func (c *String) get(now int64) (string, bool) {
	v := c.Get()
	if c.updated.IsZero() {
		return v, false
	}
	if c.valid == 0 {
		return v, true
	}
	age := atomic_clock.New(now).Sub(&c.updated)
	return v, age >= 0 && age <= c.valid
}
