package tele

import (
	"encoding/json"
	"sync/atomic"
)

// Stat counters, safe for concurrent use. Implements expvar.Var.
type Stat struct {
	Queued     uint64 `json:"queued"`  // accepted into queue
	Sent       uint64 `json:"sent"`    // acknowledged by transport
	Retried    uint64 `json:"retried"` // transport failed, send repeated later
	Dropped    uint64 `json:"dropped"` // queue full, or memory queue retries exhausted
	QueueError uint64 `json:"queue_error"`
	Shadow     uint64 `json:"shadow"` // redis shadow updates
}

func (self *Stat) Add(p *uint64, n uint64) { atomic.AddUint64(p, n) }

func (self *Stat) Snapshot() Stat {
	return Stat{
		Queued:     atomic.LoadUint64(&self.Queued),
		Sent:       atomic.LoadUint64(&self.Sent),
		Retried:    atomic.LoadUint64(&self.Retried),
		Dropped:    atomic.LoadUint64(&self.Dropped),
		QueueError: atomic.LoadUint64(&self.QueueError),
		Shadow:     atomic.LoadUint64(&self.Shadow),
	}
}

func (self *Stat) String() string {
	s := self.Snapshot()
	b, err := json.Marshal(&s)
	if err != nil {
		return "null"
	}
	return string(b)
}
