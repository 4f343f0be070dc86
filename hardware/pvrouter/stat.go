package pvrouter

import (
	"encoding/json"
	"sync/atomic"
)

// Stat counters are written by router goroutine and may be read from anywhere.
type Stat struct {
	Frames         uint64 `json:"frames"`
	Records        uint64 `json:"records"`
	ChecksumErrors uint64 `json:"checksum_errors"`
	InvalidFields  uint64 `json:"invalid_fields"`
	AbortedFrames  uint64 `json:"aborted_frames"`
	Overflows      uint64 `json:"overflows"`
	ReadErrors     uint64 `json:"read_errors"`
}

func (self *Stat) inc(p *uint64) { atomic.AddUint64(p, 1) }

func (self *Stat) Snapshot() Stat {
	return Stat{
		Frames:         atomic.LoadUint64(&self.Frames),
		Records:        atomic.LoadUint64(&self.Records),
		ChecksumErrors: atomic.LoadUint64(&self.ChecksumErrors),
		InvalidFields:  atomic.LoadUint64(&self.InvalidFields),
		AbortedFrames:  atomic.LoadUint64(&self.AbortedFrames),
		Overflows:      atomic.LoadUint64(&self.Overflows),
		ReadErrors:     atomic.LoadUint64(&self.ReadErrors),
	}
}

// String is JSON, so *Stat is expvar.Var.
func (self *Stat) String() string {
	s := self.Snapshot()
	b, err := json.Marshal(&s)
	if err != nil {
		return "null"
	}
	return string(b)
}
