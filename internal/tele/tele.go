package tele

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/mk2pvrouter/hardware/pvrouter"
	"github.com/temoto/mk2pvrouter/helpers"
	"github.com/temoto/mk2pvrouter/log2"
	tele_api "github.com/temoto/mk2pvrouter/tele"
	tele_config "github.com/temoto/mk2pvrouter/tele/config"
	"github.com/temoto/spq"
)

const DefaultNetworkTimeout = 30 * time.Second

// MemoryRetries is send attempts after first failure without persist_path.
const MemoryRetries = 3

// denote value type in queue bytes form
const (
	qReading byte = 1
	qError   byte = 2
)

type tele struct { //nolint:maligned
	config    tele_config.Config
	log       *log2.Log
	transport Transporter
	shadow    *redisShadow
	q         *spq.Queue  // with persist_path
	ch        chan []byte // without persist_path
	alive     *alive.Alive
	seq       uint64
	errors    uint32
	stat      tele_api.Stat
	backoff   helpers.Backoff
}

var _ tele_api.Teler = &tele{}

func New() *tele { return &tele{} }
func NewWithTransporter(trans Transporter) *tele {
	return &tele{transport: trans}
}

func (self *tele) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error {
	teleConfig.SetDefaults()
	if err := teleConfig.Validate(); err != nil {
		return errors.Trace(err)
	}
	self.config = teleConfig
	self.log = log
	if self.config.LogDebug {
		self.log.SetLevel(log2.LDebug)
	}
	self.alive = alive.NewAlive()
	self.backoff = helpers.Backoff{Min: 100 * time.Millisecond, Max: DefaultNetworkTimeout, K: 2, Log: self.log}
	if !self.config.Enabled {
		return nil
	}

	// test code sets .transport
	if self.transport == nil { // production path
		switch self.config.Transport {
		case tele_config.TransportNats:
			self.transport = &transportNats{}
		default:
			self.transport = &transportMqtt{}
		}
	}
	if err := self.transport.Init(ctx, log, self.config); err != nil {
		return errors.Annotate(err, "tele transport")
	}

	if self.config.RedisAddr != "" {
		self.shadow = newRedisShadow(self.log, self.config, &self.stat)
		self.alive.Add(1)
		go self.shadow.run(self.alive)
	}

	if self.config.PersistPath != "" {
		var err error
		self.q, err = spq.Open(self.config.PersistPath)
		if err != nil {
			return errors.Annotate(err, "tele queue")
		}
	} else {
		self.ch = make(chan []byte, self.config.QueueSize)
	}
	self.alive.Add(1)
	go self.qworker()
	return nil
}

func (self *tele) Close() {
	if self.alive == nil {
		return
	}
	self.alive.Stop()
	if self.q != nil {
		self.q.Close()
	}
	self.alive.Wait()
	if self.transport != nil && self.config.Enabled {
		self.transport.Close()
	}
	if self.shadow != nil {
		self.shadow.close()
	}
}

func (self *tele) Stat() *tele_api.Stat { return &self.stat }

// Reading is called from router goroutine, must not block on network.
func (self *tele) Reading(tag, value string) {
	if !self.config.Enabled {
		return
	}
	now := time.Now()
	if self.shadow != nil {
		self.shadow.update(tag, value, now)
	}
	r := tele_api.Reading{
		Tag:   tag,
		Value: value,
		Time:  now.UnixNano(),
		Seq:   atomic.AddUint64(&self.seq, 1),
	}
	if err := self.qpushTagProto(qReading, &r); err != nil {
		self.log.Debugf("tele reading tag=%s err=%v", tag, err)
	}
}

// Error is suitable as log2.ErrorFunc. Must not log errors itself.
func (self *tele) Error(err error) {
	if !self.config.Enabled || err == nil {
		return
	}
	e := tele_api.Error{
		Message: err.Error(),
		Time:    time.Now().UnixNano(),
		Count:   atomic.AddUint32(&self.errors, 1),
	}
	_ = self.qpushTagProto(qError, &e)
}

// Subscribe registers tele as listener for every tag.
func (self *tele) Subscribe(reg *pvrouter.Registry, tags []string) {
	for _, tag := range tags {
		tag := tag
		reg.Register(pvrouter.NewListener(tag, func(value string) { self.Reading(tag, value) }))
	}
}

func (self *tele) qpushTagProto(tag byte, pb proto.Message) error {
	buf := proto.NewBuffer(make([]byte, 0, 64))
	if err := buf.EncodeVarint(uint64(tag)); err != nil {
		return err
	}
	if err := buf.Marshal(pb); err != nil {
		return err
	}
	if self.q != nil {
		if err := self.q.Push(buf.Bytes()); err != nil {
			self.stat.Add(&self.stat.QueueError, 1)
			return errors.Annotate(err, "tele queue push")
		}
		self.stat.Add(&self.stat.Queued, 1)
		return nil
	}
	select {
	case self.ch <- buf.Bytes():
		self.stat.Add(&self.stat.Queued, 1)
		return nil
	default:
		self.stat.Add(&self.stat.Dropped, 1)
		return errors.New("tele queue full")
	}
}

func (self *tele) qworker() {
	defer self.alive.Done()
	if self.q != nil {
		self.qworkerPersist()
		return
	}
	stopch := self.alive.StopChan()
	for {
		select {
		case b := <-self.ch:
			if !self.qsendMemory(b) {
				return
			}
		case <-stopch:
			return
		}
	}
}

// qsendMemory delivers b, retrying with backoff up to MemoryRetries times,
// then drops it. Returns false when tele is stopping.
func (self *tele) qsendMemory(b []byte) bool {
	for attempt := 0; ; attempt++ {
		ok, err := self.qhandle(b)
		switch {
		case err != nil:
			self.log.Debugf("tele qhandle b=%x err=%v", b, err)
			self.stat.Add(&self.stat.Dropped, 1)
			return true
		case ok:
			self.stat.Add(&self.stat.Sent, 1)
			self.backoff.Reset()
			return true
		case attempt >= MemoryRetries:
			self.log.Debugf("tele send failed attempts=%d, dropped", attempt+1)
			self.stat.Add(&self.stat.Dropped, 1)
			return true
		}
		self.stat.Add(&self.stat.Retried, 1)
		select {
		case <-time.After(self.backoff.DelayAfter(false)):
		case <-self.alive.StopChan():
			self.stat.Add(&self.stat.Dropped, 1)
			return false
		}
	}
}

func (self *tele) qworkerPersist() {
	stopch := self.alive.StopChan()
	for {
		box, err := self.q.Peek()
		switch err {
		case nil:
			b := box.Bytes()
			del, err := self.qhandle(b)
			if err != nil {
				self.log.Debugf("tele qhandle b=%x err=%v", b, err)
			}
			if del {
				self.stat.Add(&self.stat.Sent, 1)
				err = self.q.Delete(box)
			} else {
				self.stat.Add(&self.stat.Retried, 1)
				err = self.q.DeletePush(box)
			}
			if err != nil {
				self.stat.Add(&self.stat.QueueError, 1)
			}
			if del {
				self.backoff.Reset()
				continue
			}
			select {
			case <-time.After(self.backoff.DelayAfter(false)):
			case <-stopch:
				return
			}

		case spq.ErrClosed:
			return

		default:
			self.stat.Add(&self.stat.QueueError, 1)
			select {
			case <-time.After(self.backoff.DelayAfter(false)):
			case <-stopch:
				return
			}
		}
	}
}

// qhandle returns true when message is delivered or retry will not help.
func (self *tele) qhandle(b []byte) (bool, error) {
	if len(b) == 0 {
		return true, errors.NotValidf("tele queue item empty")
	}
	switch b[0] {
	case qReading:
		var r tele_api.Reading
		if err := proto.Unmarshal(b[1:], &r); err != nil {
			return true, err
		}
		return self.transport.SendReading(r.Tag, b[1:]), nil

	case qError:
		return self.transport.SendError(b[1:]), nil

	default:
		return true, errors.NotValidf("tele queue item kind=%d", b[0])
	}
}
