// Package sensor keeps latest decoded value per tag, for inspection via expvar.
package sensor

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/temoto/mk2pvrouter/hardware/pvrouter"
	"github.com/temoto/mk2pvrouter/helpers/cacheval"
)

// Text is pvrouter.Listener storing value as is, no conversion.
type Text struct {
	Name    string
	tag     string
	v       cacheval.String
	updates uint64
}

var _ pvrouter.Listener = &Text{}

// stale=0 means value never goes stale.
func NewText(tag, name string, stale time.Duration) *Text {
	t := &Text{Name: name, tag: tag}
	if t.Name == "" {
		t.Name = tag
	}
	t.v.Init(stale)
	return t
}

func (t *Text) Tag() string { return t.tag }

func (t *Text) PublishValue(value string) {
	t.v.Set(value)
	atomic.AddUint64(&t.updates, 1)
}

// Value returns latest value and true if it is fresh.
func (t *Text) Value() (string, bool) { return t.v.GetFresh() }
func (t *Text) Age() time.Duration    { return t.v.Age() }
func (t *Text) Updates() uint64       { return atomic.LoadUint64(&t.updates) }

type Reading struct {
	Tag     string    `json:"tag"`
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Fresh   bool      `json:"fresh"`
	Updated time.Time `json:"updated"`
	Updates uint64    `json:"updates"`
}

func (t *Text) Reading() Reading {
	v, fresh := t.Value()
	return Reading{
		Tag:     t.tag,
		Name:    t.Name,
		Value:   v,
		Fresh:   fresh,
		Updated: t.v.Updated(),
		Updates: t.Updates(),
	}
}

// Set is collection of text sensors. Implements expvar.Var.
type Set struct {
	mu sync.Mutex
	m  map[string]*Text
}

func (s *Set) Add(t *Text) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[string]*Text)
	}
	s.m[t.Tag()] = t
}

func (s *Set) Get(tag string) *Text {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[tag]
}

// Tags returns sorted sensor tags.
func (s *Set) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := make([]string, 0, len(s.m))
	for tag := range s.m {
		ts = append(ts, tag)
	}
	sort.Strings(ts)
	return ts
}

// Register adds every sensor to router listeners, in tag order.
func (s *Set) Register(reg *pvrouter.Registry) {
	for _, tag := range s.Tags() {
		reg.Register(s.Get(tag))
	}
}

func (s *Set) Readings() []Reading {
	tags := s.Tags()
	rs := make([]Reading, 0, len(tags))
	for _, tag := range tags {
		rs = append(rs, s.Get(tag).Reading())
	}
	return rs
}

func (s *Set) String() string {
	b, err := json.Marshal(s.Readings())
	if err != nil {
		return "null"
	}
	return string(b)
}
