package pvrouter

// Listener receives values of one tag.
// Tag is read once at Register.
type Listener interface {
	Tag() string
	PublishValue(value string)
}

type Measurement struct {
	Tag   string
	Value string
}

func (m Measurement) String() string { return m.Tag + "=" + m.Value }

type funcListener struct {
	tag string
	f   func(value string)
}

func (self *funcListener) Tag() string               { return self.tag }
func (self *funcListener) PublishValue(value string) { self.f(value) }

func NewListener(tag string, f func(value string)) Listener {
	return &funcListener{tag: tag, f: f}
}

type registration struct {
	tag string
	l   Listener
}

// Registry keeps listeners in registration order.
// It does not own listeners and has no removal; register at setup.
// Listeners must not Register from PublishValue.
type Registry struct {
	rs []registration
}

func (self *Registry) Register(l Listener) {
	self.rs = append(self.rs, registration{tag: l.Tag(), l: l})
}

func (self *Registry) Listeners() int { return len(self.rs) }

// Dispatch calls every listener with exactly matching tag, returns number of calls.
func (self *Registry) Dispatch(tag, value string) int {
	n := 0
	for _, r := range self.rs {
		if r.tag != tag {
			continue
		}
		r.l.PublishValue(value)
		n++
	}
	return n
}
