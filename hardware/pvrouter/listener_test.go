package pvrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	ms []Measurement
}

func (self *recorder) listen(reg *Registry, tags ...string) {
	for _, tag := range tags {
		tag := tag
		reg.Register(NewListener(tag, func(value string) {
			self.ms = append(self.ms, Measurement{Tag: tag, Value: value})
		}))
	}
}

func TestRegistryDispatch(t *testing.T) {
	t.Parallel()
	reg := Registry{}
	calls := []string{}
	reg.Register(NewListener("PAPP", func(v string) { calls = append(calls, "first:"+v) }))
	reg.Register(NewListener("IINST", func(v string) { calls = append(calls, "iinst:"+v) }))
	reg.Register(NewListener("PAPP", func(v string) { calls = append(calls, "second:"+v) }))
	reg.Register(NewListener("papp", func(v string) { calls = append(calls, "lower:"+v) }))
	assert.Equal(t, 4, reg.Listeners())

	assert.Equal(t, 2, reg.Dispatch("PAPP", "00230"))
	assert.Equal(t, []string{"first:00230", "second:00230"}, calls)

	calls = calls[:0]
	assert.Equal(t, 0, reg.Dispatch("PAP", "1"))
	assert.Equal(t, 0, reg.Dispatch("PAPP ", "1"))
	assert.Empty(t, calls)
}

func TestRegistryDuplicate(t *testing.T) {
	t.Parallel()
	reg := Registry{}
	n := 0
	l := NewListener("X", func(string) { n++ })
	reg.Register(l)
	reg.Register(l)
	reg.Dispatch("X", "1")
	assert.Equal(t, 2, n)
}

func TestMeasurementString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "PAPP=00230", Measurement{"PAPP", "00230"}.String())
}
