package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/mk2pvrouter/hardware/pvrouter"
	"github.com/temoto/mk2pvrouter/internal/state"
)

func TestParseLine(t *testing.T) {
	t.Parallel()

	cases := []struct {
		line   string
		expect string
		err    string
	}{
		{"", "", ""},
		{"  update   step ", "update step", ""},
		{"loop=3 run stat", "loop=3 run stat", ""},
		{"update help", "help", ""},
		{"@0203 s10", "@0203 sleep:10ms", ""},
		{"f:PV=12,GRID=-3", "f:PV=12,GRID=-3", ""},
		{"listen=PV", "listen=PV", ""},
		{"loop=2 loop=3", "", "multiple loop commands"},
		{"loop=x", "", "word=loop=x"},
		{"@zz", "", "word=@zz"},
		{"f:PV", "", "expected TAG=VALUE"},
		{"listen=", "", "not valid"},
		{"bogus", "", "invalid command: 'bogus'"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.line, func(t *testing.T) {
			d, err := parseLine(c.line)
			if c.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), c.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expect, d.String())
		})
	}
}

func TestCorruptFrame(t *testing.T) {
	t.Parallel()

	good := pvrouter.EncodeFrame(pvrouter.Measurement{Tag: "PV", Value: "1"})
	bad := corruptFrame(append([]byte(nil), good...))
	require.Equal(t, len(good), len(bad))
	diff := 0
	for i := range good {
		if good[i] != bad[i] {
			diff++
		}
	}
	assert.Equal(t, 1, diff)
}

func TestExecFrame(t *testing.T) {
	t.Parallel()

	ctx, g, _ := state.NewTestContext(t, `
uart { driver = "mock" }
sensor "PV" {}
sensor "GRID" {}
`)
	exec := func(line string) {
		d, err := parseLine(line)
		require.NoError(t, err)
		require.NoError(t, d.Do(ctx))
	}

	exec("f:PV=1500,GRID=-20 run")
	v, ok := g.Sensors.Get("PV").Value()
	assert.True(t, ok)
	assert.Equal(t, "1500", v)
	v, _ = g.Sensors.Get("GRID").Value()
	assert.Equal(t, "-20", v)

	exec("bad:PV=7 f:GRID=5")
	exec("loop=2 run")
	v, _ = g.Sensors.Get("PV").Value()
	assert.Equal(t, "1500", v)
	v, _ = g.Sensors.Get("GRID").Value()
	assert.Equal(t, "5", v)

	r, err := g.Router()
	require.NoError(t, err)
	assert.Equal(t, pvrouter.StateOff, r.State())
	assert.Equal(t, uint64(1), r.Stat().Snapshot().ChecksumErrors)
}

func TestExecRunIncomplete(t *testing.T) {
	t.Parallel()

	ctx, _, mock := state.NewTestContext(t, `uart { driver = "mock" }`)
	mock.Feed([]byte{pvrouter.StartFrame, pvrouter.LineFeed})
	d, err := parseLine("run")
	require.NoError(t, err)
	err = d.Do(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame not complete")
}
