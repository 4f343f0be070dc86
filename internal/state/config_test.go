package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	uart_config "github.com/temoto/mk2pvrouter/hardware/uart/config"
	"github.com/temoto/mk2pvrouter/helpers"
	"github.com/temoto/mk2pvrouter/log2"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, *Config)
		expectErr string
	}
	cases := []Case{
		{"defaults", `uart { driver = "mock" }`, func(t testing.TB, c *Config) {
			assert.Equal(t, 9600, c.Uart.BaudRate)
			assert.Equal(t, 8, c.Uart.DataBits)
			assert.Equal(t, uart_config.ParityNone, c.Uart.Parity)
			assert.Equal(t, 1, c.Uart.StopBits)
			assert.Equal(t, 1, c.Router.ChecksumAreaEnd)
			assert.Equal(t, time.Second, c.UpdateInterval())
			assert.Equal(t, 16*time.Millisecond, c.LoopInterval())
			assert.False(t, c.Tele.Enabled)
		}, ""},

		{"full", `
uart { device = "/dev/ttyUSB0" driver = "serial" baud_rate = 19200 parity = "Even" }
router { checksum_area_end = 2 update_interval_ms = 500 loop_interval_ms = 5 }
sensor "PV" { name = "solar" stale_sec = 10 }
sensor "GRID" {}
tele { enable = true mqtt_broker = "tcp://broker:1883" topic_prefix = "home/pv" }
http { listen = "127.0.0.1:8080" }
`, func(t testing.TB, c *Config) {
			assert.Equal(t, "/dev/ttyUSB0", c.Uart.Device)
			assert.Equal(t, 19200, c.Uart.BaudRate)
			assert.Equal(t, uart_config.ParityEven, c.Uart.Parity)
			assert.Equal(t, 2, c.Router.ChecksumAreaEnd)
			assert.Equal(t, 500*time.Millisecond, c.UpdateInterval())
			assert.Equal(t, 5*time.Millisecond, c.LoopInterval())
			require.Len(t, c.Sensors, 2)
			assert.Equal(t, "PV", c.Sensors[0].Tag)
			assert.Equal(t, "solar", c.Sensors[0].Name)
			assert.Equal(t, 10, c.Sensors[0].StaleSec)
			assert.Equal(t, "GRID", c.Sensors[1].Tag)
			assert.Equal(t, []string{"PV", "GRID"}, c.Tele.Tags)
			assert.Equal(t, "home/pv", c.Tele.TopicPrefix)
			assert.Equal(t, "127.0.0.1:8080", c.Http.Listen)
		}, ""},

		{"invalid-uart", `uart { driver = "serial" }`, nil, "uart.device empty for driver=serial not valid"},
		{"invalid-sensor", `uart { driver = "mock" } sensor "TAG_IS_WAY_TOO_LONG" {}`, nil, `sensor tag="TAG_IS_WAY_TOO_LONG" not valid`},
		{"invalid-tele", `uart { driver = "mock" } tele { enable = true }`, nil, "tele.mqtt_broker empty not valid"},
		{"syntax", `uart {`, nil, "config unmarshal source=test-inline"},
	}
	helpers.RandUnix().Shuffle(len(cases), func(i, j int) { cases[i], cases[j] = cases[j], cases[i] })
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			log := log2.NewTest(t, log2.LDebug)
			fs := NewMockFullReader(map[string]string{"test-inline": c.input})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if c.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), c.expectErr)
				return
			}
			require.NoError(t, err)
			c.check(t, cfg)
		})
	}
}

func TestReadConfigInclude(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	fs := NewMockFullReader(map[string]string{
		"main":  `uart { driver = "mock" } include "local" {} include "absent" { optional = true }`,
		"local": `router { checksum_area_end = 3 }`,
	})
	cfg, err := ReadConfig(log, fs, "main")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Router.ChecksumAreaEnd)

	fs.Map["main"] = `include "required" {}`
	_, err = ReadConfig(log, fs, "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config required name=required")

	fs.Map["main"] = `uart { driver = "mock" } include "loop" {}`
	fs.Map["loop"] = `include "main" {}`
	_, err = ReadConfig(log, fs, "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config include loop: from=loop include=main")
}
