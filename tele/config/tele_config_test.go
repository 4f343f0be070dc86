package tele_config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		c      Config
		expect string
	}{
		{"disabled", Config{}, ""},
		{"mqtt-ok", Config{Enabled: true, MqttBroker: "tcp://localhost:1883"}, ""},
		{"mqtt-empty", Config{Enabled: true}, "tele.mqtt_broker empty not valid"},
		{"nats-ok", Config{Enabled: true, Transport: "NATS", NatsUrl: "nats://localhost:4222"}, ""},
		{"nats-empty", Config{Enabled: true, Transport: "nats"}, "tele.nats_url empty not valid"},
		{"transport", Config{Enabled: true, Transport: "carrier-pigeon"}, "tele.transport=carrier-pigeon not valid"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			c.c.SetDefaults()
			err := c.c.Validate()
			if c.expect == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, c.expect)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	c := Config{}
	c.SetDefaults()
	assert.Equal(t, TransportMqtt, c.Transport)
	assert.Equal(t, DefaultQueueSize, c.QueueSize)
	assert.Equal(t, "pvrouter", c.TopicPrefix)
	assert.Equal(t, "pvrouter:shadow", c.RedisKey)
}
