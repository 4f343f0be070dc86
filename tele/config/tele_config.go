package tele_config

import (
	"strings"

	"github.com/juju/errors"
)

const (
	TransportMqtt = "mqtt"
	TransportNats = "nats"
)

type Config struct { //nolint:maligned
	Enabled     bool     `hcl:"enable"`
	LogDebug    bool     `hcl:"log_debug"`
	Transport   string   `hcl:"transport"`    // mqtt|nats, default mqtt
	PersistPath string   `hcl:"persist_path"` // empty: in-memory queue, readings may be lost
	QueueSize   int      `hcl:"queue_size"`
	Tags        []string `hcl:"tags"` // empty: all configured sensors

	MqttBroker     string `hcl:"mqtt_broker"`
	MqttClientId   string `hcl:"mqtt_client_id"`
	MqttPassword   string `hcl:"mqtt_password"`
	KeepaliveSec   int    `hcl:"keepalive_sec"`
	PingTimeoutSec int    `hcl:"ping_timeout_sec"`
	TopicPrefix    string `hcl:"topic_prefix"`

	NatsUrl     string `hcl:"nats_url"`
	NatsSubject string `hcl:"nats_subject"`

	RedisAddr     string `hcl:"redis_addr"`
	RedisPassword string `hcl:"redis_password"`
	RedisDB       int    `hcl:"redis_db"`
	RedisKey      string `hcl:"redis_key"`
	RedisTtlSec   int    `hcl:"redis_ttl_sec"`
}

const (
	DefaultQueueSize   = 256
	DefaultClientId    = "pvrouter"
	DefaultTopicPrefix = "pvrouter"
	DefaultNatsSubject = "pvrouter"
	DefaultRedisKey    = "pvrouter:shadow"
)

func (c *Config) SetDefaults() {
	c.Transport = strings.ToLower(c.Transport)
	if c.Transport == "" {
		c.Transport = TransportMqtt
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.MqttClientId == "" {
		c.MqttClientId = DefaultClientId
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.NatsSubject == "" {
		c.NatsSubject = DefaultNatsSubject
	}
	if c.RedisKey == "" {
		c.RedisKey = DefaultRedisKey
	}
}

// Validate only matters with Enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Transport {
	case TransportMqtt:
		if c.MqttBroker == "" {
			return errors.NotValidf("tele.mqtt_broker empty")
		}
	case TransportNats:
		if c.NatsUrl == "" {
			return errors.NotValidf("tele.nats_url empty")
		}
	default:
		return errors.NotValidf("tele.transport=%s", c.Transport)
	}
	if c.QueueSize < 0 {
		return errors.NotValidf("tele.queue_size=%d", c.QueueSize)
	}
	return nil
}
