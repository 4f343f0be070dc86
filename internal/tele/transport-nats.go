package tele

import (
	"context"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/nats-io/nats.go"
	"github.com/temoto/mk2pvrouter/log2"
	tele_config "github.com/temoto/mk2pvrouter/tele/config"
)

type transportNats struct {
	log     *log2.Log
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

func (self *transportNats) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error {
	self.log = log
	self.subject = strings.TrimSuffix(teleConfig.NatsSubject, ".")
	self.timeout = DefaultNetworkTimeout
	nc, err := nats.Connect(teleConfig.NatsUrl,
		nats.Name(teleConfig.MqttClientId),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			self.log.Infof("nats disconnect err=%v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			self.log.Infof("nats connect url=%s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return errors.Annotate(err, "nats connect")
	}
	self.nc = nc
	return nil
}

func (self *transportNats) Close() {
	if err := self.nc.Drain(); err != nil {
		self.nc.Close()
	}
}

func (self *transportNats) SendReading(tag string, payload []byte) bool {
	return self.publish(self.subject+"."+tag, payload)
}

func (self *transportNats) SendError(payload []byte) bool {
	return self.publish(self.subject+".error", payload)
}

func (self *transportNats) publish(subject string, payload []byte) bool {
	if !self.nc.IsConnected() {
		return false
	}
	if err := self.nc.Publish(subject, payload); err != nil {
		self.log.Debugf("nats publish subject=%s err=%v", subject, err)
		return false
	}
	return self.nc.FlushTimeout(self.timeout) == nil
}
