package tele

import (
	"context"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/temoto/mk2pvrouter/helpers"
	"github.com/temoto/mk2pvrouter/log2"
	tele_config "github.com/temoto/mk2pvrouter/tele/config"
)

type transportMqtt struct {
	log     *log2.Log
	m       mqtt.Client
	mopt    *mqtt.ClientOptions
	stopCh  chan struct{}
	timeout time.Duration

	topicPrefix  string
	topicConnect string
	topicError   string
}

func (self *transportMqtt) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error {
	self.log = log
	mqttLog := log.Clone(log2.LWarning)
	if teleConfig.LogDebug {
		mqttLog.SetLevel(log2.LDebug)
		mqtt.DEBUG = mqttLog
	}
	mqtt.ERROR = mqttLog
	mqtt.CRITICAL = mqttLog
	mqtt.WARN = mqttLog

	clientId := teleConfig.MqttClientId
	credFun := func() (string, string) {
		return clientId, teleConfig.MqttPassword
	}
	self.topicPrefix = strings.TrimSuffix(teleConfig.TopicPrefix, "/")
	self.topicConnect = self.topicPrefix + "/c"
	self.topicError = self.topicPrefix + "/error"
	self.timeout = DefaultNetworkTimeout
	keepAlive := helpers.IntSecondDefault(teleConfig.KeepaliveSec, 60*time.Second)
	pingTimeout := helpers.IntSecondDefault(teleConfig.PingTimeoutSec, 30*time.Second)

	self.mopt = mqtt.NewClientOptions().
		AddBroker(teleConfig.MqttBroker).
		SetBinaryWill(self.topicConnect, []byte{0x00}, 1, true).
		SetCleanSession(true).
		SetClientID(clientId).
		SetCredentialsProvider(credFun).
		SetKeepAlive(keepAlive).
		SetPingTimeout(pingTimeout).
		SetConnectTimeout(self.timeout).
		SetOrderMatters(false).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute).
		SetOnConnectHandler(self.onConnectHandler).
		SetConnectionLostHandler(self.connectLostHandler)
	self.m = mqtt.NewClient(self.mopt)
	self.stopCh = make(chan struct{})
	go self.connectLoop()
	return nil
}

// connectLoop retries first connect, after that client reconnects by itself.
func (self *transportMqtt) connectLoop() {
	bo := helpers.Backoff{Min: time.Second, Max: time.Minute, K: 2, Log: self.log}
	for {
		token := self.m.Connect()
		token.Wait()
		err := token.Error()
		if err == nil {
			return
		}
		self.log.Debugf("mqtt connect err=%v", err)
		select {
		case <-self.stopCh:
			return
		case <-time.After(bo.DelayAfter(false)):
		}
	}
}

func (self *transportMqtt) Close() {
	close(self.stopCh)
	if self.m.IsConnected() {
		self.m.Publish(self.topicConnect, 1, true, []byte{0x00}).WaitTimeout(time.Second)
	}
	self.m.Disconnect(250)
}

func (self *transportMqtt) SendReading(tag string, payload []byte) bool {
	return self.publish(self.topicPrefix+"/"+tag, payload)
}

func (self *transportMqtt) SendError(payload []byte) bool {
	return self.publish(self.topicError, payload)
}

func (self *transportMqtt) publish(topic string, payload []byte) bool {
	if !self.m.IsConnected() {
		return false
	}
	token := self.m.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(self.timeout) {
		return false
	}
	return token.Error() == nil
}

func (self *transportMqtt) connectLostHandler(c mqtt.Client, err error) {
	self.log.Infof("mqtt disconnect err=%v", err)
}

func (self *transportMqtt) onConnectHandler(c mqtt.Client) {
	self.log.Infof("mqtt connect")
	c.Publish(self.topicConnect, 1, true, []byte{0x01})
}
