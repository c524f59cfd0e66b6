package clientmqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"artnetnode/internal/artnet"
	"artnetnode/internal/logger"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// ClientMQTT публикует изменения каналов DMX в MQTT.
type ClientMQTT struct {
	ctx       context.Context
	log       *logger.Log
	cfgClient MQTTConf
	client    mqtt.Client
	opts      *mqtt.ClientOptions

	mu      sync.Mutex
	subs    []artnet.Subscription
	stopped bool
}

// NewClient конструктор.
func NewClient(log logger.Logger, cfgClient MQTTConf) *ClientMQTT {
	if cfgClient.ClientID == "" {
		cfgClient.ClientID = "artnet-node-" + uuid.NewString()
	}
	if cfgClient.Schema == "" {
		cfgClient.Schema = "tcp"
	}
	if cfgClient.TopicPrefix == "" {
		cfgClient.TopicPrefix = "artnet"
	}
	return &ClientMQTT{
		ctx:       context.Background(),
		log:       log.With(logger.Fields{"module": "mqtt"}),
		cfgClient: cfgClient,
	}
}

// Start connects to the broker.
func (c *ClientMQTT) Start(ctx context.Context) error {
	if c.log.GetLevel() == "debug" || c.log.GetLevel() == "trace" {
		mqtt.ERROR = log.New(os.Stdout, "[ERROR] ", 0)
		mqtt.CRITICAL = log.New(os.Stdout, "[CRIT] ", 0)
		mqtt.WARN = log.New(os.Stdout, "[WARN]  ", 0)
	}

	c.ctx = ctx

	c.opts = mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%s", c.cfgClient.Schema, c.cfgClient.Host, c.cfgClient.Port)).
		SetUsername(c.cfgClient.User).
		SetPassword(c.cfgClient.Password).
		SetOnConnectHandler(c.connectHandler).
		SetConnectionLostHandler(c.connectLostHandler).
		SetClientID(c.cfgClient.ClientID).
		SetOrderMatters(true).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	c.client = mqtt.NewClient(c.opts)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	case <-c.ctx.Done():
		return errors.New("context canceled")
	}

	c.log.Infof("Status: %v", c.client.IsConnected())
	return nil
}

// Stop detaches from all universes and disconnects.
func (c *ClientMQTT) Stop() error {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.stopped = true
	c.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}

	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(500)
	}
	return nil
}

// Attach publishes the updates of every universe the registry holds or
// creates later.
func (c *ClientMQTT) Attach(r *artnet.Registry) {
	r.OnCreate(c.attach)
}

func (c *ClientMQTT) attach(u *artnet.Universe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.subs = append(c.subs, u.Subscribe(c.publishUpdate))

	c.log.Debugf("attached to universe %d", u.ID())
}

// Topic returns the topic updates of universe are published to.
func Topic(prefix string, universe uint16) string {
	return fmt.Sprintf("%s/%d", prefix, universe)
}

func (c *ClientMQTT) publishUpdate(up artnet.UniverseUpdate) {
	if len(up.Changes) == 0 || c.client == nil || !c.client.IsConnected() {
		return
	}

	addr := artnet.UniverseAddress(up.Universe)
	msg := Message{
		Universe: up.Universe,
		Address:  addr.String(),
		Sequence: up.Sequence,
		Changes:  make(Payload, len(up.Changes)),
	}
	for i, ch := range up.Changes {
		msg.Changes[i] = DMXCommand{Channel: ch.Channel, Value: ch.NewValue, Old: ch.OldValue}
	}

	b, err := json.Marshal(msg)
	if err != nil {
		c.log.Errorf("public topic. msg: %v", err)
		return
	}

	topic := Topic(c.cfgClient.TopicPrefix, up.Universe)
	token := c.client.Publish(topic, c.cfgClient.Qos, c.cfgClient.Retain, b)
	go func() {
		select {
		case <-c.ctx.Done():
			return
		case <-token.Done():
			if token.Error() != nil {
				c.log.Errorf("error publish topic %s. %v", topic, token.Error())
			}
		}
	}()
}

func (c *ClientMQTT) connectHandler(_ mqtt.Client) {
	c.log.Info("client connected to server")
}

func (c *ClientMQTT) connectLostHandler(_ mqtt.Client, err error) {
	c.log.Errorf("server connect lost: %v", err)
}
