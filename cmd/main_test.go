package main

import (
	"testing"
	"time"

	"artnetnode/internal/artnet"
	"artnetnode/internal/config"
	"artnetnode/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertConfigNode(t *testing.T) {
	cfg := config.Default()
	cfg.Node.Universes = []interface{}{"1", int64(2)}
	cfg.Node.Sources = []string{"10.0.0.0/8"}

	got, err := ConvertConfigNode(cfg.Node)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPort, got.Port)
	assert.Equal(t, []uint16{1, 2}, got.Universes)
	assert.Equal(t, time.Second, got.ReadTimeout)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "10.0.0.0/8", got.Sources[0].String())

	cfg.Node.Sources = []string{"bad"}
	_, err = ConvertConfigNode(cfg.Node)
	assert.Error(t, err)
}

func TestConvertConfigClientMQTT(t *testing.T) {
	got := ConvertConfigClientMQTT(config.MQTTConf{Host: "h", Port: "1", Qos: 2, TopicPrefix: "x"})
	assert.Equal(t, "tcp", got.Schema)
	assert.Equal(t, "h", got.Host)
	assert.Equal(t, byte(2), got.Qos)
	assert.Equal(t, "x", got.TopicPrefix)
}

func TestWatchSubscribesConfiguredChannels(t *testing.T) {
	r := artnet.NewRegistry(nil)
	require.NoError(t, watch(logger.NewDiscard(), r, config.NodeConf{Watch: []string{"0/3"}}))

	u, _ := r.Get(0)
	// The handler only logs; applying must not panic and channel 3 must update.
	u.ApplyBuffer([]byte{0, 0, 0, 9}, 0, 4)
	assert.Equal(t, uint8(9), u.Value(3))

	assert.Error(t, watch(logger.NewDiscard(), r, config.NodeConf{Watch: []string{"0"}}))
}
