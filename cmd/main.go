package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"artnetnode/internal/artnet"
	"artnetnode/internal/clientmqtt"
	"artnetnode/internal/config"
	"artnetnode/internal/logger"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "configs/conf.toml", "Path to configuration file")
}

func main() {
	flag.Parse()
	cfg, err := config.NewConfig(configFile)
	if err != nil {
		fmt.Printf("configuration file read error: %v", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Printf("failed to create a logger: %v", err)
		os.Exit(1)
	}

	log.With(logger.Fields{"module": "logger"}).Debug("newLogger created ok")

	nodeCfg, err := ConvertConfigNode(cfg.Node)
	if err != nil {
		log.With(logger.Fields{"module": "config"}).Errorf("invalid node configuration: %v", err)
		os.Exit(1)
	}

	if cfg.Node.Network != "" {
		ip, err := artnet.FindArtNetIP(cfg.Node.Network)
		switch {
		case err != nil:
			log.With(logger.Fields{"module": "art-net"}).Warnf("failed to find the art-net IP: %v", err)
		case ip == nil:
			log.With(logger.Fields{"module": "art-net"}).Warnf("no interface found in %s", cfg.Node.Network)
		default:
			log.With(logger.Fields{"module": "art-net"}).Infof("Using ArtNet IP %s", ip)
		}
	}

	node := artnet.NewNode(log, nodeCfg)

	if err := watch(log, node.Universes(), cfg.Node); err != nil {
		log.With(logger.Fields{"module": "config"}).Errorf("invalid watch list: %v", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	var client *clientmqtt.ClientMQTT
	if cfg.MQTT.Enabled {
		client = clientmqtt.NewClient(log, ConvertConfigClientMQTT(cfg.MQTT))
		if err = client.Start(ctx); err != nil {
			log.Error("failed to start MQTT service:", err.Error())
			os.Exit(1)
		}
		client.Attach(node.Universes())
	}

	if err = node.Start(); err != nil {
		log.Error("failed to start art-net service:", err.Error())
		cancel()
	}

	go node.ReportStats(ctx, cfg.Node.StatsInterval.Duration)

	select {
	case <-ctx.Done():
	case <-node.Done():
		if err := node.Err(); err != nil {
			log.Error("art-net receive loop failed:", err.Error())
		}
	}

	if err := node.Stop(); err != nil && !errors.Is(err, artnet.ErrNotRunning) {
		log.Error("failed to stop art-net service:", err.Error())
	}

	if client != nil {
		if err := client.Stop(); err != nil {
			log.Error("failed to stop MQTT service:", err.Error())
		}
	}

	log.Info("shutdown complete")
}

// ConvertConfigNode преобразует структуры.
func ConvertConfigNode(cfg config.NodeConf) (artnet.NodeConfig, error) {
	universes, err := cfg.AllowedUniverses()
	if err != nil {
		return artnet.NodeConfig{}, err
	}
	sources, err := artnet.ParseNetworks(cfg.Sources)
	if err != nil {
		return artnet.NodeConfig{}, err
	}
	return artnet.NodeConfig{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Universes:   universes,
		ReusePort:   cfg.ReusePort,
		ReadBuffer:  cfg.ReadBuffer,
		ReadTimeout: cfg.ReadTimeout.Duration,
		Sources:     sources,
	}, nil
}

// ConvertConfigClientMQTT преобразует структуры.
func ConvertConfigClientMQTT(cfg config.MQTTConf) clientmqtt.MQTTConf {
	return clientmqtt.MQTTConf{
		ClientID:    cfg.ClientID,
		Schema:      "tcp",
		Host:        cfg.Host,
		Port:        cfg.Port,
		User:        cfg.User,
		Password:    cfg.Password,
		Qos:         cfg.Qos,
		Retain:      cfg.Retain,
		TopicPrefix: cfg.TopicPrefix,
	}
}

// watch logs every change of the configured channels.
func watch(log *logger.Log, r *artnet.Registry, cfg config.NodeConf) error {
	points, err := cfg.WatchPoints()
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	wlog := log.With(logger.Fields{"module": "watch"})
	handler := func(ev artnet.ValueChangeEvent) {
		wlog.Infof("Channel %d.%d went from %d to %d (update %d)", ev.Universe, ev.Channel, ev.OldValue, ev.NewValue, ev.Sequence)
	}

	r.OnCreate(func(u *artnet.Universe) {
		for _, p := range points {
			if p.Universe == u.ID() {
				u.Channel(int(p.Channel)).Subscribe(handler)
			}
		}
	})
	return nil
}
