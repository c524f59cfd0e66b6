package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
)

// DefaultPort is the Art-Net UDP port (0x1936).
const DefaultPort = 6454

// maxUniverse is the largest 15-bit Art-Net Port-Address.
const maxUniverse = 0x7fff

// Config структура конфигурации.
type Config struct {
	Logger LogConf  `toml:"logger"` // Logger - конфигурация регистратора.
	Node   NodeConf `toml:"node"`   // Node - конфигурация приемника Art-Net.
	MQTT   MQTTConf `toml:"mqtt"`   // MQTT - конфигурация MQTT клиента.
}

// LogConf структура конфигурации.
type LogConf struct {
	Level  string `toml:"log-level"`  // Level - уровень логирования.
	Format string `toml:"log-format"` // Format - text или json.
}

// NodeConf describes the Art-Net receiver.
type NodeConf struct {
	Host          string        `toml:"host"`           // Host - local bind address, empty for all interfaces.
	Port          int           `toml:"port"`           // Port - local UDP port.
	Universes     []interface{} `toml:"universes"`      // Universes - allow-list; empty or missing accepts every universe, there is no deny-all.
	ReusePort     bool          `toml:"reuse-port"`     // ReusePort - share the port with other receivers.
	ReadBuffer    int           `toml:"read-buffer"`    // ReadBuffer - socket receive buffer in bytes, 0 keeps the OS default.
	ReadTimeout   duration      `toml:"read-timeout"`   // ReadTimeout - how long one read may block before the loop re-arms it.
	Sources       []string      `toml:"sources"`        // Sources - CIDRs of accepted senders.
	Network       string        `toml:"network"`        // Network - CIDR of the Art-Net network, used to report the local IP.
	Watch         []string      `toml:"watch"`          // Watch - "universe/channel" pairs logged on change.
	StatsInterval duration      `toml:"stats-interval"` // StatsInterval - period of the stats log line, 0 disables it.
}

// MQTTConf структура конфигурации.
type MQTTConf struct {
	Enabled     bool   `toml:"enabled"`      // Enabled - публиковать изменения каналов.
	ClientID    string `toml:"clientID"`     // ClientID - имя клиента.
	Host        string `toml:"server"`       // Host - адрес MQTT сервера.
	Port        string `toml:"port"`         // Port - порт MQTT сервера.
	User        string `toml:"user"`         // User - логин для подключения к MQTT серверу.
	Password    string `toml:"password"`     // Password - пароль для подключения к MQTT серверу.
	Qos         byte   `toml:"qos"`          // Qos - качество обслуживания.
	Retain      bool   `toml:"retain"`       // Retain - флаг retained для публикаций.
	TopicPrefix string `toml:"topic-prefix"` // TopicPrefix - префикс топиков.
}

// WatchPoint is a single channel of a universe to be reported on change.
type WatchPoint struct {
	Universe uint16
	Channel  uint16
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Default returns the configuration used when a key is missing from the file.
func Default() Config {
	return Config{
		Logger: LogConf{Level: "info", Format: "text"},
		Node: NodeConf{
			Port:          DefaultPort,
			ReadTimeout:   duration{time.Second},
			StatsInterval: duration{time.Minute},
		},
		MQTT: MQTTConf{
			Host:        "localhost",
			Port:        "1883",
			TopicPrefix: "artnet",
		},
	}
}

// NewConfig конструктор.
func NewConfig(path string) (*Config, error) {
	// default values
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return &cfg, err
	}
	if env, ok := os.LookupEnv("ARTNET_UNIVERSES"); ok {
		cfg.Node.Universes = nil
		for _, s := range strings.Split(env, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Node.Universes = append(cfg.Node.Universes, s)
			}
		}
	}
	if cfg.Node.Port < 0 || cfg.Node.Port > 0xffff {
		return &cfg, fmt.Errorf("node: port %d out of range", cfg.Node.Port)
	}
	return &cfg, nil
}

// AllowedUniverses returns the parsed allow-list. A nil result accepts every universe.
func (n NodeConf) AllowedUniverses() ([]uint16, error) {
	if len(n.Universes) == 0 {
		return nil, nil
	}
	out := make([]uint16, 0, len(n.Universes))
	for _, v := range n.Universes {
		u, err := ParseUniverse(v)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// WatchPoints parses the watch list.
func (n NodeConf) WatchPoints() ([]WatchPoint, error) {
	out := make([]WatchPoint, 0, len(n.Watch))
	for _, w := range n.Watch {
		us, cs, ok := strings.Cut(w, "/")
		if !ok {
			return nil, fmt.Errorf("watch %q: expected universe/channel", w)
		}
		u, err := ParseUniverse(us)
		if err != nil {
			return nil, fmt.Errorf("watch %q: %w", w, err)
		}
		c, err := inRange(strings.TrimSpace(cs), 511)
		if err != nil {
			return nil, fmt.Errorf("watch %q: channel must be 0-511", w)
		}
		out = append(out, WatchPoint{Universe: u, Channel: uint16(c)})
	}
	return out, nil
}

// ParseUniverse accepts a 15-bit Port-Address given as a number, a numeric
// string or the "net:sub.uni" notation.
func ParseUniverse(v interface{}) (uint16, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if netPart, rest, found := strings.Cut(s, ":"); found {
			return parseAddress(netPart, rest)
		}
		v = s
	}
	u, err := inRange(v, maxUniverse)
	if err != nil {
		return 0, fmt.Errorf("universe %v: %w", v, err)
	}
	return uint16(u), nil
}

func parseAddress(netPart, rest string) (uint16, error) {
	subPart, uniPart, ok := strings.Cut(rest, ".")
	if !ok {
		return 0, fmt.Errorf("universe %s:%s: expected net:sub.uni", netPart, rest)
	}
	n, err := inRange(netPart, 0x7f)
	if err != nil {
		return 0, fmt.Errorf("universe %s:%s: net must be 0-127", netPart, rest)
	}
	sub, err := inRange(subPart, 0x0f)
	if err != nil {
		return 0, fmt.Errorf("universe %s:%s: sub-net must be 0-15", netPart, rest)
	}
	uni, err := inRange(uniPart, 0x0f)
	if err != nil {
		return 0, fmt.Errorf("universe %s:%s: universe must be 0-15", netPart, rest)
	}
	return uint16(n)<<8 | uint16(sub)<<4 | uint16(uni), nil
}

// inRange converts v at full width and rejects anything outside 0..max,
// so oversized values are never wrapped into range.
func inRange(v interface{}, max int64) (int64, error) {
	i, err := cast.ToInt64E(v)
	if err != nil {
		return 0, err
	}
	if i < 0 || i > max {
		return 0, fmt.Errorf("%d out of range 0-%d", i, max)
	}
	return i, nil
}
