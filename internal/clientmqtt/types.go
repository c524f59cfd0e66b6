package clientmqtt

type MQTTConf struct {
	ClientID    string // ClientID - уникальное имя клиента для брокеров.
	Schema      string // Schema - тип подключения.
	Host        string // Host - адрес MQTT сервера.
	Port        string // Port - порт MQTT сервера.
	User        string // User - логин для подключения к MQTT серверу.
	Password    string // Password - пароль для подключения к MQTT серверу.
	Qos         byte   // Qos - качество обслуживания.
	Retain      bool   // Retain - флаг retained.
	TopicPrefix string // TopicPrefix - префикс топиков.
}

// DMXCommand is one changed channel.
type DMXCommand struct {
	Channel uint16 `json:"channel"` // Channel is the channel a command can talk to (0-511).
	Value   uint8  `json:"value"`   // Value is the value a DMX channel can represent (0-255).
	Old     uint8  `json:"old"`     // Old is the value before the change.
}

type Payload []DMXCommand

// Message is published once per frame that changed at least one channel.
type Message struct {
	Universe uint16  `json:"universe"`
	Address  string  `json:"address"`
	Sequence uint64  `json:"sequence"`
	Changes  Payload `json:"changes"`
}
