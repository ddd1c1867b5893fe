package util

import (
	"errors"
	"fmt"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

const mqttTimeout = 5 * time.Second

var ErrNotConnected = errors.New("mqtt client not connected")

var Client MQTT.Client

var (
	clientMu          sync.Mutex
	connectHandlers   map[string]func(MQTT.Client)
	handlersMu        sync.Mutex
	availabilityTopic = "devicectl/online"
)

var connectHandler MQTT.OnConnectHandler = func(client MQTT.Client) {
	Logger.Info().Msg("Connected")
	if token := client.Publish(availabilityTopic, 0, true, "online"); token.WaitTimeout(mqttTimeout) && token.Error() != nil {
		Logger.Warn().Msgf("Error publishing availability: %v", token.Error())
	}
	handlersMu.Lock()
	handlers := make([]func(MQTT.Client), 0, len(connectHandlers))
	for _, handler := range connectHandlers {
		handlers = append(handlers, handler)
	}
	handlersMu.Unlock()
	for _, handler := range handlers {
		handler(client)
	}
}

func RegisterMQTTConnectHook(name string, handler func(MQTT.Client)) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	if connectHandlers == nil {
		connectHandlers = make(map[string]func(client MQTT.Client))
	}
	if handler == nil {
		delete(connectHandlers, name)
	} else {
		connectHandlers[name] = handler
	}
}

var connectLostHandler MQTT.ConnectionLostHandler = func(client MQTT.Client, err error) {
	Logger.Info().Msgf("Connect lost: %v", err)
}

// MqttInit (re)connects the package client. The broker sees "offline" on
// availability if the connection drops without MqttClose.
func MqttInit(availability string) error {
	availabilityTopic = availability

	opts := MQTT.NewClientOptions()
	opts.AddBroker(Config.GetString("mqtt.broker_uri"))
	opts.SetClientID(Config.GetString("mqtt.id_base") + "_" + GetRandString((6)))
	opts.SetUsername(Config.GetString("mqtt.username"))
	opts.SetPassword(Config.GetString("mqtt.password"))
	opts.SetCleanSession(Config.GetBool("mqtt.cleansess"))
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(mqttTimeout)
	opts.SetWill(availability, "offline", 0, true)
	opts.OnConnectionLost = connectLostHandler
	opts.OnConnect = connectHandler

	MqttClose()

	clientMu.Lock()
	defer clientMu.Unlock()
	client := MQTT.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("connecting to %s: timed out", Config.GetString("mqtt.broker_uri"))
	}
	if token.Error() != nil {
		return fmt.Errorf("connecting to %s: %w", Config.GetString("mqtt.broker_uri"), token.Error())
	}
	Client = client
	return nil
}

func Publish(topic string, retained bool, payload interface{}) error {
	clientMu.Lock()
	client := Client
	clientMu.Unlock()
	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}
	token := client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	return token.Error()
}

// MqttClose announces offline and disconnects; safe without a client.
func MqttClose() {
	clientMu.Lock()
	defer clientMu.Unlock()
	if Client == nil {
		return
	}
	Logger.Debug().Msg("Client exists - destroying")
	if Client.IsConnected() {
		Client.Publish(availabilityTopic, 0, true, "offline").WaitTimeout(mqttTimeout)
		Client.Disconnect(250)
	}
	Client = nil
}

func MqttConnected() bool {
	clientMu.Lock()
	defer clientMu.Unlock()
	return Client != nil && Client.IsConnected()
}
