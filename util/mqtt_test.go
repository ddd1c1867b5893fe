package util

import (
	"errors"
	"sync"
	"testing"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

// Mock MQTT client for testing
type MockMQTTClient struct {
	publishCalls []PublishCall
	publishErr   error
	connected    bool
	mu           sync.RWMutex
}

type PublishCall struct {
	Payload  interface{}
	Topic    string
	QoS      byte
	Retained bool
}

func (m *MockMQTTClient) IsConnected() bool      { return m.connected }
func (m *MockMQTTClient) IsConnectionOpen() bool { return m.connected }
func (m *MockMQTTClient) Connect() MQTT.Token {
	m.connected = true
	return &MockToken{}
}
func (m *MockMQTTClient) Disconnect(quiesce uint) { m.connected = false }

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishCalls = append(m.publishCalls, PublishCall{
		Topic:    topic,
		QoS:      qos,
		Retained: retained,
		Payload:  payload,
	})
	return &MockToken{err: m.publishErr}
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, callback MQTT.MessageHandler) MQTT.Token {
	return &MockToken{}
}
func (m *MockMQTTClient) SubscribeMultiple(filters map[string]byte, callback MQTT.MessageHandler) MQTT.Token {
	return &MockToken{}
}
func (m *MockMQTTClient) Unsubscribe(topics ...string) MQTT.Token             { return &MockToken{} }
func (m *MockMQTTClient) AddRoute(topic string, callback MQTT.MessageHandler) {}
func (m *MockMQTTClient) OptionsReader() MQTT.ClientOptionsReader             { return MQTT.ClientOptionsReader{} }

func (m *MockMQTTClient) calls() []PublishCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PublishCall(nil), m.publishCalls...)
}

// Mock MQTT token
type MockToken struct {
	err error
}

func (m *MockToken) Wait() bool                     { return true }
func (m *MockToken) WaitTimeout(time.Duration) bool { return true }
func (m *MockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (m *MockToken) Error() error { return m.err }

func TestRegisterMQTTConnectHook(t *testing.T) {
	// Clear existing handlers
	connectHandlers = make(map[string]func(MQTT.Client))

	called := false
	testHandler := func(client MQTT.Client) {
		called = true
	}

	RegisterMQTTConnectHook("test_handler", testHandler)

	if len(connectHandlers) != 1 {
		t.Errorf("Expected 1 connect handler, got %d", len(connectHandlers))
	}

	mockClient := &MockMQTTClient{}
	if connectHandlers["test_handler"] != nil {
		connectHandlers["test_handler"](mockClient)
	}

	if !called {
		t.Error("Connect handler should have been called")
	}

	// Test removing a handler
	RegisterMQTTConnectHook("test_handler", nil)
	if len(connectHandlers) != 0 {
		t.Errorf("Expected 0 connect handlers after removal, got %d", len(connectHandlers))
	}
}

func TestConnectHandler(t *testing.T) {
	mockClient := &MockMQTTClient{connected: true}
	availabilityTopic = "devicectl/dev-0/online"
	connectHandlers = make(map[string]func(MQTT.Client))

	handlerCalled := false
	connectHandlers["test"] = func(client MQTT.Client) { //nolint:unparam // test parameter is required by interface
		handlerCalled = true
	}

	connectHandler(mockClient)

	calls := mockClient.calls()
	if len(calls) < 1 {
		t.Fatal("Connect handler should publish online message")
	}
	if calls[0].Topic != "devicectl/dev-0/online" || calls[0].Payload != "online" || !calls[0].Retained {
		t.Errorf("Expected retained online message to devicectl/dev-0/online, got %v to %s", calls[0].Payload, calls[0].Topic)
	}

	if !handlerCalled {
		t.Error("Custom connect handler should have been called")
	}
	connectHandlers = nil
}

func TestPublish(t *testing.T) {
	Client = nil
	if err := Publish("a/b", false, "x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish without client = %v, expected ErrNotConnected", err)
	}

	mockClient := &MockMQTTClient{connected: false}
	Client = mockClient
	if err := Publish("a/b", false, "x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish while disconnected = %v, expected ErrNotConnected", err)
	}

	mockClient.connected = true
	if err := Publish("a/b", true, "payload"); err != nil {
		t.Errorf("Publish returned error: %v", err)
	}
	calls := mockClient.calls()
	if len(calls) != 1 || calls[0].Topic != "a/b" || !calls[0].Retained {
		t.Errorf("unexpected publish calls: %+v", calls)
	}

	mockClient.publishErr = errors.New("broker said no")
	if err := Publish("a/b", false, "payload"); err == nil {
		t.Error("Publish should surface token errors")
	}
	Client = nil
}

func TestMqttClose(t *testing.T) {
	availabilityTopic = "devicectl/dev-0/online"
	mockClient := &MockMQTTClient{connected: true}
	Client = mockClient

	MqttClose()

	if Client != nil {
		t.Error("MqttClose should clear the client")
	}
	if mockClient.connected {
		t.Error("MqttClose should disconnect")
	}
	calls := mockClient.calls()
	if len(calls) != 1 || calls[0].Payload != "offline" {
		t.Errorf("MqttClose should announce offline, got %+v", calls)
	}

	// no client is fine
	MqttClose()
}

func TestMqttInit_NoBroker(t *testing.T) {
	Config.Set("mqtt.broker_uri", "tcp://127.0.0.1:1")
	Config.Set("mqtt.id_base", "test_client")
	defer Config.Set("mqtt.broker_uri", "tcp://mqtt")
	Client = nil

	if err := MqttInit("devicectl/test/online"); err == nil {
		t.Error("MqttInit should fail without a broker")
	}
	if Client != nil {
		t.Error("Client should stay nil after a failed connect")
	}
}
