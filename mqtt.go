package main

import (
	"strings"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"github.com/elijahnyp/device_controller/codec"
	"github.com/elijahnyp/device_controller/controller"
	"github.com/elijahnyp/device_controller/state"
	. "github.com/elijahnyp/device_controller/util"
)

const (
	publisherHook = "mqtt"
	announceHook  = "announce"
)

// statePublisher mirrors the device onto MQTT: retained mode and
// description on every update, plus availability and HA discovery.
type statePublisher struct {
	ctrl *controller.Controller

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func newStatePublisher(ctrl *controller.Controller) *statePublisher {
	return &statePublisher{ctrl: ctrl}
}

func (p *statePublisher) topicBase() string {
	base := strings.TrimSuffix(Config.GetString("mqtt.topic_base"), "/")
	return base + "/" + TopicSafe(p.ctrl.Identity())
}

func (p *statePublisher) stateTopic() string        { return p.topicBase() + "/state" }
func (p *statePublisher) descriptionTopic() string  { return p.topicBase() + "/description" }
func (p *statePublisher) availabilityTopic() string { return p.topicBase() + "/online" }

// Start connects in the background so the caller that brought the device
// up is never held by the broker.
func (p *statePublisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stop = make(chan struct{})

	RegisterMQTTConnectHook(announceHook, p.announce)
	p.ctrl.RegisterUpdateHook(publisherHook, p.OnDeviceUpdate)

	stop := p.stop
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.connect()
		p.onlinePinger(stop)
	}()
}

func (p *statePublisher) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.mu.Unlock()

	p.wg.Wait()
	p.ctrl.RegisterUpdateHook(publisherHook, nil)
	RegisterMQTTConnectHook(announceHook, nil)
	MqttClose()
}

func (p *statePublisher) Restart() {
	p.Stop()
	p.Start()
}

func (p *statePublisher) connect() {
	if err := MqttInit(p.availabilityTopic()); err != nil {
		Logger.Warn().Msgf("mqtt unavailable, will retry: %v", err)
	}
}

// onlinePinger keeps availability fresh and retries the initial connection;
// once connected the client reconnects on its own.
func (p *statePublisher) onlinePinger(stop <-chan struct{}) {
	interval := time.Duration(Config.GetInt("mqtt.ping_interval")) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !MqttConnected() {
				p.connect()
				continue
			}
			if err := Publish(p.availabilityTopic(), true, "online"); err != nil {
				Logger.Error().Msgf("Error publishing online message: %v", err)
			}
		}
	}
}

// announce runs on every (re)connect.
func (p *statePublisher) announce(client MQTT.Client) {
	if Config.GetBool("mqtt.ha_discovery") {
		identity := p.ctrl.Identity()
		AdvertiseHA(ConstructHAAdvertisement(identity, p.stateTopic(), p.availabilityTopic(), modeNames()), identity, client)
	}
	snap := p.ctrl.Snapshot()
	desc, err := codec.Render(snap)
	if err != nil {
		Logger.Error().Err(err).Msg("unable to render device description")
		return
	}
	p.publish(snap, desc)
}

func modeNames() []string {
	modes := state.Modes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.String()
	}
	return names
}

func (p *statePublisher) OnDeviceUpdate(u controller.Update) {
	p.publish(u.Snapshot, u.Description)
}

func (p *statePublisher) publish(snap state.DeviceState, desc string) {
	if err := Publish(p.stateTopic(), true, snap.Mode.String()); err != nil {
		Logger.Debug().Msgf("state not published: %v", err)
		return
	}
	payload, err := p.descriptionPayload(snap, desc)
	if err != nil {
		Logger.Error().Err(err).Msg("unable to encode description payload")
		return
	}
	if err := Publish(p.descriptionTopic(), true, payload); err != nil {
		Logger.Debug().Msgf("description not published: %v", err)
	}
}

func (p *statePublisher) descriptionPayload(snap state.DeviceState, desc string) (interface{}, error) {
	switch strings.ToLower(Config.GetString("mqtt.payload_format")) {
	case "cbor":
		return codec.MarshalCBOR(snap)
	default:
		return desc, nil
	}
}
