package util

import (
	"encoding/json"
	"strings"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

type HAAvdvertisementAvailability struct {
	Topic               string `json:"topic"`                 // : "devicectl/dev-0/online"
	PayloadAvailable    string `json:"payload_available"`     // : "online"
	PayloadNotAvailable string `json:"payload_not_available"` // : "offline"
}

type HADeviceSpec struct {
	Name        string   `json:"name"` // : "dev-0"
	Identifiers []string `json:"ids"`  // : ["device_controller_dev-0"]
}

type HAAdvertisement struct { //nolint:govet // struct layout optimized for JSON field order
	HAAvdvertisementAvailability []HAAvdvertisementAvailability `json:"availability"`
	Device                       HADeviceSpec                   `json:"device"`
	UniqueID                     string                         `json:"uniq_id"`
	Name                         string                         `json:"name"`
	StateTopic                   string                         `json:"state_topic"`
	DeviceClass                  string                         `json:"device_class"` // : "enum"
	Options                      []string                       `json:"options"`
	Platform                     string                         `json:"platform"` // : "sensor"
	Qos                          int                            `json:"qos"`
}

func (ha HAAdvertisement) ToJson() string {
	data, err := json.Marshal(ha)
	if err != nil {
		Logger.Error().Msgf("Error marshalling HAAdvertisement: %v", err)
		return ""
	}
	return string(data)
}

var topicReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_")

// TopicSafe makes s usable as a single MQTT topic level.
func TopicSafe(s string) string {
	return topicReplacer.Replace(s)
}

func ConstructHAAdvertisement(identity, stateTopic, availability string, modes []string) HAAdvertisement {
	id := TopicSafe(identity)
	return HAAdvertisement{
		Name:       "mode",
		StateTopic: stateTopic,
		HAAvdvertisementAvailability: []HAAvdvertisementAvailability{
			{
				Topic:               availability,
				PayloadAvailable:    "online",
				PayloadNotAvailable: "offline",
			},
		},
		Qos:         0,
		UniqueID:    "device_controller-" + id + "-mode",
		DeviceClass: "enum",
		Options:     modes,
		Platform:    "sensor",
		Device: HADeviceSpec{
			Name:        identity,
			Identifiers: []string{"device_controller_" + id},
		},
	}
}

func HADiscoveryTopic(identity string) string {
	return "homeassistant/sensor/" + TopicSafe(identity) + "/mode/config"
}

func AdvertiseHA(ha HAAdvertisement, identity string, client MQTT.Client) {
	if token := client.Publish(HADiscoveryTopic(identity), 0, true, ha.ToJson()); token.WaitTimeout(mqttTimeout) && token.Error() != nil {
		Logger.Error().Msgf("Error Publishing: %v", token.Error())
	}
}
