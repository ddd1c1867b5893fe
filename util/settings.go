package util

import (
	"crypto/rand"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/elijahnyp/device_controller/state"
)

const ENV_PREFIX = "DEVICECTL"

var Config = viper.New()

var (
	config_listeners []func()
	listenersMu      sync.Mutex
	watching         bool
)

func RegisterNewConfigListener(new_listener func()) {
	listenersMu.Lock()
	defer listenersMu.Unlock()
	for _, listener := range config_listeners {
		if reflect.ValueOf(new_listener).Pointer() == reflect.ValueOf(listener).Pointer() {
			Logger.Warn().Msg("config listener already registered")
			return
		}
	}
	config_listeners = append(config_listeners, new_listener)
}

func ClearConfigListeners() {
	listenersMu.Lock()
	defer listenersMu.Unlock()
	config_listeners = nil
}

func OnNewConfig() {
	listenersMu.Lock()
	listeners := append([]func(){}, config_listeners...)
	listenersMu.Unlock()
	for _, listener := range listeners {
		listener()
	}
}

func GetRandString(n int) string {
	// using crypto/rand for better security
	const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		randBytes := make([]byte, 1)
		if _, err := rand.Read(randBytes); err != nil {
			// fallback to a simple approach if crypto/rand fails
			b[i] = letterBytes[i%len(letterBytes)]
		} else {
			b[i] = letterBytes[int(randBytes[0])%len(letterBytes)]
		}
	}
	return string(b)
}

func SetupConfig() {
	Config.SetEnvPrefix(ENV_PREFIX)
	Config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// set defaults
	Config.SetDefault("Device_id", "dev-0")
	Config.SetDefault("Log_level", "warn")
	Config.SetDefault("Log_file", "")
	Config.SetDefault("Track_updates", false)
	Config.SetDefault("Queue_size", 64)
	Config.SetDefault("Mqtt.enabled", false)
	Config.SetDefault("Mqtt.broker_uri", "tcp://mqtt")
	Config.SetDefault("Mqtt.id_base", "device_controller")
	Config.SetDefault("Mqtt.username", "")
	Config.SetDefault("Mqtt.password", "")
	Config.SetDefault("Mqtt.cleansess", false)
	Config.SetDefault("Mqtt.topic_base", "devicectl")
	Config.SetDefault("Mqtt.payload_format", "text")
	Config.SetDefault("Mqtt.ping_interval", 10)
	Config.SetDefault("Mqtt.ha_discovery", true)
	Config.SetDefault("Monitor.enabled", false)
	Config.SetDefault("Monitor.port", 8089)

	// config file
	Config.SetConfigName("device_controller")
	Config.AddConfigPath("/")
	Config.AddConfigPath("./")
	Config.AddConfigPath("./config")
	Config.AddConfigPath("/etc")
	Config.AddConfigPath("/device_controller")
	Config.AddConfigPath("/device_controller/config")

	err := Config.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			Logger.Debug().Msg("no config file found, using defaults and environment")
		} else {
			Logger.Error().Msgf("unable to read config file: %v", err)
		}
	}

	// environment variables
	Config.AutomaticEnv()

	// watch for changes
	if err == nil && !watching {
		watching = true
		Config.WatchConfig()
		Config.OnConfigChange(func(e fsnotify.Event) {
			Logger.Info().Msgf("Config file changed: %v", e.Name)
			Logger.Debug().Msgf("Config Additional Info: %v", e.String())
			OnNewConfig()
		})
	}
}

// DeviceIdentity reads device_id; "auto" draws a fresh random UUID.
func DeviceIdentity() string {
	id := strings.TrimSpace(Config.GetString("device_id"))
	if strings.EqualFold(id, "auto") {
		return uuid.NewString()
	}
	return id
}

// DeviceAttributes reads the ordered `attributes` list of {name, value}.
func DeviceAttributes() []state.Attribute {
	var attrs []state.Attribute
	if err := Config.UnmarshalKey("attributes", &attrs); err != nil {
		Logger.Error().Msgf("error unmarshaling attributes: %v", err)
		return nil
	}
	return attrs
}
