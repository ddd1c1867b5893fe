package util

import (
	"os"
	"testing"

	"github.com/google/uuid"
)

func TestGetRandStringVariousLengths(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"Zero length", 0},
		{"Single character", 1},
		{"Small string", 5},
		{"Medium string", 10},
		{"Large string", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetRandString(tt.length)

			if len(result) != tt.length {
				t.Errorf("GetRandString(%d) = length %d, expected %d", tt.length, len(result), tt.length)
			}

			for i, char := range result {
				if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z')) {
					t.Errorf("GetRandString(%d) contains non-letter at position %d: %c", tt.length, i, char)
				}
			}
		})
	}
}

func TestRegisterNewConfigListener(t *testing.T) {
	ClearConfigListeners()
	defer ClearConfigListeners()

	called1 := false
	called2 := false

	listener1 := func() { called1 = true }
	listener2 := func() { called2 = true }

	RegisterNewConfigListener(listener1)
	RegisterNewConfigListener(listener2)

	if len(config_listeners) != 2 {
		t.Errorf("Expected 2 listeners, got %d", len(config_listeners))
	}

	// Test that duplicate listeners are not added
	RegisterNewConfigListener(listener1)

	if len(config_listeners) != 2 {
		t.Errorf("Expected 2 listeners after duplicate addition, got %d", len(config_listeners))
	}

	OnNewConfig()

	if !called1 || !called2 {
		t.Error("OnNewConfig should call all registered listeners")
	}
}

func TestSetupConfigDefaults(t *testing.T) {
	SetupConfig()

	if id := Config.GetString("device_id"); id != "dev-0" {
		t.Errorf("device_id default = %s, expected dev-0", id)
	}
	if level := Config.GetString("log_level"); level != "warn" {
		t.Errorf("log_level default = %s, expected warn", level)
	}
	if Config.GetBool("mqtt.enabled") {
		t.Error("mqtt should be disabled by default")
	}
	if Config.GetBool("monitor.enabled") {
		t.Error("monitor should be disabled by default")
	}
	if Config.GetInt("monitor.port") <= 0 {
		t.Errorf("monitor.port default should be positive, got %d", Config.GetInt("monitor.port"))
	}
	if Config.GetString("mqtt.payload_format") != "text" {
		t.Errorf("mqtt.payload_format default = %s", Config.GetString("mqtt.payload_format"))
	}
}

func TestSetupConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("DEVICECTL_MONITOR_PORT", "9911")
	t.Setenv("DEVICECTL_TRACK_UPDATES", "true")

	SetupConfig()

	if port := Config.GetInt("monitor.port"); port != 9911 {
		t.Errorf("monitor.port from env = %d, expected 9911", port)
	}
	if !Config.GetBool("track_updates") {
		t.Error("track_updates from env should be true")
	}
}

func TestSetupConfigFileSearch(t *testing.T) {
	tempConfigContent := `{
		"test_key": "test_value",
		"attributes": [
			{"name": "firmware", "value": "1.4.2"},
			{"name": "room", "value": "kitchen"}
		]
	}`

	expectedName := "device_controller.json"
	if err := os.WriteFile(expectedName, []byte(tempConfigContent), 0o600); err != nil {
		t.Fatalf("Failed to write temp config file: %v", err)
	}
	defer func() { _ = os.Remove(expectedName) }() //nolint:errcheck // test cleanup

	SetupConfig()

	if testValue := Config.GetString("test_key"); testValue != "test_value" {
		t.Errorf("Config file test_key = %s, expected test_value", testValue)
	}

	attrs := DeviceAttributes()
	if len(attrs) != 2 {
		t.Fatalf("DeviceAttributes() returned %d entries, expected 2", len(attrs))
	}
	if attrs[0].Name != "firmware" || attrs[0].Value != "1.4.2" || attrs[1].Name != "room" {
		t.Errorf("DeviceAttributes() = %+v, order not preserved", attrs)
	}
}

func TestDeviceIdentity(t *testing.T) {
	SetupConfig()
	defer Config.Set("device_id", "dev-0")

	Config.Set("device_id", "boiler")
	if id := DeviceIdentity(); id != "boiler" {
		t.Errorf("DeviceIdentity() = %s, expected boiler", id)
	}

	Config.Set("device_id", "auto")
	first := DeviceIdentity()
	if _, err := uuid.Parse(first); err != nil {
		t.Errorf("DeviceIdentity() with auto = %s, not a uuid: %v", first, err)
	}
	if DeviceIdentity() == first {
		t.Error("auto identities should differ per call")
	}
}

func TestDeviceAttributes_Missing(t *testing.T) {
	SetupConfig()
	Config.Set("attributes", []interface{}{})
	if attrs := DeviceAttributes(); len(attrs) != 0 {
		t.Errorf("DeviceAttributes() = %+v, expected none", attrs)
	}
}
