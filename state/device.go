package state

import "fmt"

// Mode is the operational status of the device.
type Mode uint8

const (
	Uninitialized Mode = iota
	Idle
	Active
	Faulted
)

var modeNames = [...]string{
	Uninitialized: "Uninitialized",
	Idle:          "Idle",
	Active:        "Active",
	Faulted:       "Faulted",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

func (m Mode) Valid() bool {
	return int(m) < len(modeNames)
}

// Modes lists every mode in declaration order.
func Modes() []Mode {
	return []Mode{Uninitialized, Idle, Active, Faulted}
}

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return Uninitialized, fmt.Errorf("unknown mode %q", s)
}

// DeviceState is the authoritative record of one device. Values returned by
// Machine.Snapshot share nothing with the machine.
type DeviceState struct {
	Identity   string
	Mode       Mode
	Attributes Attributes
	Revision   uint64
}

func (d DeviceState) Clone() DeviceState {
	d.Attributes = d.Attributes.Clone()
	return d
}
