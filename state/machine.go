package state

// Validator checks an attribute before it is written into the state.
type Validator func(Attribute) error

// Machine owns a single DeviceState and enforces the transition table.
// It does no locking of its own; the controller serializes access.
type Machine struct {
	current  DeviceState
	validate Validator
}

// NewMachine builds a machine in Uninitialized mode at revision 0. The
// initial attributes are not validated here.
func NewMachine(identity string, attrs []Attribute, validate Validator) *Machine {
	return &Machine{
		current: DeviceState{
			Identity:   identity,
			Mode:       Uninitialized,
			Attributes: NewAttributes(attrs...),
		},
		validate: validate,
	}
}

func (m *Machine) Snapshot() DeviceState {
	return m.current.Clone()
}

func (m *Machine) Initialized() bool {
	return m.current.Mode != Uninitialized
}

// Initialize moves an Uninitialized machine to Idle. It is part of bringing
// the machine up rather than a mutation, so the revision is left alone.
// Calling it again is a no-op.
func (m *Machine) Initialize() DeviceState {
	if !m.Initialized() {
		to, _ := Next(Uninitialized, EventInitialize)
		m.current.Mode = to
	}
	return m.Snapshot()
}

// Apply validates ev against the current mode and, on success, installs a
// new state with the next mode, the merged attributes and the revision
// bumped by one. On error the current state is unchanged.
func (m *Machine) Apply(ev Event) (DeviceState, error) {
	to, err := Next(m.current.Mode, ev.Kind)
	if err != nil {
		return m.Snapshot(), err
	}
	if m.validate != nil {
		for _, attr := range ev.Attributes {
			if err := m.validate(attr); err != nil {
				return m.Snapshot(), err
			}
		}
	}

	m.current = DeviceState{
		Identity:   m.current.Identity,
		Mode:       to,
		Attributes: m.current.Attributes.Merge(ev.Attributes),
		Revision:   m.current.Revision + 1,
	}
	return m.Snapshot(), nil
}
