package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/elijahnyp/device_controller/state"
)

// wireState is the binary snapshot. Attributes travel as an array of pairs
// so their order survives the round trip.
type wireState struct {
	Identity   string      `cbor:"1,keyasint"`
	Mode       string      `cbor:"2,keyasint"`
	Revision   uint64      `cbor:"3,keyasint"`
	Attributes [][2]string `cbor:"4,keyasint,omitempty"`
}

var (
	snapshotEncMode cbor.EncMode
	snapshotDecMode cbor.DecMode
	modeErr         error
)

func init() {
	snapshotEncMode, modeErr = cbor.CoreDetEncOptions().EncMode()
	if modeErr != nil {
		return
	}
	snapshotDecMode, modeErr = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
}

func MarshalCBOR(s state.DeviceState) ([]byte, error) {
	if modeErr != nil {
		return nil, fmt.Errorf("cbor encoder: %w", modeErr)
	}
	w := wireState{
		Identity: s.Identity,
		Mode:     s.Mode.String(),
		Revision: s.Revision,
	}
	for _, a := range s.Attributes.All() {
		w.Attributes = append(w.Attributes, [2]string{a.Name, a.Value})
	}
	return snapshotEncMode.Marshal(w)
}

func UnmarshalCBOR(data []byte) (state.DeviceState, error) {
	if modeErr != nil {
		return state.DeviceState{}, fmt.Errorf("cbor decoder: %w", modeErr)
	}
	var w wireState
	if err := snapshotDecMode.Unmarshal(data, &w); err != nil {
		return state.DeviceState{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	mode, err := state.ParseMode(w.Mode)
	if err != nil {
		return state.DeviceState{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	attrs := make([]state.Attribute, 0, len(w.Attributes))
	for _, pair := range w.Attributes {
		attrs = append(attrs, state.Attribute{Name: pair[0], Value: pair[1]})
	}
	return state.DeviceState{
		Identity:   w.Identity,
		Mode:       mode,
		Attributes: state.NewAttributes(attrs...),
		Revision:   w.Revision,
	}, nil
}
