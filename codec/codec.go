// Package codec renders a device state into its one-line text description
// and parses it back.
//
// A description has four fields separated by '|':
//
//	identity|Mode|revision|name1=value1,name2=value2
//
// The attribute field is empty when the device carries no attributes, so a
// bare device renders as "dev-0|Idle|0|". Identity, attribute names and
// attribute values are restricted to printable ASCII without the three
// delimiters; anything else is refused with ErrEncodingRejected.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/elijahnyp/device_controller/state"
)

const (
	FieldSeparator     = '|'
	AttributeSeparator = ','
	KeyValueSeparator  = '='
)

var (
	ErrEncodingRejected = errors.New("encoding rejected")
	ErrMalformed        = errors.New("malformed description")
)

func checkText(what, s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty %s", ErrEncodingRejected, what)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7e {
			return fmt.Errorf("%w: %s %q has non-printable byte at %d", ErrEncodingRejected, what, s, i)
		}
		switch c {
		case FieldSeparator, AttributeSeparator, KeyValueSeparator:
			return fmt.Errorf("%w: %s %q contains delimiter %q", ErrEncodingRejected, what, s, c)
		}
	}
	return nil
}

func ValidateIdentity(id string) error {
	return checkText("identity", id)
}

// ValidateAttribute accepts an empty value but not an empty name.
func ValidateAttribute(a state.Attribute) error {
	if err := checkText("attribute name", a.Name); err != nil {
		return err
	}
	if a.Value == "" {
		return nil
	}
	return checkText("attribute value", a.Value)
}

// Render never fails for states whose identity and attributes went through
// the validators above.
func Render(s state.DeviceState) (string, error) {
	if err := ValidateIdentity(s.Identity); err != nil {
		return "", err
	}
	if !s.Mode.Valid() {
		return "", fmt.Errorf("%w: unknown mode %d", ErrEncodingRejected, uint8(s.Mode))
	}

	var b strings.Builder
	b.WriteString(s.Identity)
	b.WriteByte(FieldSeparator)
	b.WriteString(s.Mode.String())
	b.WriteByte(FieldSeparator)
	b.WriteString(strconv.FormatUint(s.Revision, 10))
	b.WriteByte(FieldSeparator)
	for i, a := range s.Attributes.All() {
		if err := ValidateAttribute(a); err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteByte(AttributeSeparator)
		}
		b.WriteString(a.Name)
		b.WriteByte(KeyValueSeparator)
		b.WriteString(a.Value)
	}
	return b.String(), nil
}

func Parse(text string) (state.DeviceState, error) {
	fields := strings.SplitN(text, string(FieldSeparator), 4)
	if len(fields) != 4 {
		return state.DeviceState{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrMalformed, len(fields))
	}
	if err := ValidateIdentity(fields[0]); err != nil {
		return state.DeviceState{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	mode, err := state.ParseMode(fields[1])
	if err != nil {
		return state.DeviceState{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	rev, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return state.DeviceState{}, fmt.Errorf("%w: revision: %v", ErrMalformed, err)
	}

	var attrs []state.Attribute
	if fields[3] != "" {
		for _, pair := range strings.Split(fields[3], string(AttributeSeparator)) {
			name, value, ok := strings.Cut(pair, string(KeyValueSeparator))
			if !ok {
				return state.DeviceState{}, fmt.Errorf("%w: attribute %q has no value", ErrMalformed, pair)
			}
			a := state.Attribute{Name: name, Value: value}
			if err := ValidateAttribute(a); err != nil {
				return state.DeviceState{}, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			attrs = append(attrs, a)
		}
	}

	return state.DeviceState{
		Identity:   fields[0],
		Mode:       mode,
		Attributes: state.NewAttributes(attrs...),
		Revision:   rev,
	}, nil
}
