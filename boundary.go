package main

import (
	"github.com/elijahnyp/device_controller/controller"
	. "github.com/elijahnyp/device_controller/util"
)

// SentinelDescription is handed to the host whenever a call cannot produce
// a real description.
const SentinelDescription = "unknown|Faulted|0|"

// FaultReason is recorded in the fault attribute by fault_device_state.
const FaultReason = "host"

type describer interface {
	Describe() (string, error)
}

func describeOrSentinel(ctrl describer) (desc string) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error().Msgf("recovered while describing device: %v", r)
			desc = SentinelDescription
		}
	}()
	d, err := ctrl.Describe()
	if err != nil {
		return SentinelDescription
	}
	return d
}

func outcomeOrSentinel(out controller.Outcome, err error) string {
	if err != nil {
		Logger.Error().Err(err).Msg("unable to describe device after transition")
		return SentinelDescription
	}
	return out.Description
}

// hostDescribe, hostAdvance and hostFault are the Go side of the exported
// C functions. They never panic and never return an empty string.
func hostDescribe() (desc string) {
	defer recoverSentinel("get_device_description", &desc)
	h, err := acquireHost()
	if err != nil {
		Logger.Error().Err(err).Msg("device unavailable")
		return SentinelDescription
	}
	return describeOrSentinel(h.ctrl)
}

func hostAdvance() (desc string) {
	defer recoverSentinel("set_device_state", &desc)
	h, err := acquireHost()
	if err != nil {
		Logger.Error().Err(err).Msg("device unavailable")
		return SentinelDescription
	}
	return outcomeOrSentinel(h.ctrl.Advance())
}

func hostFault(reason string) (desc string) {
	defer recoverSentinel("fault_device_state", &desc)
	h, err := acquireHost()
	if err != nil {
		Logger.Error().Err(err).Msg("device unavailable")
		return SentinelDescription
	}
	return outcomeOrSentinel(h.ctrl.Fault(reason))
}

func recoverSentinel(call string, desc *string) {
	if r := recover(); r != nil {
		Logger.Error().Msgf("recovered panic in %s: %v", call, r)
		*desc = SentinelDescription
	}
}
