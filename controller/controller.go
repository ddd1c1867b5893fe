// Package controller is the single authority over one device's state. All
// reads and writes go through a Controller, which serializes them with one
// RWMutex: descriptions share the lock, transitions take it exclusively.
package controller

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/elijahnyp/device_controller/codec"
	"github.com/elijahnyp/device_controller/state"
)

const (
	DefaultIdentity  = "dev-0"
	DefaultQueueSize = 64

	FaultAttribute   = "fault"
	UpdatedAttribute = "updated"
)

type Options struct {
	Identity   string
	Attributes []state.Attribute
	// TrackUpdates stamps UpdatedAttribute with the unix time on every
	// successful transition.
	TrackUpdates bool
	QueueSize    int
	Clock        func() time.Time
	Logger       *zerolog.Logger
}

// Update is delivered to hooks after every successful transition.
type Update struct {
	Snapshot    state.DeviceState
	Description string
	Event       state.EventKind
}

// Outcome is the result of a mutating call. A rejected transition is not an
// error: Rejected says why, and Description shows the unchanged state.
type Outcome struct {
	Snapshot    state.DeviceState
	Description string
	Event       state.EventKind
	Applied     bool
	Rejected    error
}

type Controller struct {
	mu       sync.RWMutex
	opts     Options
	log      zerolog.Logger
	machine  *state.Machine
	dispatch *dispatcher

	hooksMu sync.RWMutex
	hooks   map[string]func(Update)
}

func New(opts Options) (*Controller, error) {
	if opts.Identity == "" {
		opts.Identity = DefaultIdentity
	}
	if err := codec.ValidateIdentity(opts.Identity); err != nil {
		return nil, fmt.Errorf("device identity: %w", err)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	c := &Controller{
		opts:  opts,
		log:   zerolog.Nop(),
		hooks: make(map[string]func(Update)),
	}
	if opts.Logger != nil {
		c.log = opts.Logger.With().Str("device", opts.Identity).Logger()
	}
	return c, nil
}

func (c *Controller) Identity() string {
	return c.opts.Identity
}

// Init brings the device up in Idle at revision 0. It is idempotent: later
// calls return the existing snapshot.
func (c *Controller) Init() state.DeviceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLocked()
	return c.machine.Snapshot()
}

func (c *Controller) ensureLocked() {
	if c.machine != nil {
		return
	}
	var attrs []state.Attribute
	for _, a := range c.opts.Attributes {
		if err := codec.ValidateAttribute(a); err != nil {
			c.log.Warn().Msgf("dropping initial attribute %q: %v", a.Name, err)
			continue
		}
		attrs = append(attrs, a)
	}
	c.machine = state.NewMachine(c.opts.Identity, attrs, codec.ValidateAttribute)
	c.machine.Initialize()
	c.dispatch = c.startDispatcher(c.opts.QueueSize)
	c.log.Debug().Msg("device initialized")
}

// withSnapshot runs fn on a snapshot taken under the read lock, initializing
// the device first if needed.
func (c *Controller) withSnapshot(fn func(state.DeviceState)) {
	for !c.readLocked(fn) {
		c.Init()
	}
}

func (c *Controller) readLocked(fn func(state.DeviceState)) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.machine == nil {
		return false
	}
	fn(c.machine.Snapshot())
	return true
}

func (c *Controller) Snapshot() state.DeviceState {
	var snap state.DeviceState
	c.withSnapshot(func(s state.DeviceState) { snap = s })
	return snap
}

// Describe renders the current state. It never mutates; the only error is
// a render failure, which states built by the controller do not produce.
func (c *Controller) Describe() (string, error) {
	var (
		desc string
		err  error
	)
	c.withSnapshot(func(s state.DeviceState) {
		desc, err = codec.Render(s)
	})
	if err != nil {
		c.log.Error().Err(err).Msg("unable to render device description")
	}
	return desc, err
}

// Advance applies the next event of the advancement cycle for the current
// mode: Idle and Active alternate, Faulted resets to Idle.
func (c *Controller) Advance() (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLocked()
	ev := state.NextEvent(c.machine.Snapshot().Mode)
	return c.applyLocked(state.Event{Kind: ev})
}

// Fault drives Active to Faulted and records reason in the fault attribute.
// From any other mode the request is rejected and nothing changes.
func (c *Controller) Fault(reason string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLocked()
	return c.applyLocked(state.Event{
		Kind:       state.EventFault,
		Attributes: []state.Attribute{{Name: FaultAttribute, Value: reason}},
	})
}

func (c *Controller) applyLocked(ev state.Event) (Outcome, error) {
	if c.opts.TrackUpdates {
		ev.Attributes = append(ev.Attributes, state.Attribute{
			Name:  UpdatedAttribute,
			Value: strconv.FormatInt(c.opts.Clock().Unix(), 10),
		})
	}

	snap, err := c.machine.Apply(ev)
	out := Outcome{Snapshot: snap, Event: ev.Kind}
	if err != nil {
		out.Rejected = err
		c.log.Warn().Msgf("%s rejected in %s: %v", ev.Kind, snap.Mode, err)
	} else {
		out.Applied = true
		c.log.Debug().Msgf("%s applied: now %s at revision %d", ev.Kind, snap.Mode, snap.Revision)
	}

	desc, err := codec.Render(snap)
	if err != nil {
		c.log.Error().Err(err).Msg("unable to render device description")
		return out, err
	}
	out.Description = desc

	if out.Applied && c.hasHooks() {
		c.dispatch.enqueue(Update{Snapshot: snap, Description: desc, Event: ev.Kind}, c.log)
	}
	return out, nil
}

// Close stops update delivery and forgets the device state. A later call
// on the controller starts over from a fresh Idle state at revision 0.
func (c *Controller) Close() {
	c.mu.Lock()
	d := c.dispatch
	c.machine = nil
	c.dispatch = nil
	c.mu.Unlock()

	if d != nil {
		d.stop()
	}
}
