package main

import (
	"fmt"
	"sync"

	"github.com/elijahnyp/device_controller/controller"
	. "github.com/elijahnyp/device_controller/util"
)

const hubHook = "websocket"

// host is everything the library brings up on the first C call: config,
// logging, the controller and whichever status surfaces are enabled.
type host struct {
	ctrl      *controller.Controller
	hub       *WSHub
	monitor   *MonitorServer
	publisher *statePublisher

	surfacesMu     sync.Mutex
	monitorRunning bool
}

var (
	hostMu  sync.Mutex
	current *host
)

// acquireHost returns the process host, building it on first use.
func acquireHost() (*host, error) {
	hostMu.Lock()
	defer hostMu.Unlock()
	if current == nil {
		h, err := newHost()
		if err != nil {
			return nil, err
		}
		current = h
	}
	return current, nil
}

func newHost() (*host, error) {
	SetupConfig()
	LogInit(Config.GetString("log_level"))

	logger := Logger
	opts := controller.Options{
		Identity:     DeviceIdentity(),
		Attributes:   DeviceAttributes(),
		TrackUpdates: Config.GetBool("track_updates"),
		QueueSize:    Config.GetInt("queue_size"),
		Logger:       &logger,
	}
	ctrl, err := controller.New(opts)
	if err != nil {
		Logger.Error().Msgf("%v; falling back to %s", err, controller.DefaultIdentity)
		opts.Identity = controller.DefaultIdentity
		if ctrl, err = controller.New(opts); err != nil {
			return nil, fmt.Errorf("building controller: %w", err)
		}
	}
	ctrl.Init()

	h := &host{
		ctrl:      ctrl,
		hub:       NewHub(),
		monitor:   NewMonitorServer(),
		publisher: newStatePublisher(ctrl),
	}
	go h.hub.Run()

	h.monitor.AddHandler("/api/device", h.APIDevice)
	h.monitor.AddHandler("/api/device/description", h.APIDescription)
	h.monitor.AddHandler("/ws", h.ServeWebSocket)

	RegisterNewConfigListener(h.applyConfig)
	h.applyConfig()

	Logger.Info().Msgf("device %s ready", ctrl.Identity())
	return h, nil
}

// applyConfig runs at startup and on every config file change. Identity
// and initial attributes are read once; everything else follows the file.
func (h *host) applyConfig() {
	if err := SetLogFile(Config.GetString("log_file")); err != nil {
		Logger.Error().Err(err).Msg("keeping current log output")
	}
	LogInit(Config.GetString("log_level"))

	h.surfacesMu.Lock()
	defer h.surfacesMu.Unlock()

	if Config.GetBool("mqtt.enabled") {
		h.publisher.Restart()
	} else {
		h.publisher.Stop()
	}

	switch {
	case Config.GetBool("monitor.enabled") && h.monitorRunning:
		h.monitor.Restart()
	case Config.GetBool("monitor.enabled"):
		if err := h.monitor.Start(); err != nil {
			Logger.Error().Msgf("Error starting monitor server: %v", err)
		} else {
			h.monitorRunning = true
		}
	case h.monitorRunning:
		h.monitor.Stop()
		h.monitorRunning = false
	}

	// the hub only sees updates while someone can connect to it
	if h.monitorRunning {
		h.ctrl.RegisterUpdateHook(hubHook, h.hub.OnDeviceUpdate)
	} else {
		h.ctrl.RegisterUpdateHook(hubHook, nil)
	}
}

func (h *host) close() {
	h.surfacesMu.Lock()
	h.monitor.Stop()
	h.monitorRunning = false
	h.publisher.Stop()
	h.surfacesMu.Unlock()

	h.ctrl.RegisterUpdateHook(hubHook, nil)
	h.hub.Stop()
	h.ctrl.Close()
}

// teardownHost drops the process host; the next call starts from a fresh
// device at revision 0.
func teardownHost() {
	hostMu.Lock()
	defer hostMu.Unlock()
	if current == nil {
		return
	}
	ClearConfigListeners()
	current.close()
	current = nil
}
