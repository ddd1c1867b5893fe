package util

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// MonitorServer serves read-only status pages on its own mux so a host
// process embedding the library keeps http.DefaultServeMux to itself.
type MonitorServer struct {
	running *sync.Mutex
	srv     *http.Server
	srvMu   sync.RWMutex // protects srv field
	mux     *http.ServeMux
	port    func() int
}

func NewMonitorServer() *MonitorServer {
	var s MonitorServer
	s.running = &sync.Mutex{}
	s.srv = &http.Server{}
	s.mux = http.NewServeMux()
	s.port = func() int { return Config.GetInt("monitor.port") }
	return &s
}

func (s *MonitorServer) Handler() http.Handler {
	return s.mux
}

func (s *MonitorServer) Start() error {
	if !s.running.TryLock() {
		return fmt.Errorf("already running")
	}
	newSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port()),
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.srvMu.Lock()
	s.srv = newSrv
	s.srvMu.Unlock()

	go func() {
		defer s.running.Unlock()
		if err := newSrv.ListenAndServe(); err != http.ErrServerClosed {
			Logger.Warn().Msgf("Problem loading monitor server: %v", err)
		}
		Logger.Debug().Msg("monitor server shutdown")
	}()
	return nil
}

func (s *MonitorServer) AddHandler(path string, handler func(http.ResponseWriter, *http.Request)) {
	s.mux.HandleFunc(path, handler)
}

// Stop shuts the server down and waits until it has released the port.
func (s *MonitorServer) Stop() {
	if !s.running.TryLock() { // only shutdown if running
		Logger.Debug().Msg("monitor server running, shutting it down")

		s.srvMu.RLock()
		currentSrv := s.srv
		s.srvMu.RUnlock()

		if currentSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := currentSrv.Shutdown(ctx); err != nil {
				Logger.Error().Msgf("Error shutting down monitor server: %v", err)
			}
		}
	} else {
		s.running.Unlock()
	}
	Logger.Debug().Msg("waiting for shutdown")
	s.running.Lock() // when server shuts down it will unlock, so wait for unlock
	s.running.Unlock()
}

func (s *MonitorServer) Restart() {
	Logger.Debug().Msg("restarting monitor server")
	s.Stop()
	Logger.Debug().Msg("http not running - good for startup")
	if err := s.Start(); err != nil {
		Logger.Error().Msgf("Error starting monitor server: %v", err)
	}
}
