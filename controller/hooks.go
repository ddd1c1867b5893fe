package controller

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// RegisterUpdateHook adds or replaces the hook stored under name; a nil hook
// removes it. Hooks run on the dispatcher goroutine, one update at a time
// in revision order, never on the caller's thread.
func (c *Controller) RegisterUpdateHook(name string, hook func(Update)) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	if hook == nil {
		delete(c.hooks, name)
		return
	}
	if _, exists := c.hooks[name]; exists {
		c.log.Debug().Msgf("replacing update hook %s", name)
	}
	c.hooks[name] = hook
}

func (c *Controller) hasHooks() bool {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()
	return len(c.hooks) > 0
}

type dispatcher struct {
	queue   chan Update
	done    chan struct{}
	dropped atomic.Uint64
}

func (c *Controller) startDispatcher(size int) *dispatcher {
	d := &dispatcher{
		queue: make(chan Update, size),
		done:  make(chan struct{}),
	}
	go c.dispatchRoutine(d)
	return d
}

// enqueue never blocks; a full queue drops the update. Drops are counted
// and summarized once by the dispatcher when it catches up.
func (d *dispatcher) enqueue(u Update, log zerolog.Logger) {
	select {
	case d.queue <- u:
	default:
		d.dropped.Add(1)
		log.Debug().Msgf("update queue full, dropping revision %d", u.Snapshot.Revision)
	}
}

func (d *dispatcher) stop() {
	close(d.queue)
	<-d.done
}

func (c *Controller) dispatchRoutine(d *dispatcher) {
	defer close(d.done)
	for u := range d.queue {
		if n := d.dropped.Swap(0); n > 0 {
			c.log.Info().Msgf("%d updates dropped before revision %d", n, u.Snapshot.Revision)
		}
		c.hooksMu.RLock()
		hooks := make(map[string]func(Update), len(c.hooks))
		for name, h := range c.hooks {
			hooks[name] = h
		}
		c.hooksMu.RUnlock()

		for name, h := range hooks {
			c.deliver(name, h, u)
		}
	}
}

// deliver recovers hook panics; the dispatcher outlives any single hook.
func (c *Controller) deliver(name string, hook func(Update), u Update) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Msgf("update hook %s panicked: %v", name, r)
		}
	}()
	hook(u)
}
