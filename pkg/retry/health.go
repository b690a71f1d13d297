package retry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"lodgeworks/pkg/logger"
)

// PingFunc checks store reachability, typically a Mongo ping.
type PingFunc func(ctx context.Context) error

// Probe is the production HealthSignal: a background loop that pings the
// store on an interval and flips an atomic flag. Stop marks the store
// permanently unhealthy so in-flight callers fail fast during shutdown.
type Probe struct {
	ping     PingFunc
	interval time.Duration
	log      *logger.Logger

	healthy  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewProbe(log *logger.Logger, ping PingFunc, interval time.Duration) *Probe {
	p := &Probe{
		ping:     ping,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	p.healthy.Store(true)
	return p
}

func (p *Probe) Healthy() bool {
	return p.healthy.Load()
}

// Start launches the probe loop. It returns immediately.
func (p *Probe) Start() {
	go p.run()
}

func (p *Probe) run() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.check()
		}
	}
}

func (p *Probe) check() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	err := p.ping(ctx)
	was := p.healthy.Swap(err == nil)
	switch {
	case err != nil && was:
		p.log.Error("Store health probe failed, marking unhealthy", "error", err)
	case err == nil && !was:
		p.log.Info("Store health probe recovered, marking healthy")
	}
}

// Stop halts the loop and pins the signal to unhealthy.
func (p *Probe) Stop() {
	p.stopOnce.Do(func() {
		p.healthy.Store(false)
		close(p.stop)
		<-p.done
	})
}

// StaticHealth is a fixed HealthSignal for wiring and tests.
type StaticHealth bool

func (s StaticHealth) Healthy() bool { return bool(s) }
