package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is the periodic resync interval.
const DefaultInterval = 5 * time.Minute

// Connectivity reports whether the network is worth trying.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// AlwaysOnline never skips a run.
type AlwaysOnline struct{}

func (AlwaysOnline) Online(context.Context) bool { return true }

// DialProbe reports online when a TCP connection to the host of Endpoint can
// be opened.
type DialProbe struct {
	Endpoint func() string
	Timeout  time.Duration
}

func (p DialProbe) Online(ctx context.Context) bool {
	u, err := url.Parse(p.Endpoint())
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Host
	if u.Port() == "" {
		port := "443"
		if u.Scheme == "http" {
			port = "80"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

type job struct {
	engine *Engine
	probe  Connectivity
}

// Scheduler runs a background fetch for every registered engine on a fixed
// interval. Runs may overlap with manual syncs.
type Scheduler struct {
	interval time.Duration
	cron     *cron.Cron

	mu   sync.Mutex
	jobs []job
}

// NewScheduler returns a scheduler firing every interval.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{interval: interval, cron: cron.New()}
}

// Add registers an engine. A nil probe means always online.
func (s *Scheduler) Add(engine *Engine, probe Connectivity) {
	if probe == nil {
		probe = AlwaysOnline{}
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, job{engine: engine, probe: probe})
	s.mu.Unlock()
}

// RunOnce runs one background fetch for every engine whose probe reports
// online, and returns how many ran.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.mu.Lock()
	jobs := append([]job(nil), s.jobs...)
	s.mu.Unlock()

	ran := 0
	for _, j := range jobs {
		if !j.probe.Online(ctx) {
			slog.Info("offline, skipping periodic sync", "unit", j.engine.Unit())
			continue
		}
		ran++
		// Errors are logged and recorded in the engine status.
		_ = j.engine.Fetch(ctx, ModeBackground)
	}
	return ran
}

// Start schedules RunOnce on the interval.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduling periodic sync: %w", err)
	}
	s.cron.Start()
	slog.Info("periodic sync scheduled", "interval", s.interval)
	return nil
}

// Stop stops scheduling and waits for a running sync to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
