// Package poller is the entry point for switch data: it serves fresh snapshots
// from the cache and otherwise runs one coalesced SSH poll per switch.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"

	"go-portwatch/internal/aggregate"
	"go-portwatch/internal/cache"
	"go-portwatch/internal/guard"
	"go-portwatch/internal/history"
	"go-portwatch/internal/inventory"
	"go-portwatch/internal/models"
	"go-portwatch/internal/parser"
	"go-portwatch/internal/portname"
	"go-portwatch/internal/probe"
	"go-portwatch/internal/session"
)

var (
	ErrUnknownSwitch = inventory.ErrUnknownSwitch
	ErrInvalidPort   = errors.New("invalid port name")
)

// pollCommands is the fixed command set of every poll.
var pollCommands = []string{
	parser.CmdStatus,
	parser.CmdCounters,
	parser.CmdPower,
	parser.CmdVersion,
}

// PollError is returned when a poll failed and there is no earlier snapshot to
// fall back to.
type PollError struct {
	SwitchID string
	Err      error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll %s: %v", e.SwitchID, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

type Executor interface {
	Execute(ctx context.Context, t session.Target, commands []string) ([]string, error)
	Probe(ctx context.Context, t session.Target) error
}

type NetProber interface {
	Ping(ctx context.Context, host string) probe.Result
	SysName(ctx context.Context, host, community string) probe.Result
}

// Inventory resolves switch ids. Lookup must return an error wrapping
// inventory.ErrUnknownSwitch for ids it does not know.
type Inventory interface {
	Lookup(ctx context.Context, id string) (models.Switch, error)
	List(ctx context.Context) ([]models.Switch, error)
}

type Config struct {
	Inventory Inventory
	Executor  Executor
	Prober    NetProber
	Cache     *cache.Cache
	Tracker   *history.Tracker

	Credentials session.Credentials
	// SSHPort is used for switches without their own port.
	SSHPort int
	Workers int
}

type Poller struct {
	inv     Inventory
	exec    Executor
	prober  NetProber
	cache   *cache.Cache
	tracker *history.Tracker
	creds   session.Credentials
	sshPort int
	workers int
	logger  zerolog.Logger

	polls singleflight.Group
	macs  singleflight.Group

	mu    sync.Mutex
	slots map[string]chan struct{}
}

func New(cfg Config, logger zerolog.Logger) *Poller {
	p := &Poller{
		inv:     cfg.Inventory,
		exec:    cfg.Executor,
		prober:  cfg.Prober,
		cache:   cfg.Cache,
		tracker: cfg.Tracker,
		creds:   cfg.Credentials,
		sshPort: cfg.SSHPort,
		workers: cfg.Workers,
		logger:  logger,
		slots:   make(map[string]chan struct{}),
	}
	if p.cache == nil {
		p.cache = cache.New(cache.DefaultTTL)
	}
	if p.tracker == nil {
		p.tracker = history.NewTracker(history.DefaultIdleThreshold, history.DefaultMaxEvents)
	}
	if p.sshPort == 0 {
		p.sshPort = session.DefaultPort
	}
	if p.workers <= 0 {
		p.workers = 4
	}
	return p
}

// acquire takes the per-switch session slot. Polls, MAC fetches and SSH
// probes of one switch never hold a session at the same time.
func (p *Poller) acquire(ctx context.Context, id string) (func(), error) {
	p.mu.Lock()
	slot, ok := p.slots[id]
	if !ok {
		slot = make(chan struct{}, 1)
		p.slots[id] = slot
	}
	p.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Poller) target(sw models.Switch) session.Target {
	port := sw.Port
	if port == 0 {
		port = p.sshPort
	}
	return session.Target{Host: sw.Host, Port: port, Credentials: p.creds}
}

// Poll returns the snapshot of switch id. A fresh cache entry is served
// without contacting the switch unless force is set. Concurrent callers share
// one poll; the shared poll is not cancelled when a caller gives up.
func (p *Poller) Poll(ctx context.Context, id string, force bool) (*models.Snapshot, error) {
	sw, err := p.inv.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if !force {
		if e, ok := p.cache.Get(id); ok {
			return e.Snapshot.AsCached(e.Reachable), nil
		}
	}

	ch := p.polls.DoChan(id, func() (interface{}, error) {
		return p.poll(context.WithoutCancel(ctx), sw, force)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*models.Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Poller) poll(ctx context.Context, sw models.Switch, force bool) (*models.Snapshot, error) {
	id := sw.Name
	release, err := p.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	// another poll may have completed while this one waited for the slot
	if !force {
		if e, ok := p.cache.Get(id); ok {
			return e.Snapshot.AsCached(e.Reachable), nil
		}
	}

	start := time.Now()
	outputs, err := p.exec.Execute(ctx, p.target(sw), pollCommands)
	if err != nil {
		return p.fallback(id, err)
	}

	now := p.cache.Now()
	frags, warnings := p.parse(id, outputs)
	res := aggregate.Aggregate(frags)

	var prev *history.History
	if e, ok := p.cache.Lookup(id); ok {
		prev = e.History
	}
	apply := p.tracker.Apply
	if res.CountersMissing {
		apply = p.tracker.ApplyWithoutCounters
	}
	ports, hist := apply(prev, res.Ports, now)

	snap := &models.Snapshot{
		SwitchID:   id,
		CapturedAt: now,
		Source:     models.SourceLive,
		Reachable:  models.ReachYes,
		Device:     res.Device,
		Ports:      ports,
		Warnings:   append(warnings, res.Warnings...),
	}
	p.cache.Put(id, snap, hist)

	p.logger.Info().
		Str("switch", id).
		Int("ports", len(ports)).
		Int("warnings", len(snap.Warnings)).
		Dur("took", time.Since(start)).
		Msg("poll complete")
	return snap, nil
}

// parse runs each parser on its output. A failed parser leaves its fragment
// nil and adds a warning.
func (p *Poller) parse(id string, outputs []string) (aggregate.Fragments, []string) {
	var (
		f        aggregate.Fragments
		warnings []string
	)
	fail := func(err error) {
		p.logger.Warn().Err(err).Str("switch", id).Msg("parse failed")
		warnings = append(warnings, err.Error())
	}

	if len(outputs) != len(pollCommands) {
		fail(fmt.Errorf("expected %d outputs, got %d", len(pollCommands), len(outputs)))
		return f, warnings
	}

	var err error
	if f.Status, err = parser.ParseStatus(outputs[0]); err != nil {
		fail(err)
	}
	if f.Counters, err = parser.ParseCounters(outputs[1]); err != nil {
		fail(err)
	}
	if f.Power, err = parser.ParsePower(outputs[2]); err != nil {
		fail(err)
	}
	if f.Version, err = parser.ParseVersion(outputs[3]); err != nil {
		fail(err)
	}
	return f, warnings
}

func (p *Poller) fallback(id string, err error) (*models.Snapshot, error) {
	if errors.Is(err, guard.ErrCommandRejected) {
		p.logger.Error().Err(err).Str("switch", id).Msg("command rejected by guard")
		return nil, err
	}

	p.cache.SetReachable(id, false)
	if e, ok := p.cache.Lookup(id); ok && e.Snapshot != nil {
		p.logger.Warn().Err(err).Str("switch", id).Time("captured_at", e.CapturedAt).Msg("poll failed, serving cached snapshot")
		return e.Snapshot.AsCached(models.ReachNo, "live poll failed: "+err.Error()), nil
	}

	p.logger.Warn().Err(err).Str("switch", id).Msg("poll failed")
	return nil, &PollError{SwitchID: id, Err: err}
}

// Refresh drops the cached snapshot of id and polls it now.
func (p *Poller) Refresh(ctx context.Context, id string) (*models.Snapshot, error) {
	if _, err := p.inv.Lookup(ctx, id); err != nil {
		return nil, err
	}
	p.cache.Invalidate(id)
	return p.Poll(ctx, id, true)
}

// Forget drops all cached state of a switch that left the inventory.
func (p *Poller) Forget(id string) {
	p.cache.Delete(id)
}

type SwitchStatus struct {
	ID         string              `json:"id"`
	Host       string              `json:"host"`
	Location   string              `json:"location,omitempty"`
	Model      string              `json:"model,omitempty"`
	Reachable  models.Reachability `json:"reachable"`
	LastPolled *time.Time          `json:"lastPolled"`
	PortCount  int                 `json:"portCount"`
	PortsUp    int                 `json:"portsUp"`
}

// Inventory lists every switch with what the cache knows about it. It never
// contacts a switch.
func (p *Poller) Inventory(ctx context.Context) ([]SwitchStatus, error) {
	switches, err := p.inv.List(ctx)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]cache.Entry)
	for _, e := range p.cache.Entries() {
		entries[e.SwitchID] = e
	}

	out := make([]SwitchStatus, 0, len(switches))
	for _, sw := range switches {
		st := SwitchStatus{
			ID:       sw.Name,
			Host:     sw.Host,
			Location: sw.Location,
			Model:    sw.Model,
		}
		if e, ok := entries[sw.Name]; ok {
			st.Reachable = e.Reachable
			if e.Snapshot != nil {
				captured := e.CapturedAt
				st.LastPolled = &captured
				st.PortCount = len(e.Snapshot.Ports)
				st.PortsUp = e.Snapshot.PortsUp()
				if st.Model == "" {
					st.Model = e.Snapshot.Device.Model
				}
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// MACTable fetches the MAC address table of one port. Results are not cached;
// concurrent requests for the same port share one fetch.
func (p *Poller) MACTable(ctx context.Context, id, port string) ([]models.MACEntry, error) {
	sw, err := p.inv.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !portname.Valid(port) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPort, port)
	}
	port = portname.Canonical(port)

	ch := p.macs.DoChan(id+"|"+port, func() (interface{}, error) {
		return p.fetchMACs(context.WithoutCancel(ctx), sw, port)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]models.MACEntry), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Poller) fetchMACs(ctx context.Context, sw models.Switch, port string) ([]models.MACEntry, error) {
	release, err := p.acquire(ctx, sw.Name)
	if err != nil {
		return nil, err
	}
	defer release()

	outputs, err := p.exec.Execute(ctx, p.target(sw), []string{parser.MACTableCommand(port)})
	if err != nil {
		if errors.Is(err, guard.ErrCommandRejected) {
			p.logger.Error().Err(err).Str("switch", sw.Name).Msg("command rejected by guard")
		} else {
			p.cache.SetReachable(sw.Name, false)
		}
		return nil, err
	}
	p.cache.SetReachable(sw.Name, true)

	if len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 output, got %d", len(outputs))
	}
	return parser.ParseMACTable(outputs[0])
}

// Probe checks reachability with the switch's configured method without
// running a poll. The cache is not updated.
func (p *Poller) Probe(ctx context.Context, id string) (probe.Result, error) {
	sw, err := p.inv.Lookup(ctx, id)
	if err != nil {
		return probe.Result{}, err
	}
	method, err := probe.ParseMethod(sw.Probe)
	if err != nil {
		return probe.Result{}, err
	}

	var res probe.Result
	switch method {
	case probe.MethodICMP:
		res = p.prober.Ping(ctx, sw.Host)
	case probe.MethodSNMP:
		res = p.prober.SysName(ctx, sw.Host, sw.Community)
	default:
		release, err := p.acquire(ctx, id)
		if err != nil {
			return probe.Result{}, err
		}
		defer release()

		start := time.Now()
		res = probe.Result{Method: probe.MethodSSH, Reachable: true}
		if err := p.exec.Probe(ctx, p.target(sw)); err != nil {
			res.Reachable = false
			res.Reason = err.Error()
		} else {
			res.RTT = time.Since(start)
			res.Hostname = p.hostname(sw)
		}
	}

	p.logger.Debug().Str("switch", id).Str("method", string(res.Method)).Bool("reachable", res.Reachable).Msg("probe")
	return res, nil
}

// hostname is the device hostname from the last show version, or the
// inventory name when the switch has not been polled yet.
func (p *Poller) hostname(sw models.Switch) string {
	if e, ok := p.cache.Lookup(sw.Name); ok && e.Snapshot != nil && e.Snapshot.Device.Hostname != "" {
		return e.Snapshot.Device.Hostname
	}
	return sw.Name
}

// CachedHosts is the number of switches the cache holds state for.
func (p *Poller) CachedHosts() int {
	return p.cache.Len()
}

// PollAll polls every inventory switch through a bounded worker pool. Fresh
// cache entries are left alone.
func (p *Poller) PollAll(ctx context.Context) {
	switches, err := p.inv.List(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("list inventory")
		return
	}

	wp := pool.New().WithMaxGoroutines(p.workers)
	for _, sw := range switches {
		id := sw.Name
		wp.Go(func() {
			if _, err := p.Poll(ctx, id, false); err != nil {
				p.logger.Warn().Err(err).Str("switch", id).Msg("background poll failed")
			}
		})
	}
	wp.Wait()

	p.logger.Info().Int("switches", len(switches)).Msg("polling cycle complete")
}

// Run keeps the cache warm by polling all switches every interval until ctx
// is done. A non-positive interval disables it.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		p.logger.Info().Msg("background polling disabled")
		return
	}

	p.logger.Info().Dur("interval", interval).Dur("cache_ttl", p.cache.TTL()).Msg("background polling started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.PollAll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
