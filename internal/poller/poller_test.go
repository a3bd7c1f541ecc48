package poller

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-portwatch/internal/cache"
	"go-portwatch/internal/guard"
	"go-portwatch/internal/history"
	"go-portwatch/internal/inventory"
	"go-portwatch/internal/logger"
	"go-portwatch/internal/models"
	"go-portwatch/internal/probe"
	"go-portwatch/internal/session"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

type fakeInventory struct {
	switches map[string]models.Switch
}

func (f *fakeInventory) Lookup(_ context.Context, id string) (models.Switch, error) {
	sw, ok := f.switches[id]
	if !ok {
		return models.Switch{}, fmt.Errorf("%w: %s", inventory.ErrUnknownSwitch, id)
	}
	return sw, nil
}

func (f *fakeInventory) List(context.Context) ([]models.Switch, error) {
	out := make([]models.Switch, 0, len(f.switches))
	for _, sw := range f.switches {
		out = append(out, sw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(_ context.Context, t session.Target, commands []string) ([]string, error) {
	args := m.Called(t.Host, commands)
	out, _ := args.Get(0).([]string)
	return out, args.Error(1)
}

func (m *mockExecutor) Probe(_ context.Context, t session.Target) error {
	return m.Called(t.Host).Error(0)
}

type mockProber struct {
	mock.Mock
}

func (m *mockProber) Ping(_ context.Context, host string) probe.Result {
	return m.Called(host).Get(0).(probe.Result)
}

func (m *mockProber) SysName(_ context.Context, host, community string) probe.Result {
	return m.Called(host, community).Get(0).(probe.Result)
}

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type harness struct {
	p      *Poller
	exec   *mockExecutor
	prober *mockProber
	clock  *fakeClock
}

func newHarness(t *testing.T, switches ...models.Switch) *harness {
	t.Helper()
	if len(switches) == 0 {
		switches = []models.Switch{{Name: "sw1", Host: "10.0.0.1"}}
	}
	inv := &fakeInventory{switches: map[string]models.Switch{}}
	for _, sw := range switches {
		inv.switches[sw.Name] = sw
	}

	h := &harness{exec: &mockExecutor{}, prober: &mockProber{}, clock: &fakeClock{now: base}}
	h.p = New(Config{
		Inventory:   inv,
		Executor:    h.exec,
		Prober:      h.prober,
		Cache:       cache.New(60*time.Second, cache.WithClock(h.clock.Now)),
		Tracker:     history.NewTracker(history.DefaultIdleThreshold, history.DefaultMaxEvents),
		Credentials: session.Credentials{Username: "readonly", Password: "secret"},
	}, logger.NewTestLogger())
	return h
}

const statusRowFormat = "%-10s%-19s%-13s%-11s%6s %6s %s"

// statusOutput renders "show interfaces status" for rows of {port, status, vlan}.
func statusOutput(rows ...[3]string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(statusRowFormat, "Port", "Name", "Status", "Vlan", "Duplex", "Speed", "Type") + "\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf(statusRowFormat, r[0], "", r[1], r[2], "a-full", "a-1000", "10/100/1000BaseTX") + "\n")
	}
	return b.String()
}

const countersOutput = `GigabitEthernet1/0/1 is up, line protocol is up (connected)
  Hardware is Gigabit Ethernet, address is 0011.2233.4401 (bia 0011.2233.4401)
     100 packets input, 1000 bytes, 0 no buffer
     0 input errors, 0 CRC, 0 frame, 0 overrun, 0 ignored
     100 packets output, 2000 bytes, 0 underruns
     0 output errors, 0 interface resets
`

const powerOutput = `Interface  Admin  Oper       Power   Device              Class Max
                             (Watts)
---------- ------ ---------- ------- ------------------- ----- ----
Gi1/0/1    auto   on         15.4    IP Phone 8845       2     30.0
Gi1/0/2    auto   off        0.0     n/a                 n/a   30.0
`

const versionOutput = "sw1 uptime is 2 days, 3 hours\n"

func outputs(status string) []string {
	return []string{status, countersOutput, powerOutput, versionOutput}
}

var twoPorts = statusOutput(
	[3]string{"Gi1/0/1", "connected", "10"},
	[3]string{"Gi1/0/2", "notconnect", "20"},
)

func TestPoll_UnknownSwitchNeverConnects(t *testing.T) {
	h := newHarness(t)

	_, err := h.p.Poll(context.Background(), "sw9", false)
	require.ErrorIs(t, err, ErrUnknownSwitch)

	_, err = h.p.MACTable(context.Background(), "sw9", "Gi1/0/1")
	require.ErrorIs(t, err, ErrUnknownSwitch)

	_, err = h.p.Refresh(context.Background(), "sw9")
	require.ErrorIs(t, err, ErrUnknownSwitch)

	h.exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestPoll_Live(t *testing.T) {
	h := newHarness(t)
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(outputs(twoPorts), nil).Once()

	snap, err := h.p.Poll(context.Background(), "sw1", false)
	require.NoError(t, err)

	assert.Equal(t, models.SourceLive, snap.Source)
	assert.Equal(t, base, snap.CapturedAt)
	assert.Equal(t, models.ReachYes, snap.Reachable)
	assert.Equal(t, "sw1", snap.Device.Hostname)
	assert.Empty(t, snap.Warnings)

	require.Len(t, snap.Ports, 2)
	p1, p2 := snap.Ports[0], snap.Ports[1]
	assert.Equal(t, "Gi1/0/1", p1.ID)
	assert.Equal(t, models.StatusUp, p1.Status)
	assert.Equal(t, 10, p1.VLAN)
	assert.Equal(t, models.PoE{Enabled: true, Watts: 15.4}, p1.PoE)
	assert.EqualValues(t, 1000, p1.Counters.RxBytes)
	assert.Equal(t, models.StatusDown, p2.Status)
	assert.False(t, p2.PoE.Enabled)

	h.exec.AssertExpectations(t)
}

func TestPoll_CoalescesConcurrentCallers(t *testing.T) {
	h := newHarness(t)

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	h.exec.On("Execute", "10.0.0.1", pollCommands).Run(func(mock.Arguments) {
		once.Do(func() { close(started) })
		<-release
	}).Return(outputs(twoPorts), nil).Once()

	const n = 10
	var wg sync.WaitGroup
	snaps := make([]*models.Snapshot, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i], errs[i] = h.p.Poll(context.Background(), "sw1", false)
		}(i)
	}

	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	h.exec.AssertNumberOfCalls(t, "Execute", 1)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, snaps[0].CapturedAt, snaps[i].CapturedAt)
		assert.Equal(t, snaps[0].Ports, snaps[i].Ports)
	}
}

func TestPoll_CallerCancelDoesNotAbortSharedPoll(t *testing.T) {
	h := newHarness(t)

	release := make(chan struct{})
	started := make(chan struct{})
	h.exec.On("Execute", "10.0.0.1", pollCommands).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(outputs(twoPorts), nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := h.p.Poll(ctx, "sw1", false)
		errc <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)

	done := make(chan struct{})
	var snap *models.Snapshot
	go func() {
		defer close(done)
		snap, _ = h.p.Poll(context.Background(), "sw1", false)
	}()
	close(release)
	<-done

	require.NotNil(t, snap)
	assert.Len(t, snap.Ports, 2)
	h.exec.AssertNumberOfCalls(t, "Execute", 1)
}

func TestPoll_TTLBoundary(t *testing.T) {
	h := newHarness(t)
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(outputs(twoPorts), nil)

	first, err := h.p.Poll(context.Background(), "sw1", false)
	require.NoError(t, err)

	h.clock.Set(base.Add(60*time.Second - time.Millisecond))
	cached, err := h.p.Poll(context.Background(), "sw1", false)
	require.NoError(t, err)
	assert.Equal(t, models.SourceCached, cached.Source)
	assert.Equal(t, first.CapturedAt, cached.CapturedAt)
	assert.Equal(t, first.Ports, cached.Ports)
	h.exec.AssertNumberOfCalls(t, "Execute", 1)

	h.clock.Set(base.Add(60*time.Second + time.Millisecond))
	live, err := h.p.Poll(context.Background(), "sw1", false)
	require.NoError(t, err)
	assert.Equal(t, models.SourceLive, live.Source)
	assert.Equal(t, base.Add(60*time.Second+time.Millisecond), live.CapturedAt)
	h.exec.AssertNumberOfCalls(t, "Execute", 2)
}

func TestPoll_ForceBypassesFreshCache(t *testing.T) {
	h := newHarness(t)
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(outputs(twoPorts), nil)

	_, err := h.p.Poll(context.Background(), "sw1", false)
	require.NoError(t, err)
	snap, err := h.p.Poll(context.Background(), "sw1", true)
	require.NoError(t, err)
	assert.Equal(t, models.SourceLive, snap.Source)

	snap, err = h.p.Refresh(context.Background(), "sw1")
	require.NoError(t, err)
	assert.Equal(t, models.SourceLive, snap.Source)
	h.exec.AssertNumberOfCalls(t, "Execute", 3)
}

func TestPoll_PowerFailureDegradesPoEOnly(t *testing.T) {
	h := newHarness(t)
	out := outputs(twoPorts)
	out[2] = "                  ^\n% Invalid input detected at '^' marker.\n"
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(out, nil).Once()

	snap, err := h.p.Poll(context.Background(), "sw1", false)
	require.NoError(t, err)

	assert.NotEmpty(t, snap.Warnings)
	require.Len(t, snap.Ports, 2)
	for _, p := range snap.Ports {
		assert.Equal(t, models.PoE{}, p.PoE, p.ID)
	}
	assert.Equal(t, models.StatusUp, snap.Ports[0].Status)
	assert.Equal(t, 10, snap.Ports[0].VLAN)
	assert.Equal(t, 1000, snap.Ports[0].SpeedMbps)
	assert.Equal(t, 20, snap.Ports[1].VLAN)
}

func TestPoll_CountersOutageDoesNotSkewRates(t *testing.T) {
	h := newHarness(t)
	status := statusOutput([3]string{"Gi1/0/1", "connected", "10"})
	good := outputs(status)
	good[1] = strings.Replace(countersOutput, "1000 bytes", "9000000000000 bytes", 1)
	broken := outputs(status)
	broken[1] = "                  ^\n% Invalid input detected at '^' marker.\n"
	later := outputs(status)
	later[1] = strings.Replace(countersOutput, "1000 bytes", "9000001000000 bytes", 1)

	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(good, nil).Once()
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(broken, nil).Once()
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(later, nil).Once()

	_, err := h.p.Poll(context.Background(), "sw1", true)
	require.NoError(t, err)

	h.clock.Set(base.Add(time.Minute))
	snap, err := h.p.Poll(context.Background(), "sw1", true)
	require.NoError(t, err)
	require.Len(t, snap.Ports, 1)
	assert.Zero(t, snap.Ports[0].Counters.RxRateMbps)

	h.clock.Set(base.Add(2 * time.Minute))
	snap, err = h.p.Poll(context.Background(), "sw1", true)
	require.NoError(t, err)
	require.Len(t, snap.Ports, 1)
	// 1e6 bytes over the 120s since the last good sample
	assert.InDelta(t, 1e6*8/120/1e6, snap.Ports[0].Counters.RxRateMbps, 1e-9)
	h.exec.AssertExpectations(t)
}

func TestPoll_FailureServesStaleSnapshot(t *testing.T) {
	h := newHarness(t)
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(outputs(twoPorts), nil).Once()
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(nil, fmt.Errorf("10.0.0.1: %w", session.ErrUnreachable)).Once()

	first, err := h.p.Poll(context.Background(), "sw1", false)
	require.NoError(t, err)

	h.clock.Set(base.Add(5 * time.Minute))
	snap, err := h.p.Poll(context.Background(), "sw1", false)
	require.NoError(t, err)

	assert.Equal(t, models.SourceCached, snap.Source)
	assert.Equal(t, models.ReachNo, snap.Reachable)
	assert.Equal(t, first.CapturedAt, snap.CapturedAt)
	assert.Equal(t, first.Ports, snap.Ports)
	require.NotEmpty(t, snap.Warnings)
	assert.Contains(t, snap.Warnings[len(snap.Warnings)-1], "live poll failed")

	e, ok := h.p.cache.Lookup("sw1")
	require.True(t, ok)
	assert.Equal(t, models.ReachNo, e.Reachable)
	assert.Equal(t, models.SourceLive, e.Snapshot.Source)
}

func TestPoll_FailureWithoutSnapshotIsPollError(t *testing.T) {
	h := newHarness(t)
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(nil, session.ErrAuthFailure).Once()

	_, err := h.p.Poll(context.Background(), "sw1", false)
	var pe *PollError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "sw1", pe.SwitchID)
	assert.ErrorIs(t, err, session.ErrAuthFailure)

	e, ok := h.p.cache.Lookup("sw1")
	require.True(t, ok)
	assert.Equal(t, models.ReachNo, e.Reachable)
	assert.Nil(t, e.Snapshot)
}

func TestPoll_GuardRejectionHasNoFallback(t *testing.T) {
	h := newHarness(t)
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(outputs(twoPorts), nil).Once()
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(nil, fmt.Errorf("%w: %q", guard.ErrCommandRejected, "reload")).Once()

	_, err := h.p.Poll(context.Background(), "sw1", false)
	require.NoError(t, err)

	snap, err := h.p.Poll(context.Background(), "sw1", true)
	require.ErrorIs(t, err, guard.ErrCommandRejected)
	assert.Nil(t, snap)

	e, _ := h.p.cache.Lookup("sw1")
	assert.Equal(t, models.ReachYes, e.Reachable)
}

func TestPoll_HistoryContinuity(t *testing.T) {
	h := newHarness(t)
	up := outputs(statusOutput([3]string{"Gi1/0/1", "connected", "10"}))
	down := outputs(statusOutput([3]string{"Gi1/0/1", "notconnect", "10"}))
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(up, nil).Once()
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(down, nil).Once()
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(down, nil).Once()
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(up, nil).Once()

	t0 := base
	t1 := t0.Add(time.Hour)
	t2 := t1.Add(15 * 24 * time.Hour)
	t3 := t2.Add(time.Hour)

	poll := func(at time.Time) models.PortRecord {
		h.clock.Set(at)
		snap, err := h.p.Poll(context.Background(), "sw1", false)
		require.NoError(t, err)
		require.Equal(t, models.SourceLive, snap.Source)
		require.Len(t, snap.Ports, 1)
		return snap.Ports[0]
	}

	p := poll(t0)
	assert.Equal(t, models.StatusUp, p.Status)

	p = poll(t1)
	assert.Equal(t, t1, p.LastChanged)
	require.Len(t, p.Events, 2)
	assert.Equal(t, models.PortEvent{Timestamp: t1, Event: models.EventDown}, p.Events[0])
	assert.False(t, p.IsUnused)

	p = poll(t2)
	assert.Equal(t, t1, p.LastChanged)
	assert.True(t, p.IsUnused)
	require.NotNil(t, p.UnusedSince)
	assert.Equal(t, t1, *p.UnusedSince)
	assert.Len(t, p.Events, 2)

	p = poll(t3)
	assert.False(t, p.IsUnused)
	assert.Nil(t, p.UnusedSince)
	require.Len(t, p.Events, 3)
	assert.Equal(t, models.PortEvent{Timestamp: t3, Event: models.EventUp}, p.Events[0])
	assert.Equal(t, models.PortEvent{Timestamp: t1, Event: models.EventDown}, p.Events[1])
	assert.Equal(t, models.PortEvent{Timestamp: t0, Event: models.EventUp}, p.Events[2])
}

func TestPoll_MissingPortGrace(t *testing.T) {
	h := newHarness(t)
	one := outputs(statusOutput([3]string{"Gi1/0/1", "connected", "10"}))
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(outputs(twoPorts), nil).Once()
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(one, nil).Twice()

	snap, err := h.p.Poll(context.Background(), "sw1", true)
	require.NoError(t, err)
	require.Len(t, snap.Ports, 2)
	missing := snap.Ports[1]

	h.clock.Set(base.Add(2 * time.Minute))
	snap, err = h.p.Poll(context.Background(), "sw1", true)
	require.NoError(t, err)
	require.Len(t, snap.Ports, 2)
	carried := snap.Ports[1]
	assert.Equal(t, "Gi1/0/2", carried.ID)
	assert.True(t, carried.Stale)
	assert.Equal(t, missing.Events, carried.Events)
	assert.Equal(t, missing.LastChanged, carried.LastChanged)

	h.clock.Set(base.Add(4 * time.Minute))
	snap, err = h.p.Poll(context.Background(), "sw1", true)
	require.NoError(t, err)
	require.Len(t, snap.Ports, 1)
	assert.Equal(t, "Gi1/0/1", snap.Ports[0].ID)
}

func TestMACTable(t *testing.T) {
	h := newHarness(t)
	raw := `Vlan    Mac Address       Type        Ports
----    -----------       --------    -----
  10    aabb.cc11.2233    DYNAMIC     Gi1/0/1
Total Mac Addresses for this criterion: 1
`
	h.exec.On("Execute", "10.0.0.1", []string{"show mac address-table interface Gi1/0/1"}).Return([]string{raw}, nil).Once()

	entries, err := h.p.MACTable(context.Background(), "sw1", "GigabitEthernet1/0/1")
	require.NoError(t, err)
	assert.Equal(t, []models.MACEntry{{MAC: "aa:bb:cc:11:22:33", VLAN: 10, Type: "dynamic"}}, entries)

	e, ok := h.p.cache.Lookup("sw1")
	require.True(t, ok)
	assert.Equal(t, models.ReachYes, e.Reachable)
	assert.Nil(t, e.Snapshot)
}

func TestMACTable_InvalidPort(t *testing.T) {
	h := newHarness(t)

	for _, port := range []string{"", "Gi1/0/1 | include x", "1/0/1", "Gi1/0/1\nreload"} {
		_, err := h.p.MACTable(context.Background(), "sw1", port)
		assert.ErrorIs(t, err, ErrInvalidPort, port)
	}
	h.exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestMACTable_SessionFailure(t *testing.T) {
	h := newHarness(t)
	h.exec.On("Execute", "10.0.0.1", mock.Anything).Return(nil, session.ErrTimeout).Once()

	_, err := h.p.MACTable(context.Background(), "sw1", "Gi1/0/1")
	require.ErrorIs(t, err, session.ErrTimeout)

	e, _ := h.p.cache.Lookup("sw1")
	assert.Equal(t, models.ReachNo, e.Reachable)
}

func TestProbe_Methods(t *testing.T) {
	h := newHarness(t,
		models.Switch{Name: "ssh-sw", Host: "10.0.0.1"},
		models.Switch{Name: "icmp-sw", Host: "10.0.0.2", Probe: "icmp"},
		models.Switch{Name: "snmp-sw", Host: "10.0.0.3", Probe: "snmp", Community: "ro"},
		models.Switch{Name: "down-sw", Host: "10.0.0.4"},
	)
	h.exec.On("Probe", "10.0.0.1").Return(nil)
	h.exec.On("Probe", "10.0.0.4").Return(session.ErrUnreachable)
	h.prober.On("Ping", "10.0.0.2").Return(probe.Result{Reachable: true, Method: probe.MethodICMP})
	h.prober.On("SysName", "10.0.0.3", "ro").Return(probe.Result{Reachable: true, Method: probe.MethodSNMP, Hostname: "SW3"})

	ctx := context.Background()

	res, err := h.p.Probe(ctx, "ssh-sw")
	require.NoError(t, err)
	assert.True(t, res.Reachable)
	assert.Equal(t, probe.MethodSSH, res.Method)
	assert.Equal(t, "ssh-sw", res.Hostname)

	res, err = h.p.Probe(ctx, "icmp-sw")
	require.NoError(t, err)
	assert.True(t, res.Reachable)
	assert.Equal(t, probe.MethodICMP, res.Method)

	res, err = h.p.Probe(ctx, "snmp-sw")
	require.NoError(t, err)
	assert.Equal(t, "SW3", res.Hostname)

	res, err = h.p.Probe(ctx, "down-sw")
	require.NoError(t, err)
	assert.False(t, res.Reachable)
	assert.Contains(t, res.Reason, "unreachable")

	_, err = h.p.Probe(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownSwitch)

	h.exec.AssertExpectations(t)
	h.prober.AssertExpectations(t)
	h.exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestProbe_SSHHostnameFromLastPoll(t *testing.T) {
	h := newHarness(t, models.Switch{Name: "core", Host: "10.0.0.1"})
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(outputs(twoPorts), nil).Once()
	h.exec.On("Probe", "10.0.0.1").Return(nil)

	_, err := h.p.Poll(context.Background(), "core", false)
	require.NoError(t, err)

	res, err := h.p.Probe(context.Background(), "core")
	require.NoError(t, err)
	assert.True(t, res.Reachable)
	assert.Equal(t, "sw1", res.Hostname)
}

func TestInventory(t *testing.T) {
	h := newHarness(t,
		models.Switch{Name: "sw1", Host: "10.0.0.1", Location: "MDF"},
		models.Switch{Name: "sw2", Host: "10.0.0.2"},
	)
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(outputs(twoPorts), nil).Once()

	_, err := h.p.Poll(context.Background(), "sw1", false)
	require.NoError(t, err)

	list, err := h.p.Inventory(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "sw1", list[0].ID)
	assert.Equal(t, "MDF", list[0].Location)
	assert.Equal(t, models.ReachYes, list[0].Reachable)
	assert.Equal(t, 2, list[0].PortCount)
	assert.Equal(t, 1, list[0].PortsUp)
	require.NotNil(t, list[0].LastPolled)
	assert.Equal(t, base, *list[0].LastPolled)

	assert.Equal(t, "sw2", list[1].ID)
	assert.Equal(t, models.ReachUnknown, list[1].Reachable)
	assert.Nil(t, list[1].LastPolled)
	assert.Equal(t, 1, h.p.CachedHosts())

	h.exec.AssertNumberOfCalls(t, "Execute", 1)
}

func TestPollAll(t *testing.T) {
	h := newHarness(t,
		models.Switch{Name: "sw1", Host: "10.0.0.1"},
		models.Switch{Name: "sw2", Host: "10.0.0.2"},
		models.Switch{Name: "sw3", Host: "10.0.0.3"},
	)
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(outputs(twoPorts), nil).Once()
	h.exec.On("Execute", "10.0.0.2", pollCommands).Return(outputs(twoPorts), nil).Once()
	h.exec.On("Execute", "10.0.0.3", pollCommands).Return(nil, session.ErrUnreachable).Once()

	h.p.PollAll(context.Background())

	h.exec.AssertExpectations(t)
	assert.Equal(t, 3, h.p.CachedHosts())

	e, _ := h.p.cache.Lookup("sw3")
	assert.Equal(t, models.ReachNo, e.Reachable)
}

func TestRun_DisabledReturns(t *testing.T) {
	h := newHarness(t)
	h.p.Run(context.Background(), 0)
	h.exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestForget(t *testing.T) {
	h := newHarness(t)
	h.exec.On("Execute", "10.0.0.1", pollCommands).Return(outputs(twoPorts), nil).Once()

	_, err := h.p.Poll(context.Background(), "sw1", false)
	require.NoError(t, err)
	h.p.Forget("sw1")

	_, ok := h.p.cache.Lookup("sw1")
	assert.False(t, ok)
}
