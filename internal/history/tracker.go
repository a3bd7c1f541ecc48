// Package history reconciles successive port snapshots of one switch into a
// longitudinal record: status transitions, bounded event logs, derived counter
// rates and the unused-port classification.
package history

import (
	"time"

	"go-portwatch/internal/models"
	"go-portwatch/internal/parser"
)

const (
	DefaultIdleThreshold = 14 * 24 * time.Hour
	DefaultMaxEvents     = 50
)

// Presence is the per-port state used to carry history across polls in which
// the port was not reported.
type Presence int

const (
	Present Presence = iota
	// MissingGrace: absent from exactly one poll; carried forward as stale.
	MissingGrace
	// Evicted: absent from two consecutive polls; dropped from the history.
	Evicted
)

func (p Presence) String() string {
	switch p {
	case Present:
		return "present"
	case MissingGrace:
		return "missing-grace"
	default:
		return "evicted"
	}
}

type PortState struct {
	Record   models.PortRecord
	Presence Presence
	// SampledAt is when Record.Counters were read from the device. Zero when
	// no counters have been read yet.
	SampledAt time.Time
}

// History is the tracked state of one switch. It is never modified after Apply
// returns it; the next Apply builds a new one.
type History struct {
	Ports map[string]PortState
	Order []string
}

// Lookup returns the tracked state of a port.
func (h *History) Lookup(id string) (PortState, bool) {
	if h == nil {
		return PortState{}, false
	}
	st, ok := h.Ports[id]
	return st, ok
}

type Tracker struct {
	IdleThreshold time.Duration
	MaxEvents     int
}

func NewTracker(idleThreshold time.Duration, maxEvents int) *Tracker {
	if idleThreshold <= 0 {
		idleThreshold = DefaultIdleThreshold
	}
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &Tracker{IdleThreshold: idleThreshold, MaxEvents: maxEvents}
}

// Apply merges a freshly aggregated port list into prev (nil on the first poll)
// and returns the ports to serve plus the new history. prev is not modified.
// Ports missing from this poll are carried forward once, marked stale, and
// evicted when they are missing again.
func (t *Tracker) Apply(prev *History, ports []models.PortRecord, now time.Time) ([]models.PortRecord, *History) {
	return t.apply(prev, ports, now, true)
}

// ApplyWithoutCounters is Apply for a poll whose interface counters could not
// be read. Served rates are 0 and the previous counter sample stays the rate
// baseline for the next poll.
func (t *Tracker) ApplyWithoutCounters(prev *History, ports []models.PortRecord, now time.Time) ([]models.PortRecord, *History) {
	return t.apply(prev, ports, now, false)
}

func (t *Tracker) apply(prev *History, ports []models.PortRecord, now time.Time, haveCounters bool) ([]models.PortRecord, *History) {
	next := &History{
		Ports: make(map[string]PortState, len(ports)),
		Order: make([]string, 0, len(ports)),
	}
	out := make([]models.PortRecord, 0, len(ports))

	for _, p := range ports {
		if _, dup := next.Ports[p.ID]; dup {
			continue
		}
		var old *PortState
		if st, ok := prev.Lookup(p.ID); ok {
			old = &st
		}
		rec := t.track(old, p, now, haveCounters)
		out = append(out, rec)
		st := PortState{Record: rec, Presence: Present, SampledAt: now}
		if !haveCounters {
			st.Record.Counters, st.SampledAt = models.Counters{}, time.Time{}
			if old != nil {
				st.Record.Counters, st.SampledAt = old.Record.Counters, old.SampledAt
			}
		}
		next.Ports[p.ID] = st
		next.Order = append(next.Order, p.ID)
	}

	if prev == nil {
		return out, next
	}

	for _, id := range prev.Order {
		if _, seen := next.Ports[id]; seen {
			continue
		}
		st := prev.Ports[id]
		st.Presence = advance(st.Presence)
		if st.Presence == Evicted {
			continue
		}
		st.Record.Stale = true
		out = append(out, st.Record)
		next.Ports[id] = st
		next.Order = append(next.Order, id)
	}
	return out, next
}

// advance moves a port that was absent from a poll to its next presence state.
func advance(p Presence) Presence {
	if p == Present {
		return MissingGrace
	}
	return Evicted
}

func (t *Tracker) track(old *PortState, p models.PortRecord, now time.Time, haveCounters bool) models.PortRecord {
	rec := p
	rec.Stale = false

	if old == nil {
		rec.LastChanged = now
		rec.Events = []models.PortEvent{{Timestamp: now, Event: eventFor(p.Status)}}
	} else {
		last := old.Record
		rec.LastChanged = last.LastChanged
		rec.Events = last.Events
		rec.LastUp = last.LastUp
		if p.Status != last.Status {
			rec.LastChanged = now
			rec.Events = t.prepend(last.Events, models.PortEvent{Timestamp: now, Event: eventFor(p.Status)})
		}
		if haveCounters && !old.SampledAt.IsZero() {
			rec.Counters.RxRateMbps, rec.Counters.TxRateMbps = parser.ComputeRates(&last.Counters, p.Counters, now.Sub(old.SampledAt))
		}
	}

	if rec.Status == models.StatusUp {
		up := now
		rec.LastUp = &up
	}

	rec.IsUnused, rec.UnusedSince = false, nil
	if rec.Status == models.StatusDown && now.Sub(rec.LastChanged) > t.IdleThreshold {
		since := rec.LastChanged
		rec.IsUnused, rec.UnusedSince = true, &since
	}
	return rec
}

// prepend returns a new slice, newest first, capped at MaxEvents with the oldest
// entries dropped. events is not modified.
func (t *Tracker) prepend(events []models.PortEvent, ev models.PortEvent) []models.PortEvent {
	n := len(events) + 1
	if n > t.MaxEvents {
		n = t.MaxEvents
	}
	out := make([]models.PortEvent, 0, n)
	out = append(out, ev)
	return append(out, events[:n-1]...)
}

func eventFor(s models.PortStatus) models.EventKind {
	if s == models.StatusUp {
		return models.EventUp
	}
	return models.EventDown
}
