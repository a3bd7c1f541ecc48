package models

import (
	"encoding/json"
	"time"
)

// Switch is one inventory row. Name is the switch id used everywhere else.
type Switch struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	Name      string `gorm:"uniqueIndex;not null" json:"name" yaml:"name"`
	Host      string `gorm:"not null" json:"host" yaml:"host"`
	Port      int    `json:"port,omitempty" yaml:"port,omitempty"`
	Location  string `json:"location,omitempty" yaml:"location,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	Community string `json:"community,omitempty" yaml:"community,omitempty"`
	Probe     string `json:"probe,omitempty" yaml:"probe,omitempty"` // "ssh" (default), "icmp" or "snmp"
}

type PortStatus string

const (
	StatusUp       PortStatus = "up"
	StatusDown     PortStatus = "down"
	StatusDisabled PortStatus = "disabled"
)

type PortMode string

const (
	ModeAccess PortMode = "access"
	ModeTrunk  PortMode = "trunk"
	ModeRouted PortMode = "routed"
)

type EventKind string

const (
	EventUp   EventKind = "up"
	EventDown EventKind = "down"
)

type PortEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Event     EventKind `json:"event"`
}

type PoE struct {
	Enabled bool    `json:"enabled"`
	Watts   float64 `json:"watts"`
}

// Counters holds the byte and error counters of a port. Byte and error values
// are monotonic until the device resets them; rates are derived between polls.
type Counters struct {
	RxBytes    uint64  `json:"rxBytes"`
	TxBytes    uint64  `json:"txBytes"`
	RxRateMbps float64 `json:"rxRateMbps"`
	TxRateMbps float64 `json:"txRateMbps"`
	RxErrors   uint64  `json:"rxErrors"`
	TxErrors   uint64  `json:"txErrors"`
	CRCErrors  uint64  `json:"crcErrors"`
}

type MACEntry struct {
	MAC  string `json:"mac"`
	VLAN int    `json:"vlan"`
	Type string `json:"type"`
}

type PortRecord struct {
	ID          string      `json:"id"`
	PortNum     int         `json:"portNum"`
	Label       string      `json:"label"`
	Status      PortStatus  `json:"status"`
	VLAN        int         `json:"vlan"`
	Mode        PortMode    `json:"mode"`
	SpeedMbps   int         `json:"speedMbps"`
	Duplex      string      `json:"duplex"`
	Media       string      `json:"media,omitempty"`
	PoE         PoE         `json:"poe"`
	Counters    Counters    `json:"counters"`
	Description string      `json:"description"`
	LastChanged time.Time   `json:"lastChanged"`
	LastUp      *time.Time  `json:"lastUp"`
	Events      []PortEvent `json:"events"`
	IsUnused    bool        `json:"isUnused"`
	UnusedSince *time.Time  `json:"unusedSince"`
	Stale       bool        `json:"stale,omitempty"`
	MACTable    []MACEntry  `json:"macTable,omitempty"`
}

// DeviceInfo is the switch-level data taken from show version.
type DeviceInfo struct {
	Hostname string        `json:"hostname,omitempty"`
	Uptime   time.Duration `json:"uptime"`
	Version  string        `json:"version,omitempty"`
	Model    string        `json:"model,omitempty"`
	Serial   string        `json:"serial,omitempty"`
}

type Source string

const (
	SourceLive   Source = "live"
	SourceCached Source = "cached"
)

// Reachability is a tri-state: unknown until the first poll attempt.
type Reachability int8

const (
	ReachUnknown Reachability = iota
	ReachYes
	ReachNo
)

func ReachabilityOf(ok bool) Reachability {
	if ok {
		return ReachYes
	}
	return ReachNo
}

func (r Reachability) String() string {
	switch r {
	case ReachYes:
		return "reachable"
	case ReachNo:
		return "unreachable"
	default:
		return "unknown"
	}
}

func (r Reachability) MarshalJSON() ([]byte, error) {
	switch r {
	case ReachYes:
		return []byte("true"), nil
	case ReachNo:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (r *Reachability) UnmarshalJSON(b []byte) error {
	var v *bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch {
	case v == nil:
		*r = ReachUnknown
	case *v:
		*r = ReachYes
	default:
		*r = ReachNo
	}
	return nil
}

type Snapshot struct {
	SwitchID   string       `json:"switchId"`
	CapturedAt time.Time    `json:"capturedAt"`
	Source     Source       `json:"source"`
	Reachable  Reachability `json:"reachable"`
	Device     DeviceInfo   `json:"sysinfo"`
	Ports      []PortRecord `json:"ports"`
	Warnings   []string     `json:"warnings,omitempty"`
}

// PortsUp counts ports currently up.
func (s *Snapshot) PortsUp() int {
	n := 0
	for _, p := range s.Ports {
		if p.Status == StatusUp {
			n++
		}
	}
	return n
}

// AsCached returns a shallow copy tagged as served from cache. Ports are shared
// and must be treated as read-only.
func (s *Snapshot) AsCached(reach Reachability, warnings ...string) *Snapshot {
	cp := *s
	cp.Source = SourceCached
	cp.Reachable = reach
	if len(warnings) > 0 {
		cp.Warnings = append(append([]string(nil), s.Warnings...), warnings...)
	}
	return &cp
}
