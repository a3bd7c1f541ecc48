package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go-portwatch/internal/models"
	"go-portwatch/internal/portname"
)

type CounterRow struct {
	ID          string
	AdminDown   bool
	LinkUp      bool
	Description string
	Counters    models.Counters
}

// CountersFragment is keyed by canonical interface id; Order keeps device order.
type CountersFragment struct {
	Rows  map[string]CounterRow
	Order []string
}

var (
	ifHeaderRe = regexp.MustCompile(`^(\S+) is (up|down|administratively down|deleted)(?:, line protocol is (\S+))?`)
	rxRe       = regexp.MustCompile(`(\d+) packets input, (\d+) bytes`)
	txRe       = regexp.MustCompile(`(\d+) packets output, (\d+) bytes`)
	rxErrRe    = regexp.MustCompile(`(\d+) input errors`)
	crcRe      = regexp.MustCompile(`(\d+) CRC`)
	txErrRe    = regexp.MustCompile(`(\d+) output errors`)
	ifDescrRe  = regexp.MustCompile(`^\s+Description: (.*)$`)
)

// ParseCounters parses the detailed "show interfaces" output.
func ParseCounters(raw string) (*CountersFragment, error) {
	if l, ok := cliError(raw); ok {
		return nil, &ParseError{Command: CmdCounters, Line: l, Reason: "device rejected command"}
	}

	frag := &CountersFragment{Rows: map[string]CounterRow{}}
	var cur *CounterRow

	flush := func() {
		if cur != nil {
			if _, seen := frag.Rows[cur.ID]; !seen {
				frag.Order = append(frag.Order, cur.ID)
			}
			frag.Rows[cur.ID] = *cur
		}
	}

	for _, line := range lines(raw) {
		if m := ifHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			cur = &CounterRow{
				ID:        portname.Canonical(m[1]),
				AdminDown: m[2] == "administratively down",
				LinkUp:    m[2] == "up" && strings.HasPrefix(m[3], "up"),
			}
			continue
		}
		if cur == nil {
			continue
		}

		if m := ifDescrRe.FindStringSubmatch(line); m != nil {
			cur.Description = strings.TrimSpace(m[1])
		}
		if m := rxRe.FindStringSubmatch(line); m != nil {
			cur.Counters.RxBytes = atou(m[2])
		}
		if m := txRe.FindStringSubmatch(line); m != nil {
			cur.Counters.TxBytes = atou(m[2])
		}
		if m := rxErrRe.FindStringSubmatch(line); m != nil {
			cur.Counters.RxErrors = atou(m[1])
		}
		if m := crcRe.FindStringSubmatch(line); m != nil {
			cur.Counters.CRCErrors = atou(m[1])
		}
		if m := txErrRe.FindStringSubmatch(line); m != nil {
			cur.Counters.TxErrors = atou(m[1])
		}
	}
	flush()

	if len(frag.Rows) == 0 {
		return nil, &ParseError{Command: CmdCounters, Reason: "no interface sections in output"}
	}
	return frag, nil
}

// Status maps the link state of a counters row to a port status.
func (r CounterRow) Status() models.PortStatus {
	switch {
	case r.AdminDown:
		return models.StatusDisabled
	case r.LinkUp:
		return models.StatusUp
	default:
		return models.StatusDown
	}
}

// ComputeRates derives rx/tx Mbps from two consecutive counter samples. The
// first sample, a non-positive interval or a counter reset yields 0.
func ComputeRates(prev *models.Counters, cur models.Counters, elapsed time.Duration) (rx, tx float64) {
	if prev == nil || elapsed <= 0 {
		return 0, 0
	}
	return rate(prev.RxBytes, cur.RxBytes, elapsed), rate(prev.TxBytes, cur.TxBytes, elapsed)
}

func rate(prev, cur uint64, elapsed time.Duration) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur-prev) * 8 / elapsed.Seconds() / 1e6
}

func atou(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}
