package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go-portwatch/internal/models"
	"go-portwatch/internal/portname"
)

type StatusRow struct {
	ID          string
	Description string
	RawStatus   string
	Status      models.PortStatus
	VLAN        int
	Mode        models.PortMode
	Duplex      string
	SpeedMbps   int
	Media       string
}

// StatusFragment is the result of "show interfaces status". Warnings name rows
// that were skipped.
type StatusFragment struct {
	Rows     []StatusRow
	Warnings []string
}

var (
	statusRestRe = regexp.MustCompile(`^(\S+)\s+(\S+)\s+(\S+)\s+(\S+)(?:\s+(.*))?$`)
	statusRowRe  = regexp.MustCompile(`^(\S+)\s+(?:(.*?)\s+)?` +
		`(connected|notconnect|notconnected|disabled|err-disabled|inactive|suspended|monitoring|sfpAbsent|xcvrAbsent|noOperMem|notpresent|faulty|up|down)` +
		`\s+(\S+)\s+(\S+)\s+(\S+)(?:\s+(.*))?$`)
	dashesRe = regexp.MustCompile(`^[-\s]+$`)
)

type statusHeader struct {
	statusCol int
}

func parseStatusHeader(line string) (statusHeader, bool) {
	f := strings.Fields(line)
	if len(f) < 4 || f[0] != "Port" {
		return statusHeader{}, false
	}
	col := strings.Index(line, "Status")
	if col < 0 || !strings.Contains(line, "Vlan") {
		return statusHeader{}, false
	}
	return statusHeader{statusCol: col}, true
}

// ParseStatus parses "show interfaces status".
func ParseStatus(raw string) (*StatusFragment, error) {
	if l, ok := cliError(raw); ok {
		return nil, &ParseError{Command: CmdStatus, Line: l, Reason: "device rejected command"}
	}

	frag := &StatusFragment{}
	var (
		hdr       statusHeader
		hasHeader bool
		firstBad  string
	)

	for _, line := range lines(raw) {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" || dashesRe.MatchString(line) {
			continue
		}
		if h, ok := parseStatusHeader(line); ok {
			hdr, hasHeader = h, true
			continue
		}

		row, ok := parseStatusLine(line, hdr, hasHeader)
		if !ok {
			if firstBad == "" {
				firstBad = line
			}
			frag.Warnings = append(frag.Warnings, fmt.Sprintf("skipped unrecognized status row %q", line))
			continue
		}
		frag.Rows = append(frag.Rows, row)
	}

	if len(frag.Rows) == 0 {
		if firstBad == "" {
			return nil, &ParseError{Command: CmdStatus, Reason: "no interface rows in output"}
		}
		return nil, &ParseError{Command: CmdStatus, Line: firstBad, Reason: "no interface rows recognized"}
	}
	return frag, nil
}

func parseStatusLine(line string, hdr statusHeader, hasHeader bool) (StatusRow, bool) {
	f := strings.Fields(line)
	if len(f) == 0 || !portname.Valid(f[0]) {
		return StatusRow{}, false
	}
	id := f[0]

	// column-aligned parse; falls back to token matching when the row does not
	// line up with the header
	if hasHeader {
		idEnd := strings.Index(line, id) + len(id)
		col := hdr.statusCol
		if col > idEnd && col < len(line) && line[col-1] == ' ' && line[col] != ' ' {
			if m := statusRestRe.FindStringSubmatch(line[col:]); m != nil {
				return buildStatusRow(id, line[idEnd:col], m[1], m[2], m[3], m[4], m[5]), true
			}
		}
	}

	m := statusRowRe.FindStringSubmatch(line)
	if m == nil {
		return StatusRow{}, false
	}
	return buildStatusRow(m[1], m[2], m[3], m[4], m[5], m[6], m[7]), true
}

func buildStatusRow(id, desc, status, vlan, duplex, speed, media string) StatusRow {
	row := StatusRow{
		ID:          portname.Canonical(id),
		Description: strings.TrimSpace(desc),
		RawStatus:   status,
		Status:      mapStatus(status),
		Duplex:      strings.TrimPrefix(strings.ToLower(duplex), "a-"),
		SpeedMbps:   parseSpeed(speed),
		Media:       strings.TrimSpace(media),
	}
	row.VLAN, row.Mode = parseVLAN(vlan)
	return row
}

func mapStatus(s string) models.PortStatus {
	switch strings.ToLower(s) {
	case "connected", "up":
		return models.StatusUp
	case "disabled":
		return models.StatusDisabled
	default:
		return models.StatusDown
	}
}

func parseVLAN(v string) (int, models.PortMode) {
	switch strings.ToLower(v) {
	case "trunk":
		return 1, models.ModeTrunk
	case "routed":
		return 0, models.ModeRouted
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, models.ModeAccess
	}
	return n, models.ModeAccess
}

// parseSpeed turns "a-1000", "100", "10G" or "2.5G" into Mbps. "auto" is 0.
func parseSpeed(s string) int {
	s = strings.TrimPrefix(strings.ToLower(s), "a-")
	mult := 1.0
	if strings.HasSuffix(s, "g") {
		mult = 1000
		s = strings.TrimSuffix(s, "g")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(v * mult)
}
