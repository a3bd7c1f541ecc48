package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go-portwatch/internal/models"
)

var (
	uptimeRe   = regexp.MustCompile(`(?m)^(\S+) uptime is (.+)$`)
	uptimePart = regexp.MustCompile(`(\d+)\s*(year|week|day|hour|minute)`)
	swVerRe    = regexp.MustCompile(`(?m)^Cisco IOS.*Software.*, Version ([^,\s]+)`)
	modelRe    = regexp.MustCompile(`(?m)^Model [Nn]umber\s*:\s*(\S+)`)
	modelCPURe = regexp.MustCompile(`(?m)^cisco (\S+) .*processor`)
	serialRe   = regexp.MustCompile(`(?m)^System [Ss]erial [Nn]umber\s*:\s*(\S+)`)
)

// ParseVersion parses "show version" into device-level info.
func ParseVersion(raw string) (*models.DeviceInfo, error) {
	if l, ok := cliError(raw); ok {
		return nil, &ParseError{Command: CmdVersion, Line: l, Reason: "device rejected command"}
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	m := uptimeRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, &ParseError{Command: CmdVersion, Reason: "uptime line not found"}
	}
	info := &models.DeviceInfo{
		Hostname: m[1],
		Uptime:   parseUptime(m[2]),
	}

	// the first software line is the XE release; later ones repeat it in IOS form
	if v := swVerRe.FindStringSubmatch(raw); v != nil {
		info.Version = v[1]
	}
	if v := modelRe.FindStringSubmatch(raw); v != nil {
		info.Model = v[1]
	} else if v := modelCPURe.FindStringSubmatch(raw); v != nil {
		info.Model = v[1]
	}
	if v := serialRe.FindStringSubmatch(raw); v != nil {
		info.Serial = v[1]
	}
	return info, nil
}

func parseUptime(s string) time.Duration {
	var d time.Duration
	for _, m := range uptimePart.FindAllStringSubmatch(s, -1) {
		n, _ := strconv.Atoi(m[1])
		v := time.Duration(n)
		switch m[2] {
		case "year":
			d += v * 365 * 24 * time.Hour
		case "week":
			d += v * 7 * 24 * time.Hour
		case "day":
			d += v * 24 * time.Hour
		case "hour":
			d += v * time.Hour
		case "minute":
			d += v * time.Minute
		}
	}
	return d
}
