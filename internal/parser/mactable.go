package parser

import (
	"strconv"
	"strings"

	"go-portwatch/internal/models"
)

const macTableTemplate = `Value VLAN (\d+|All|all)
Value Required MAC ([0-9a-fA-F]{4}\.[0-9a-fA-F]{4}\.[0-9a-fA-F]{4})
Value TYPE (\S+)
Value PORTS (\S+)

Start
  ^\s*${VLAN}\s+${MAC}\s+${TYPE}\s+${PORTS}\s*$$ -> Record
`

// ParseMACTable parses "show mac address-table interface X". An empty table is
// a valid empty result.
func ParseMACTable(raw string) ([]models.MACEntry, error) {
	const cmd = "show mac address-table"
	if l, ok := cliError(raw); ok {
		return nil, &ParseError{Command: cmd, Line: l, Reason: "device rejected command"}
	}
	entries := []models.MACEntry{}
	if strings.TrimSpace(raw) == "" {
		return entries, nil
	}

	records, err := runTemplate(macTableTemplate, raw)
	if err != nil {
		return nil, &ParseError{Command: cmd, Reason: err.Error()}
	}

	for _, r := range records {
		mac := dottedToColon(r["MAC"])
		if mac == "" {
			continue
		}
		vlan, _ := strconv.Atoi(r["VLAN"])
		entries = append(entries, models.MACEntry{
			MAC:  mac,
			VLAN: vlan,
			Type: strings.ToLower(r["TYPE"]),
		})
	}
	return entries, nil
}

// dottedToColon turns Cisco "aabb.cc11.2233" into "aa:bb:cc:11:22:33".
func dottedToColon(mac string) string {
	hex := strings.ToLower(strings.ReplaceAll(mac, ".", ""))
	if len(hex) != 12 {
		return ""
	}
	parts := make([]string, 6)
	for i := range parts {
		parts[i] = hex[i*2 : i*2+2]
	}
	return strings.Join(parts, ":")
}
