package parser

import (
	"strconv"
	"strings"

	"go-portwatch/internal/models"
	"go-portwatch/internal/portname"
)

const powerTemplate = `Value Required INTERFACE (\S+)
Value ADMIN (\S+)
Value OPER (\S+)
Value POWER (\d+\.?\d*)
Value DEVICE (.*?)
Value CLASS (\S+)
Value MAX (\d+\.?\d*)

Start
  ^Interface\s+Admin\s+Oper -> Table

Table
  ^${INTERFACE}\s+${ADMIN}\s+${OPER}\s+${POWER}\s+${DEVICE}\s+${CLASS}\s+${MAX}\s*$$ -> Record
`

// PowerFragment maps canonical port id to its PoE state. Ports missing from the
// map have no PoE hardware or were not listed.
type PowerFragment struct {
	Ports map[string]models.PoE
}

// ParsePower parses "show power inline". Empty output is a valid empty fragment.
func ParsePower(raw string) (*PowerFragment, error) {
	if l, ok := cliError(raw); ok {
		return nil, &ParseError{Command: CmdPower, Line: l, Reason: "device rejected command"}
	}
	frag := &PowerFragment{Ports: map[string]models.PoE{}}
	if strings.TrimSpace(raw) == "" {
		return frag, nil
	}
	if !strings.Contains(raw, "Interface") {
		return nil, &ParseError{Command: CmdPower, Reason: "power inline table header not found"}
	}

	records, err := runTemplate(powerTemplate, raw)
	if err != nil {
		return nil, &ParseError{Command: CmdPower, Reason: err.Error()}
	}

	for _, r := range records {
		if r["INTERFACE"] == "" {
			continue
		}
		poe := models.PoE{Enabled: strings.EqualFold(r["OPER"], "on")}
		if poe.Enabled {
			poe.Watts, _ = strconv.ParseFloat(r["POWER"], 64)
		}
		frag.Ports[portname.Canonical(r["INTERFACE"])] = poe
	}
	return frag, nil
}
