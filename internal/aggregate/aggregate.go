// Package aggregate joins parser fragments into one record per physical port.
package aggregate

import (
	"go-portwatch/internal/models"
	"go-portwatch/internal/parser"
	"go-portwatch/internal/portname"
)

// Fragments holds one poll's parser output. A nil field means that parser failed
// and its dimension falls back to defaults.
type Fragments struct {
	Status   *parser.StatusFragment
	Counters *parser.CountersFragment
	Power    *parser.PowerFragment
	Version  *models.DeviceInfo
}

type Result struct {
	Ports    []models.PortRecord
	Device   models.DeviceInfo
	Warnings []string
	// CountersMissing is set when the counters fragment failed and every port
	// carries zeroed counters that must not be used as a rate baseline.
	CountersMissing bool
}

// Aggregate outer-joins the fragments by canonical port id. History fields
// (LastChanged, Events, IsUnused ...) are left for the history tracker.
func Aggregate(f Fragments) Result {
	var res Result

	switch {
	case f.Status != nil:
		res.Warnings = append(res.Warnings, f.Status.Warnings...)
		for _, row := range f.Status.Rows {
			if !portname.IsPhysical(row.ID) {
				continue
			}
			res.Ports = append(res.Ports, fromStatus(row))
		}
	case f.Counters != nil:
		res.Warnings = append(res.Warnings, "interface status unavailable: port list derived from interface counters")
		for _, id := range f.Counters.Order {
			if !portname.IsPhysical(id) {
				continue
			}
			row := f.Counters.Rows[id]
			res.Ports = append(res.Ports, models.PortRecord{
				ID:          id,
				Status:      row.Status(),
				Mode:        models.ModeAccess,
				Description: row.Description,
			})
		}
	default:
		res.Warnings = append(res.Warnings, "interface status unavailable: no port data")
	}

	if f.Counters == nil {
		res.CountersMissing = true
		res.Warnings = append(res.Warnings, "interface counters unavailable: counters left at zero")
	}
	if f.Power == nil {
		res.Warnings = append(res.Warnings, "power inline unavailable: PoE left at defaults")
	}
	if f.Version == nil {
		res.Warnings = append(res.Warnings, "version unavailable: device info left empty")
	} else {
		res.Device = *f.Version
	}

	for i := range res.Ports {
		p := &res.Ports[i]
		p.PortNum = i + 1
		p.Label = portname.Label(p.ID)
		if f.Counters != nil {
			if row, ok := f.Counters.Rows[p.ID]; ok {
				p.Counters = row.Counters
			}
		}
		if f.Power != nil {
			if poe, ok := f.Power.Ports[p.ID]; ok {
				p.PoE = poe
			}
		}
	}
	return res
}

func fromStatus(row parser.StatusRow) models.PortRecord {
	return models.PortRecord{
		ID:          row.ID,
		Status:      row.Status,
		VLAN:        row.VLAN,
		Mode:        row.Mode,
		SpeedMbps:   row.SpeedMbps,
		Duplex:      row.Duplex,
		Media:       row.Media,
		Description: row.Description,
	}
}
