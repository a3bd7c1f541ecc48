package parser

import (
	"fmt"

	"github.com/netxops/gotextfsm"
)

// runTemplate parses raw with a TextFSM template and returns one string map per
// record. List values are rendered with fmt.
func runTemplate(tmpl, raw string) ([]map[string]string, error) {
	fsm := gotextfsm.TextFSM{}
	if err := fsm.ParseString(tmpl); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}

	out := gotextfsm.ParserOutput{}
	if err := out.ParseTextString(raw, fsm, true); err != nil {
		return nil, err
	}

	records := make([]map[string]string, 0, len(out.Dict))
	for _, rec := range out.Dict {
		m := make(map[string]string, len(rec))
		for k, v := range rec {
			if s, ok := v.(string); ok {
				m[k] = s
			} else {
				m[k] = fmt.Sprintf("%v", v)
			}
		}
		records = append(records, m)
	}
	return records, nil
}
