package parser

import (
	"errors"
	"fmt"
	"strings"
)

var ErrParse = errors.New("parse error")

// ParseError reports malformed output of one command. Line is the offending
// line when one can be named.
type ParseError struct {
	Command string
	Line    string
	Reason  string
}

func (e *ParseError) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("parse %q: %s (line %q)", e.Command, e.Reason, e.Line)
	}
	return fmt.Sprintf("parse %q: %s", e.Command, e.Reason)
}

func (*ParseError) Unwrap() error { return ErrParse }

// cliError returns the first IOS error marker line ("% Invalid input ...").
func cliError(raw string) (string, bool) {
	for _, line := range strings.Split(raw, "\n") {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "% Invalid") ||
			strings.HasPrefix(l, "% Ambiguous") ||
			strings.HasPrefix(l, "% Incomplete") ||
			strings.HasPrefix(l, "% Unknown command") {
			return l, true
		}
	}
	return "", false
}

func lines(raw string) []string {
	return strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
}
