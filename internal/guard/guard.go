// Package guard is the only authorization boundary for commands sent to a switch.
// Every command must pass Check immediately before it is written to a session.
package guard

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrCommandRejected = errors.New("command rejected: only show commands are allowed")

// Permits reports whether cmd is a read-only show command.
func Permits(cmd string) bool {
	c := strings.ToLower(strings.TrimSpace(cmd))
	if strings.ContainsAny(c, "\r\n") {
		return false
	}
	if !strings.HasPrefix(c, "show") {
		return false
	}
	rest := c[len("show"):]
	return rest == "" || unicode.IsSpace(rune(rest[0]))
}

// Check returns an error wrapping ErrCommandRejected when cmd is not permitted.
func Check(cmd string) error {
	if !Permits(cmd) {
		return fmt.Errorf("%w: %q", ErrCommandRejected, cmd)
	}
	return nil
}

// CheckAll validates a whole batch before a connection is opened.
func CheckAll(cmds []string) error {
	for _, c := range cmds {
		if err := Check(c); err != nil {
			return err
		}
	}
	return nil
}
