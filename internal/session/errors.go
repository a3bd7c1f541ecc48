package session

import (
	"errors"
	"net"
	"strings"
)

var (
	// ErrUnreachable: the TCP connection could not be established.
	ErrUnreachable = errors.New("switch unreachable")
	// ErrAuthFailure: the switch rejected the credentials.
	ErrAuthFailure = errors.New("ssh authentication failed")
	// ErrTimeout: connect/handshake or a command exceeded its timeout.
	ErrTimeout = errors.New("ssh timeout")
	// ErrProtocol: any other SSH-level failure.
	ErrProtocol = errors.New("ssh protocol error")
)

// ssh.NewClientConn formats handshake errors with %v, so timeouts are only
// recognizable by text once wrapped.
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "i/o timeout")
}

func isAuthFailure(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}
