// Package session runs batches of show commands on a switch over SSH.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"go-portwatch/internal/guard"
)

const (
	DefaultPort           = 22
	DefaultConnectTimeout = 15 * time.Second
	DefaultCommandTimeout = 30 * time.Second
)

type Credentials struct {
	Username string
	Password string
}

type Target struct {
	Host string
	Port int
	Credentials
}

func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

type Config struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	// KnownHostsFile enables host key verification. Empty accepts any key.
	KnownHostsFile string
}

type Client struct {
	connectTimeout time.Duration
	commandTimeout time.Duration
	hostKey        ssh.HostKeyCallback
	logger         zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	c := &Client{
		connectTimeout: cfg.ConnectTimeout,
		commandTimeout: cfg.CommandTimeout,
		logger:         logger,
	}
	if c.connectTimeout <= 0 {
		c.connectTimeout = DefaultConnectTimeout
	}
	if c.commandTimeout <= 0 {
		c.commandTimeout = DefaultCommandTimeout
	}

	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		c.hostKey = cb
	} else {
		c.logger.Warn().Msg("no known_hosts file configured, switch host keys are not verified")
		c.hostKey = ssh.InsecureIgnoreHostKey()
	}
	return c, nil
}

// Execute opens one SSH connection, runs each command on its own exec channel
// and returns the raw outputs in command order. The connection is closed on
// every return path. Any failure aborts the whole batch.
func (c *Client) Execute(ctx context.Context, t Target, commands []string) ([]string, error) {
	if err := guard.CheckAll(commands); err != nil {
		return nil, err
	}

	client, err := c.connect(ctx, t)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	outputs := make([]string, 0, len(commands))
	for _, cmd := range commands {
		out, err := c.run(ctx, client, cmd)
		if err != nil {
			return nil, fmt.Errorf("%s: %q: %w", t.Host, cmd, err)
		}
		outputs = append(outputs, out)
	}

	c.logger.Debug().Str("host", t.Host).Int("commands", len(commands)).Msg("command batch complete")
	return outputs, nil
}

// Probe connects and authenticates without running anything.
func (c *Client) Probe(ctx context.Context, t Target) error {
	client, err := c.connect(ctx, t)
	if err != nil {
		return err
	}
	return client.Close()
}

func (c *Client) clientConfig(t Target) *ssh.ClientConfig {
	password := t.Password
	cfg := &ssh.ClientConfig{
		User: t.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: c.hostKey,
		Timeout:         c.connectTimeout,
	}
	// older IOS images only offer group14-sha1
	cfg.KeyExchanges = []string{
		"curve25519-sha256",
		"curve25519-sha256@libssh.org",
		"ecdh-sha2-nistp256",
		"ecdh-sha2-nistp384",
		"ecdh-sha2-nistp521",
		"diffie-hellman-group14-sha256",
		"diffie-hellman-group14-sha1",
	}
	return cfg
}

func (c *Client) connect(ctx context.Context, t Target) (*ssh.Client, error) {
	addr := t.Addr()
	dialer := net.Dialer{Timeout: c.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: connect %s: %v", ErrTimeout, addr, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, addr, err)
	}

	// the deadline bounds handshake and authentication
	deadline := time.Now().Add(c.connectTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, c.clientConfig(t))
	if err != nil {
		conn.Close()
		switch {
		case isAuthFailure(err):
			return nil, fmt.Errorf("%w: %s as %q", ErrAuthFailure, addr, t.Username)
		case isTimeout(err):
			return nil, fmt.Errorf("%w: handshake with %s: %v", ErrTimeout, addr, err)
		default:
			return nil, fmt.Errorf("%w: handshake with %s: %v", ErrProtocol, addr, err)
		}
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func (c *Client) run(ctx context.Context, client *ssh.Client, cmd string) (string, error) {
	// checked again right before transmission
	if err := guard.Check(cmd); err != nil {
		return "", err
	}

	sess, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("%w: open channel: %v", ErrProtocol, err)
	}
	defer sess.Close()

	var buf bytes.Buffer
	sess.Stdout = &buf
	sess.Stderr = &buf

	done := make(chan error, 1)
	go func() { done <- sess.Run(strings.TrimSpace(cmd)) }()

	timer := time.NewTimer(c.commandTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil && !exitedNormally(err) {
			return "", fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		return buf.String(), nil
	case <-timer.C:
		client.Close()
		return "", fmt.Errorf("%w: command exceeded %s", ErrTimeout, c.commandTimeout)
	case <-ctx.Done():
		client.Close()
		return "", fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
}

// IOS reports command errors in the output text, where the parsers pick them
// up. A non-zero or missing exit status is not a session failure.
func exitedNormally(err error) bool {
	var exitErr *ssh.ExitError
	var missing *ssh.ExitMissingError
	return errors.As(err, &exitErr) || errors.As(err, &missing)
}
