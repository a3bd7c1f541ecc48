// Command portpoll polls one switch once and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"go-portwatch/internal/cache"
	"go-portwatch/internal/history"
	"go-portwatch/internal/logger"
	"go-portwatch/internal/models"
	"go-portwatch/internal/poller"
	"go-portwatch/internal/probe"
	"go-portwatch/internal/session"
)

type options struct {
	Host      string        `short:"H" long:"host" description:"switch address" required:"true"`
	Port      int           `short:"p" long:"port" description:"SSH port" default:"22"`
	User      string        `short:"u" long:"user" description:"SSH user" env:"SWITCH_USER"`
	Password  string        `long:"password" description:"SSH password" env:"SWITCH_PASS"`
	Timeout   time.Duration `long:"timeout" description:"connect timeout" default:"15s"`
	CmdTime   time.Duration `long:"command-timeout" description:"per command timeout" default:"30s"`
	KnownHost string        `long:"known-hosts" description:"known_hosts file for host key checks" env:"SWITCH_KNOWN_HOSTS"`
	MAC       string        `long:"mac" description:"print the MAC table of this port instead of polling"`
	Probe     string        `long:"probe" description:"only check reachability" choice:"ssh" choice:"icmp" choice:"snmp"`
	Community string        `long:"community" description:"SNMP community for --probe snmp" default:"public"`
	Debug     bool          `short:"d" long:"debug" description:"debug logging to stderr"`
}

// single-switch inventory for the poller
type oneSwitch struct {
	sw models.Switch
}

func (o oneSwitch) Lookup(_ context.Context, id string) (models.Switch, error) {
	if id != o.sw.Name {
		return models.Switch{}, fmt.Errorf("%w: %s", poller.ErrUnknownSwitch, id)
	}
	return o.sw, nil
}

func (o oneSwitch) List(context.Context) ([]models.Switch, error) {
	return []models.Switch{o.sw}, nil
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "portpoll:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	level := "error"
	if opts.Debug {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Level: level, Output: "stderr"}); err != nil {
		return err
	}
	client, err := session.NewClient(session.Config{
		ConnectTimeout: opts.Timeout,
		CommandTimeout: opts.CmdTime,
		KnownHostsFile: opts.KnownHost,
	}, logger.WithComponent("session"))
	if err != nil {
		return err
	}

	sw := models.Switch{
		Name:      opts.Host,
		Host:      opts.Host,
		Port:      opts.Port,
		Community: opts.Community,
		Probe:     opts.Probe,
	}
	p := poller.New(poller.Config{
		Inventory:   oneSwitch{sw: sw},
		Executor:    client,
		Prober:      probe.New(opts.Timeout),
		Cache:       cache.New(cache.DefaultTTL),
		Tracker:     history.NewTracker(history.DefaultIdleThreshold, history.DefaultMaxEvents),
		Credentials: session.Credentials{Username: opts.User, Password: opts.Password},
	}, logger.WithComponent("poller"))

	ctx := context.Background()
	var out interface{}
	switch {
	case opts.Probe != "":
		out, err = p.Probe(ctx, sw.Name)
	case opts.MAC != "":
		out, err = p.MACTable(ctx, sw.Name, opts.MAC)
	default:
		out, err = p.Poll(ctx, sw.Name, true)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
