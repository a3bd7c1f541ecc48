// Package probe checks whether a switch answers on the network without opening
// an SSH session: ICMP echo or an SNMP sysName GET.
package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	probing "github.com/prometheus-community/pro-bing"
)

type Method string

const (
	MethodSSH  Method = "ssh"
	MethodICMP Method = "icmp"
	MethodSNMP Method = "snmp"
)

// ParseMethod maps an inventory probe value to a Method. Empty means ssh.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodSSH, nil
	case MethodSSH, MethodICMP, MethodSNMP:
		return m, nil
	default:
		return "", fmt.Errorf("unknown probe method %q", s)
	}
}

type Result struct {
	Reachable bool          `json:"reachable"`
	Method    Method        `json:"method"`
	Reason    string        `json:"reason,omitempty"`
	Hostname  string        `json:"hostname,omitempty"`
	RTT       time.Duration `json:"rtt,omitempty"`
}

const sysNameOID = "1.3.6.1.2.1.1.5.0"

type Prober struct {
	Timeout    time.Duration
	Count      int
	Privileged bool
	SNMPPort   uint16
	Retries    int
}

func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = gosnmp.Default.Timeout
	}
	return &Prober{
		Timeout:  timeout,
		Count:    3,
		SNMPPort: 161,
		Retries:  1,
	}
}

// Ping sends ICMP echo requests and reports reachable if any reply came back.
func (p *Prober) Ping(ctx context.Context, host string) Result {
	res := Result{Method: MethodICMP}

	pr := probing.New(host)
	if err := pr.Resolve(); err != nil {
		res.Reason = fmt.Sprintf("DNS lookup '%s': %v", host, err)
		return res
	}

	pr.RecordRtts = false
	pr.Interval = 200 * time.Millisecond
	pr.Count = p.Count
	pr.Timeout = p.Timeout
	pr.SetPrivileged(p.Privileged)
	pr.SetLogger(nil)

	if err := pr.RunWithContext(ctx); err != nil {
		res.Reason = fmt.Sprintf("pinging host '%s' (ip %s): %v", pr.Addr(), pr.IPAddr(), err)
		return res
	}

	stats := pr.Statistics()
	if stats.PacketsRecv == 0 {
		res.Reason = fmt.Sprintf("no reply from %s (%d sent)", pr.IPAddr(), stats.PacketsSent)
		return res
	}
	res.Reachable = true
	res.RTT = stats.AvgRtt
	return res
}

// SysName queries SNMPv2c sysName.0. Any response counts as reachable.
func (p *Prober) SysName(ctx context.Context, host, community string) Result {
	res := Result{Method: MethodSNMP}
	if community == "" {
		community = "public"
	}

	g := &gosnmp.GoSNMP{
		Target:    host,
		Port:      p.SNMPPort,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   p.Timeout,
		Retries:   p.Retries,
		Context:   ctx,
	}

	if err := g.Connect(); err != nil {
		res.Reason = fmt.Sprintf("connect error: %v", err)
		return res
	}
	defer g.Conn.Close()

	start := time.Now()
	pkt, err := g.Get([]string{sysNameOID})
	if err != nil {
		res.Reason = fmt.Sprintf("SNMP get error: %v", err)
		return res
	}
	res.Reachable = true
	res.RTT = time.Since(start)
	if len(pkt.Variables) > 0 {
		res.Hostname = snmpString(pkt.Variables[0])
	}
	return res
}

func snmpString(pdu gosnmp.SnmpPDU) string {
	switch pdu.Type {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
		return ""
	}
	switch v := pdu.Value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
