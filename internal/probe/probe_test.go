package probe

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	tests := map[string]Method{
		"":      MethodSSH,
		"ssh":   MethodSSH,
		" ICMP": MethodICMP,
		"snmp":  MethodSNMP,
	}
	for in, want := range tests {
		got, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMethod("telnet")
	assert.Error(t, err)
}

func TestSnmpString(t *testing.T) {
	assert.Equal(t, "SW-CORE-01", snmpString(gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("SW-CORE-01")}))
	assert.Equal(t, "sw2", snmpString(gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: "sw2"}))
	assert.Equal(t, "", snmpString(gosnmp.SnmpPDU{Type: gosnmp.NoSuchObject}))
	assert.Equal(t, "42", snmpString(gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: 42}))
}

func TestSysName_NoAgent(t *testing.T) {
	// a UDP socket that never answers
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, p, err := net.SplitHostPort(conn.LocalAddr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)

	pr := New(100 * time.Millisecond)
	pr.SNMPPort = uint16(port)
	pr.Retries = 0

	res := pr.SysName(context.Background(), "127.0.0.1", "")
	assert.False(t, res.Reachable)
	assert.Equal(t, MethodSNMP, res.Method)
	assert.NotEmpty(t, res.Reason)
	assert.Empty(t, res.Hostname)
}

func TestNew_Defaults(t *testing.T) {
	pr := New(0)
	assert.Equal(t, gosnmp.Default.Timeout, pr.Timeout)
	assert.Equal(t, uint16(161), pr.SNMPPort)
	assert.Equal(t, 3, pr.Count)
}
