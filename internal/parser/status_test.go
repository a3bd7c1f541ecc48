package parser

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-portwatch/internal/models"
)

func readTestdata(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(b)
}

func TestParseStatus_48Ports(t *testing.T) {
	raw := readTestdata(t, "show_interfaces_status.txt")

	frag, err := ParseStatus(raw)
	require.NoError(t, err)
	require.Len(t, frag.Rows, 48)
	assert.Empty(t, frag.Warnings)

	byID := map[string]StatusRow{}
	counts := map[models.PortStatus]int{}
	for i, r := range frag.Rows {
		byID[r.ID] = r
		counts[r.Status]++
		assert.Equal(t, "Gi1/0/"+strconv.Itoa(i+1), r.ID)
	}
	assert.Equal(t, 9, counts[models.StatusUp])
	assert.Equal(t, 1, counts[models.StatusDisabled])
	assert.Equal(t, 38, counts[models.StatusDown])

	p1 := byID["Gi1/0/1"]
	assert.Equal(t, "Workstation-01", p1.Description)
	assert.Equal(t, models.StatusUp, p1.Status)
	assert.Equal(t, 10, p1.VLAN)
	assert.Equal(t, models.ModeAccess, p1.Mode)
	assert.Equal(t, "full", p1.Duplex)
	assert.Equal(t, 1000, p1.SpeedMbps)
	assert.Equal(t, "10/100/1000BaseTX", p1.Media)

	// description containing a status word must not shift the columns
	p2 := byID["Gi1/0/2"]
	assert.Equal(t, "connected printer", p2.Description)
	assert.Equal(t, models.StatusDown, p2.Status)
	assert.Equal(t, 20, p2.VLAN)

	p3 := byID["Gi1/0/3"]
	assert.Equal(t, models.ModeTrunk, p3.Mode)
	assert.Equal(t, 1, p3.VLAN)

	assert.Equal(t, models.StatusDisabled, byID["Gi1/0/4"].Status)
	assert.Equal(t, models.StatusDown, byID["Gi1/0/5"].Status)
	assert.Equal(t, "err-disabled", byID["Gi1/0/5"].RawStatus)
	assert.Equal(t, 100, byID["Gi1/0/6"].SpeedMbps)
	assert.Equal(t, "Phone 1001", byID["Gi1/0/6"].Description)
	assert.Equal(t, 0, byID["Gi1/0/7"].SpeedMbps)
	assert.Equal(t, "auto", byID["Gi1/0/7"].Duplex)
}

func TestParseStatus_Idempotent(t *testing.T) {
	raw := readTestdata(t, "show_interfaces_status.txt")

	a, err := ParseStatus(raw)
	require.NoError(t, err)
	b, err := ParseStatus(raw)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseStatus_NoHeader(t *testing.T) {
	raw := "Gi1/0/1   uplink             connected    trunk      a-full  a-10G SFP-10GBase-SR\n" +
		"Te1/1/1                      notconnect   1            full    10G Not Present\r\n"

	frag, err := ParseStatus(raw)
	require.NoError(t, err)
	require.Len(t, frag.Rows, 2)
	assert.Equal(t, "uplink", frag.Rows[0].Description)
	assert.Equal(t, 10000, frag.Rows[0].SpeedMbps)
	assert.Equal(t, models.StatusUp, frag.Rows[0].Status)
	assert.Equal(t, "Te1/1/1", frag.Rows[1].ID)
	assert.Equal(t, "", frag.Rows[1].Description)
	assert.Equal(t, "Not Present", frag.Rows[1].Media)
}

func TestParseStatus_UnrecognizedRowIsSoftWarning(t *testing.T) {
	raw := readTestdata(t, "show_interfaces_status.txt") + "Gi1/0/49 garbage\n"

	frag, err := ParseStatus(raw)
	require.NoError(t, err)
	assert.Len(t, frag.Rows, 48)
	require.Len(t, frag.Warnings, 1)
	assert.Contains(t, frag.Warnings[0], "Gi1/0/49 garbage")
}

func TestParseStatus_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"cli error", "                 ^\n% Invalid input detected at '^' marker.\n"},
		{"garbage", "this is not a status table\nnor is this\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frag, err := ParseStatus(tt.raw)
			assert.Nil(t, frag)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, CmdStatus, pe.Command)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestParseSpeed(t *testing.T) {
	tests := map[string]int{
		"a-1000": 1000,
		"1000":   1000,
		"a-100":  100,
		"10G":    10000,
		"a-10G":  10000,
		"2.5G":   2500,
		"auto":   0,
		"":       0,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseSpeed(in), in)
	}
}
