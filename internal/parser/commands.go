package parser

// Commands sent on every poll, in send order.
const (
	CmdStatus   = "show interfaces status"
	CmdCounters = "show interfaces"
	CmdPower    = "show power inline"
	CmdVersion  = "show version"
)

const cmdMACTablePrefix = "show mac address-table interface "

// MACTableCommand builds the per-port MAC table command. The port must already
// be validated as an interface name by the caller.
func MACTableCommand(port string) string {
	return cmdMACTablePrefix + port
}
