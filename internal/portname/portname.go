package portname

import (
	"regexp"
	"strings"
)

type Rule struct {
	Regex   *regexp.Regexp
	Handler func(match []string) string
}

// abbreviations maps IOS long interface type names to the short form used by
// "show interfaces status" and "show power inline". Longest names first.
var abbreviations = []struct {
	long  string
	short string
}{
	{"TwentyFiveGigE", "Twe"},
	{"HundredGigE", "Hu"},
	{"FortyGigabitEthernet", "Fo"},
	{"TwoGigabitEthernet", "Tw"},
	{"FiveGigabitEthernet", "Fi"},
	{"TenGigabitEthernet", "Te"},
	{"AppGigabitEthernet", "Ap"},
	{"GigabitEthernet", "Gi"},
	{"FastEthernet", "Fa"},
	{"Port-channel", "Po"},
}

var ifaceRe = regexp.MustCompile(`^([A-Za-z][A-Za-z-]*)(\d+(?:/\d+)*(?:\.\d+)?)$`)

// Canonical returns the short IOS form of an interface name, e.g.
// "GigabitEthernet1/0/48" -> "Gi1/0/48". Names already short, or unknown, are
// returned trimmed and otherwise unchanged.
func Canonical(name string) string {
	name = strings.TrimSpace(name)
	m := ifaceRe.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	for _, a := range abbreviations {
		if strings.EqualFold(m[1], a.long) {
			return a.short + m[2]
		}
	}
	return name
}

// Valid reports whether name looks like an interface name (type + numbers).
func Valid(name string) bool {
	return ifaceRe.MatchString(strings.TrimSpace(name))
}

var physicalPrefixes = []string{"Gi", "Te", "Tw", "Twe", "Fi", "Fo", "Hu", "Fa"}

// IsPhysical reports whether a canonical name is a front-panel port (not a
// VLAN SVI, port-channel, app port or management port).
func IsPhysical(canonical string) bool {
	m := ifaceRe.FindStringSubmatch(canonical)
	if m == nil {
		return false
	}
	// Gi0/0 is the management port on Catalyst 9k
	if m[1] == "Gi" && m[2] == "0/0" {
		return false
	}
	for _, p := range physicalPrefixes {
		if m[1] == p {
			return true
		}
	}
	return false
}

var Rules = []Rule{
	// uplink module ports like "Te1/1/4" -> "u4"
	{
		regexp.MustCompile(`^(?:Te|Twe|Fo|Hu|Gi)\d+/1/(\d+)$`),
		func(m []string) string { return "u" + m[1] },
	},
	// 3-level: "Gi1/0/48" -> "48"
	{
		regexp.MustCompile(`^[A-Za-z]+\d+/\d+/(\d+)$`),
		func(m []string) string { return m[1] },
	},
	// 2-level: "Gi0/9" -> "9"
	{
		regexp.MustCompile(`^[A-Za-z]+\d+/(\d+)$`),
		func(m []string) string { return m[1] },
	},
}

// Label extracts a short, consistent label for display on port boxes.
func Label(name string) string {
	c := Canonical(name)
	for _, rule := range Rules {
		if match := rule.Regex.FindStringSubmatch(c); len(match) > 1 {
			return rule.Handler(match)
		}
	}
	return c
}
