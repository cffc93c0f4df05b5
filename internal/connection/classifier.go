// Package connection guesses the kind of network a visitor is on from the
// organization name returned by the geolocation lookup.
package connection

import "regexp"

// Type is a connection category.
type Type string

const (
	PublicWiFi Type = "Public WiFi"
	Cellular   Type = "4G/5G Cellular"
	Broadband  Type = "Broadband/Home"
)

// rule matches an organization name; Unless vetoes an otherwise matching name.
type rule struct {
	Type   Type
	Match  *regexp.Regexp
	Unless *regexp.Regexp
}

// Rules are evaluated in order and the first match wins.
var rules = []rule{
	{
		Type:  PublicWiFi,
		Match: regexp.MustCompile(`(?i)WIFI|GUEST|STARBUCKS|HILTON|MARRIOTT|HOTEL|AIRPORT|PUBLIC|LIBRARY`),
	},
	{
		Type:  Cellular,
		Match: regexp.MustCompile(`(?i)VIETTEL MOBILE|VNPT MOBILE|VINAPHONE|MOBIFONE`),
	},
	{
		Type:   Cellular,
		Match:  regexp.MustCompile(`(?i)WIRELESS|MOBIL|CELLULAR|T-MOBILE|AT&T|METROPCS|VODAFONE|TELECOM|SPRINT|O2|EE`),
		Unless: regexp.MustCompile(`(?i)VIETTEL|VNPT|FPT`),
	},
	{
		Type:  Broadband,
		Match: regexp.MustCompile(`(?i)SPECTRUM|CHARTER|OPTIMUM|VERIZON FIOS|FIOS|COMCAST|XFINITY|COX|CENTURYLINK|FRONTIER|MEDIACOM|CABLE|FPT|VNPT|BROADBAND|VIETTEL`),
	},
}

// Classify returns the connection type of org, false when no rule matches.
func Classify(org string) (Type, bool) {
	for _, r := range rules {
		if !r.Match.MatchString(org) {
			continue
		}
		if r.Unless != nil && r.Unless.MatchString(org) {
			continue
		}
		return r.Type, true
	}
	return "", false
}

// Annotate appends the connection type to org, e.g. "Comcast Cable (Broadband/Home)".
// org is returned unchanged when no rule matches.
func Annotate(org string) string {
	t, ok := Classify(org)
	if !ok {
		return org
	}
	return org + " (" + string(t) + ")"
}
