package services

import (
	"net"
	"strings"

	"github.com/axellelanca/visittracker/internal/models"
)

const loopbackIPv4 = "127.0.0.1"

// OriginInput gathers every source a visitor address can come from.
type OriginInput struct {
	PublicIP     string // public_ip body field, reported by the page
	LookupIP     string // lookup_ip body field, preferred for geolocation
	ForwardedFor string // X-Forwarded-For header, possibly a comma separated chain
	RemoteAddr   string // transport peer, "host:port"
}

// Origin holds the two addresses resolved for a visit.
// Stored and Lookup follow separate precedence chains and may differ.
type Origin struct {
	// Stored is written to the ip_address column, nil when no source had a value
	Stored *string
	// Lookup is the address sent to the geolocation service, "" when the lookup must be skipped
	Lookup string
}

// ResolveOrigin applies the precedence chains:
//   - stored: public_ip, X-Forwarded-For (verbatim), peer address
//   - lookup: lookup_ip, X-Forwarded-For, peer address; first comma token,
//     loopback normalized to 127.0.0.1
func ResolveOrigin(in OriginInput) Origin {
	peer := peerHost(in.RemoteAddr)

	var origin Origin
	if stored := firstNonEmpty(in.PublicIP, in.ForwardedFor, peer); stored != "" {
		origin.Stored = &stored
	}

	lookup := normalizeLookup(firstNonEmpty(in.LookupIP, in.ForwardedFor, peer))
	if !skipLookup(lookup) {
		origin.Lookup = lookup
	}
	return origin
}

// peerHost strips the port from a RemoteAddr value.
func peerHost(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func normalizeLookup(addr string) string {
	first, _, _ := strings.Cut(addr, ",")
	first = strings.TrimSpace(first)
	if ip := net.ParseIP(first); ip != nil && ip.IsLoopback() {
		return loopbackIPv4
	}
	return first
}

func skipLookup(addr string) bool {
	return addr == "" || addr == loopbackIPv4 || addr == models.Unknown
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
