// Package useragent turns a raw User-Agent header into the browser, OS and
// device labels stored on a visit.
package useragent

import (
	"strings"

	"github.com/ua-parser/uap-go/uaparser"

	"github.com/axellelanca/visittracker/internal/models"
)

// uap-go reports unresolved families as "Other".
const uapOther = "Other"

// Parsed holds the raw fields extracted from a User-Agent string.
// Empty strings mean "not resolved".
type Parsed struct {
	BrowserName    string
	BrowserVersion string
	OSName         string
	OSVersion      string
	DeviceModel    string
	DeviceVendor   string
	DeviceType     string
}

// Parser extracts Parsed fields from a User-Agent header.
type Parser interface {
	Parse(ua string) Parsed
}

// UAPParser is a Parser backed by the embedded uap-core regex definitions.
type UAPParser struct {
	parser *uaparser.Parser
}

// NewUAPParser loads the embedded definitions. Loading compiles a few
// hundred regexes, so build one parser per process.
func NewUAPParser() *UAPParser {
	return &UAPParser{parser: uaparser.NewFromSaved()}
}

// Parse implements Parser.
func (p *UAPParser) Parse(ua string) Parsed {
	var out Parsed
	if strings.TrimSpace(ua) == "" {
		return out
	}

	client := p.parser.Parse(ua)
	if client.UserAgent != nil && client.UserAgent.Family != uapOther {
		out.BrowserName = client.UserAgent.Family
		out.BrowserVersion = joinVersion(client.UserAgent.Major, client.UserAgent.Minor, client.UserAgent.Patch)
	}
	if client.Os != nil && client.Os.Family != uapOther {
		out.OSName = client.Os.Family
		out.OSVersion = joinVersion(client.Os.Major, client.Os.Minor, client.Os.Patch)
	}
	if client.Device != nil && !desktopPlaceholder(client.Device) {
		out.DeviceModel = client.Device.Model
		out.DeviceVendor = client.Device.Brand
		out.DeviceType = client.Device.Family
	}
	return out
}

// desktopPlaceholder reports device entries that carry no hardware information:
// unresolved devices and the generic "Mac" entry uap-core emits for every macOS browser.
func desktopPlaceholder(d *uaparser.Device) bool {
	return d.Family == uapOther || d.Family == "" || (d.Family == "Mac" && d.Model == "Mac")
}

func joinVersion(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			break
		}
		nonEmpty = append(nonEmpty, p)
	}
	return strings.Join(nonEmpty, ".")
}

// Resolution is the browser/os/device triple stored on a visit.
type Resolution struct {
	Browser string
	OS      string
	Device  string
}

// Resolve builds the stored labels from parsed fields and the optional
// device name guessed by the client.
func Resolve(p Parsed, guessedDevice string) Resolution {
	res := Resolution{
		Browser: label(p.BrowserName, p.BrowserVersion),
		OS:      label(p.OSName, p.OSVersion),
	}
	res.Device = resolveDevice(guessedDevice, p, res.OS)
	return res
}

// resolveDevice returns the first non-empty candidate. The OS based
// correction only applies when no candidate was found.
func resolveDevice(guessed string, p Parsed, os string) string {
	for _, candidate := range []string{guessed, p.DeviceModel, p.DeviceVendor, p.DeviceType} {
		if candidate != "" {
			return candidate
		}
	}

	switch {
	case strings.Contains(os, "Mac OS"):
		return models.MacUnknownModel
	case strings.Contains(os, "Windows"):
		return models.WindowsPCDevice
	default:
		return models.DefaultDevice
	}
}

func label(name, version string) string {
	if name == "" {
		return models.Unknown
	}
	return strings.TrimSpace(name + " " + version)
}
