package domain

import (
	"strings"
	"time"

	"github.com/mssola/useragent"
)

// Device classes accepted by snapshot selections.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
)

// Pageview is one stored visit with its nested scroll and click records.
type Pageview struct {
	ID         int64
	SiteID     string
	SessionID  string
	Path       string
	PageHeight int
	UserAgent  string
	Device     string
	CreatedAt  time.Time
	Scrolls    []ScrollRecord
	Clicks     []ClickRecord
}

// ScrollRecord captures how far a visit scrolled and how long it stayed.
// Zones is nil when the record carried no valid attention vector.
type ScrollRecord struct {
	MaxDepth  int
	DwellMs   int64
	Zones     *AttentionVector
	CreatedAt time.Time
}

// ClickRecord is a raw click in page coordinates.
type ClickRecord struct {
	X         int
	Y         int
	Selector  string
	IsRage    bool
	CreatedAt time.Time
}

// PageviewQuery selects stored pageviews. An empty Path or Device matches all.
type PageviewQuery struct {
	SiteID string
	Path   string
	Device string
	Start  time.Time
	End    time.Time
	Limit  int
}

// ValidDevice reports whether d is an accepted device filter. Empty means no filter.
func ValidDevice(d string) bool {
	switch d {
	case "", DeviceDesktop, DeviceMobile, DeviceTablet:
		return true
	}
	return false
}

// DeviceFromUserAgent classifies a user agent string into a device class. Android
// tablets are the Android agents that omit the Mobile token.
func DeviceFromUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return DeviceDesktop
	}
	ua := useragent.New(raw)
	switch platform := ua.Platform(); {
	case platform == "iPad", strings.Contains(strings.ToLower(raw), "tablet"):
		return DeviceTablet
	case strings.HasPrefix(ua.OS(), "Android"):
		if strings.Contains(raw, "Mobile") {
			return DeviceMobile
		}
		return DeviceTablet
	case platform == "iPhone", platform == "iPod", ua.Mobile():
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}
