package models

import "time"

// Default values for the descriptive fields of a visit.
const (
	Unknown          = "Unknown"
	DefaultAction    = "VIEW"
	DefaultMotion    = "Static"
	DefaultDevice    = "Desktop PC"
	MacUnknownModel  = "Mac (Unknown Model)"
	WindowsPCDevice  = "Windows PC"
	visitorTableName = "visitors"
)

// Visit represents one page visit stored in the database.
// It is created on enter and then updated by action, location and leave events.
type Visit struct {
	// ID is the primary key, assigned by the store and never reused
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	// IPAddress is the caller-facing address, nil when nothing could be resolved.
	// X-Forwarded-For is stored verbatim so it can hold a comma separated chain.
	IPAddress *string `gorm:"size:255" json:"ip_address"`

	// Geolocation enrichment, "Unknown" when the lookup was skipped or failed
	Country string `gorm:"size:100" json:"country"`
	City    string `gorm:"size:255" json:"city"`
	ISP     string `gorm:"column:isp;size:255" json:"isp"`

	// Parsed from the User-Agent header
	Browser string `gorm:"size:100" json:"browser"`
	OS      string `gorm:"column:os;size:100" json:"os"`
	Device  string `gorm:"size:255" json:"device"`

	// Client-supplied hints
	ScreenResolution string `gorm:"size:50" json:"screen_resolution"`
	BatteryInfo      string `gorm:"size:100" json:"battery_info"`

	// LastAction is an open vocabulary label, "VIEW" at creation
	LastAction string `gorm:"size:100" json:"last_action"`

	// VisitedURL is required at creation and never changes afterwards
	VisitedURL string `gorm:"column:visited_url;type:text;not null" json:"visited_url"`

	// Geolocation holds "lat, lng" once a location update arrived
	Geolocation *string `gorm:"size:100" json:"geolocation"`

	MotionStatus string `gorm:"size:50" json:"motion_status"`

	// VisitedAt is set from the server clock when the visit is created
	// - index: the listing is ordered by this column
	VisitedAt time.Time `gorm:"index;not null" json:"visited_at"`

	// LeftAt and DurationSeconds are only written by leave
	LeftAt          *time.Time `json:"left_at"`
	DurationSeconds int        `gorm:"not null;default:0" json:"duration_seconds"`
}

// TableName keeps the historical table name.
func (Visit) TableName() string {
	return visitorTableName
}

// Closed reports whether a leave event has been recorded for the visit.
func (v *Visit) Closed() bool {
	return v.LeftAt != nil
}
