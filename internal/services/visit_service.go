// Package services contains the business logic layer of the visit tracker.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/axellelanca/visittracker/internal/connection"
	customerrors "github.com/axellelanca/visittracker/internal/errors"
	"github.com/axellelanca/visittracker/internal/geoip"
	"github.com/axellelanca/visittracker/internal/logging"
	"github.com/axellelanca/visittracker/internal/metrics"
	"github.com/axellelanca/visittracker/internal/models"
	"github.com/axellelanca/visittracker/internal/repository"
	"github.com/axellelanca/visittracker/internal/useragent"
)

// GeoLookup resolves an address to a location. It must not fail: problems
// are reported through an Unavailable result.
type GeoLookup interface {
	Lookup(ctx context.Context, ip string) geoip.Result
}

// EnterInput is everything known about a visit when the page is opened.
type EnterInput struct {
	VisitedURL       string
	ScreenResolution string
	BatteryInfo      string
	Action           string
	MotionStatus     string
	GuessedDevice    string
	UserAgent        string
	Origin           OriginInput
}

// VisitService provides business logic methods for the visit lifecycle.
// It acts as an intermediary between the HTTP handlers and the data repository.
type VisitService struct {
	repo repository.VisitRepository
	geo  GeoLookup
	ua   useragent.Parser
	now  func() time.Time
}

// NewVisitService creates and returns a new instance of VisitService.
func NewVisitService(repo repository.VisitRepository, geo GeoLookup, ua useragent.Parser) *VisitService {
	return &VisitService{
		repo: repo,
		geo:  geo,
		ua:   ua,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the clock used for visited_at and left_at.
func (s *VisitService) SetClock(now func() time.Time) {
	s.now = now
}

// Enter assembles and stores a new visit record.
// Parameters:
//   - ctx: request context; cancelling it abandons the lookup but not the insert
//   - in: the request fields, headers and peer address
//
// Returns:
//   - uint: the id of the new visit
//   - error: a ValidationError when visited_url is missing, or a storage error
func (s *VisitService) Enter(ctx context.Context, in EnterInput) (uint, error) {
	if in.VisitedURL == "" {
		return 0, customerrors.NewValidationError("visited_url", "Missing visited_url")
	}

	origin := ResolveOrigin(in.Origin)
	geo := s.enrich(ctx, origin.Lookup)
	ua := useragent.Resolve(s.ua.Parse(in.UserAgent), in.GuessedDevice)

	visit := &models.Visit{
		IPAddress:        origin.Stored,
		Country:          models.Unknown,
		City:             models.Unknown,
		ISP:              models.Unknown,
		Browser:          ua.Browser,
		OS:               ua.OS,
		Device:           ua.Device,
		ScreenResolution: orDefault(in.ScreenResolution, models.Unknown),
		BatteryInfo:      orDefault(in.BatteryInfo, models.Unknown),
		LastAction:       orDefault(in.Action, models.DefaultAction),
		VisitedURL:       in.VisitedURL,
		MotionStatus:     orDefault(in.MotionStatus, models.DefaultMotion),
		VisitedAt:        s.now(),
	}
	if geo.OK() {
		visit.Country = geo.Country
		visit.City = geo.City
		visit.ISP = connection.Annotate(geo.Org)
		if t, ok := connection.Classify(geo.Org); ok {
			metrics.ConnectionTypes.WithLabelValues(string(t)).Inc()
		}
	}

	// The caller may have gone away during the lookup; the record is still written.
	if err := s.repo.CreateVisit(context.WithoutCancel(ctx), visit); err != nil {
		return 0, fmt.Errorf("failed to record visit: %w", err)
	}

	metrics.VisitsEntered.Inc()
	logging.Ctx(ctx).Info().
		Uint("visitor_id", visit.ID).
		Str("country", visit.Country).
		Str("device", visit.Device).
		Msg("Visit recorded")
	return visit.ID, nil
}

// enrich runs the geolocation lookup, logging and counting failures.
func (s *VisitService) enrich(ctx context.Context, ip string) geoip.Result {
	if ip == "" {
		metrics.RecordEnrichment("skipped", 0)
		return geoip.Unknown(customerrors.ErrLookupSkipped)
	}

	start := time.Now()
	res := s.geo.Lookup(ctx, ip)
	metrics.RecordEnrichment(res.Outcome(), time.Since(start))

	if !res.OK() {
		logging.Ctx(ctx).Warn().Err(res.Reason).Str("ip", ip).Msg("Geolocation unavailable, keeping defaults")
	}
	return res
}

// TrackAction records the latest action and, when given, the motion status.
// An unknown id is not an error.
func (s *VisitService) TrackAction(ctx context.Context, id uint, action, motionStatus string) error {
	if id == 0 || action == "" {
		return customerrors.NewValidationError("visitor_id", "Missing visitor_id or action")
	}

	fields := map[string]any{"last_action": action}
	if motionStatus != "" {
		fields["motion_status"] = motionStatus
	}

	n, err := s.repo.UpdateVisit(ctx, id, fields)
	if err != nil {
		return fmt.Errorf("failed to track action: %w", err)
	}
	metrics.RecordLifecycleUpdate("action", n > 0)
	return nil
}

// TrackLocation stores "lat, lng" on the visit and returns it.
// lat and lng are stored as given, without validation.
func (s *VisitService) TrackLocation(ctx context.Context, id uint, lat, lng string) (string, error) {
	if id == 0 {
		return "", customerrors.NewValidationError("visitor_id", "visitor_id required")
	}

	coords := FormatCoords(lat, lng)
	n, err := s.repo.UpdateVisit(ctx, id, map[string]any{"geolocation": coords})
	if err != nil {
		return "", fmt.Errorf("failed to update location: %w", err)
	}
	metrics.RecordLifecycleUpdate("location", n > 0)
	return coords, nil
}

// FormatCoords renders a coordinate pair the way it is stored.
func FormatCoords(lat, lng string) string {
	return lat + ", " + lng
}

// Leave closes the visit and returns its duration in whole seconds.
// Every call recomputes the duration from visited_at, so repeated leaves
// extend it. An unknown id yields 0.
func (s *VisitService) Leave(ctx context.Context, id uint) (int, error) {
	if id == 0 {
		return 0, customerrors.NewValidationError("visitor_id", "Missing visitor_id")
	}

	visit, err := s.repo.CloseVisit(ctx, id, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to track exit: %w", err)
	}
	metrics.RecordLifecycleUpdate("leave", visit != nil)
	if visit == nil {
		return 0, nil
	}
	return visit.DurationSeconds, nil
}

// List returns every visit, most recent first.
func (s *VisitService) List(ctx context.Context) ([]models.Visit, error) {
	return s.repo.GetAllVisits(ctx)
}

// Get returns one visit. Returns customerrors.ErrVisitNotFound for an unknown id.
func (s *VisitService) Get(ctx context.Context, id uint) (*models.Visit, error) {
	return s.repo.GetVisitByID(ctx, id)
}

// Delete removes a visit. Returns customerrors.ErrVisitNotFound for an unknown id.
func (s *VisitService) Delete(ctx context.Context, id uint) (*models.Visit, error) {
	visit, err := s.repo.DeleteVisit(ctx, id)
	if err != nil {
		if errors.Is(err, customerrors.ErrVisitNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete visit: %w", err)
	}
	logging.Ctx(ctx).Info().Uint("visitor_id", id).Msg("Visit deleted")
	return visit, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
