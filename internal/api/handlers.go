package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	customerrors "github.com/axellelanca/visittracker/internal/errors"
	"github.com/axellelanca/visittracker/internal/logging"
	"github.com/axellelanca/visittracker/internal/services"
)

// SetupRoutes configures all Gin API routes and injects necessary dependencies
// Parameters:
//   - router: Gin engine instance to configure routes on
//   - visitService: business logic service for the visit lifecycle
//   - adminService: schema maintenance, GET /api/init answers 404 when reset is disabled
func SetupRoutes(router *gin.Engine, visitService *services.VisitService, adminService *services.AdminService) {
	// Health Check Route - used for monitoring service availability
	router.GET("/health", HealthCheckHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/init", InitHandler(adminService))
		api.GET("/visitors", ListVisitorsHandler(visitService))
		api.DELETE("/visitors/:id", DeleteVisitorHandler(visitService))

		track := api.Group("/track")
		track.POST("/enter", EnterHandler(visitService))
		track.POST("/action", ActionHandler(visitService))
		track.POST("/location", LocationHandler(visitService))
		track.POST("/leave", LeaveHandler(visitService))
	}
}

// HealthCheckHandler handles the /health route to verify service status
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// EnterRequest is the body of POST /api/track/enter. Only visited_url is required.
type EnterRequest struct {
	VisitedURL       string `json:"visited_url"`
	ScreenResolution string `json:"screen_resolution"`
	BatteryInfo      string `json:"battery_info"`
	Action           string `json:"action"`
	PublicIP         string `json:"public_ip"`
	LookupIP         string `json:"lookup_ip"`
	GuessedDevice    string `json:"guessed_device"`
	MotionStatus     string `json:"motion_status"`
}

// VisitorID is the id returned by enter. Clients send it back either as a
// JSON number or as a numeric string; 0, null and "" all mean absent.
type VisitorID uint

func (id *VisitorID) UnmarshalJSON(data []byte) error {
	var n uint
	if err := json.Unmarshal(data, &n); err == nil {
		*id = VisitorID(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("visitor_id: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*id = 0
		return nil
	}
	parsed, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return fmt.Errorf("visitor_id %q: %w", s, err)
	}
	*id = VisitorID(parsed)
	return nil
}

// ActionRequest is the body of POST /api/track/action.
type ActionRequest struct {
	VisitorID    VisitorID `json:"visitor_id"`
	Action       string    `json:"action"`
	MotionStatus string    `json:"motion_status"`
}

// LocationRequest is the body of POST /api/track/location.
// lat and lng accept any JSON scalar and are stored as written.
type LocationRequest struct {
	VisitorID VisitorID       `json:"visitor_id"`
	Lat       json.RawMessage `json:"lat"`
	Lng       json.RawMessage `json:"lng"`
}

// LeaveRequest is the body of POST /api/track/leave.
type LeaveRequest struct {
	VisitorID VisitorID `json:"visitor_id"`
}

// bindJSON decodes the request body; an empty body leaves req zero-valued
// so the presence checks report the missing fields.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

// respondError maps validation errors to 400 and logs everything else as a 500.
func respondError(c *gin.Context, err error, message string) {
	var validation customerrors.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
		return
	}
	logging.Ctx(c.Request.Context()).Error().Err(err).Msg(message)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

// InitHandler drops and recreates the visitors table.
func InitHandler(adminService *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !adminService.ResetEnabled() {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		if err := adminService.ResetSchema(c.Request.Context()); err != nil {
			respondError(c, err, "Failed to initialize database")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Visitor database initialized successfully!"})
	}
}

// ListVisitorsHandler returns every visit, most recent first.
func ListVisitorsHandler(visitService *services.VisitService) gin.HandlerFunc {
	return func(c *gin.Context) {
		visits, err := visitService.List(c.Request.Context())
		if err != nil {
			respondError(c, err, "Failed to fetch visitors")
			return
		}
		c.JSON(http.StatusOK, visits)
	}
}

// EnterHandler records a new visit and returns its id.
// The forwarded header and peer address are read raw: the precedence rules
// live in the service, not in gin's ClientIP.
func EnterHandler(visitService *services.VisitService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EnterRequest
		if !bindJSON(c, &req) {
			return
		}

		id, err := visitService.Enter(c.Request.Context(), services.EnterInput{
			VisitedURL:       req.VisitedURL,
			ScreenResolution: req.ScreenResolution,
			BatteryInfo:      req.BatteryInfo,
			Action:           req.Action,
			MotionStatus:     req.MotionStatus,
			GuessedDevice:    req.GuessedDevice,
			UserAgent:        c.GetHeader("User-Agent"),
			Origin: services.OriginInput{
				PublicIP:     req.PublicIP,
				LookupIP:     req.LookupIP,
				ForwardedFor: c.GetHeader("X-Forwarded-For"),
				RemoteAddr:   c.Request.RemoteAddr,
			},
		})
		if err != nil {
			respondError(c, err, "Failed to track visitor")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"visitor_id": id})
	}
}

// ActionHandler updates the last action of a visit.
func ActionHandler(visitService *services.VisitService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ActionRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := visitService.TrackAction(c.Request.Context(), uint(req.VisitorID), req.Action, req.MotionStatus); err != nil {
			respondError(c, err, "Failed to track action")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Action tracked successfully"})
	}
}

// LocationHandler stores the GPS position reported by the page.
func LocationHandler(visitService *services.VisitService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LocationRequest
		if !bindJSON(c, &req) {
			return
		}
		coords, err := visitService.TrackLocation(c.Request.Context(), uint(req.VisitorID), scalarText(req.Lat), scalarText(req.Lng))
		if err != nil {
			respondError(c, err, "Failed to update GPS location")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "coords": coords})
	}
}

// LeaveHandler closes a visit and returns its duration in seconds.
func LeaveHandler(visitService *services.VisitService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LeaveRequest
		if !bindJSON(c, &req) {
			return
		}
		duration, err := visitService.Leave(c.Request.Context(), uint(req.VisitorID))
		if err != nil {
			respondError(c, err, "Failed to track exit")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Exit tracked successfully", "duration": duration})
	}
}

// DeleteVisitorHandler removes one visit by id.
func DeleteVisitorHandler(visitService *services.VisitService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 0)
		if err != nil || id == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Log not found"})
			return
		}

		if _, err := visitService.Delete(c.Request.Context(), uint(id)); err != nil {
			if errors.Is(err, customerrors.ErrVisitNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Log not found"})
				return
			}
			respondError(c, err, "Failed to delete log")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Log deleted successfully"})
	}
}

// scalarText renders a JSON scalar as stored text: numbers keep their literal
// form, strings are unquoted, null and missing values become "".
func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
