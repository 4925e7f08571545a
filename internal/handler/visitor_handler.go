package handler

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"visitstats/internal/domain"
	"visitstats/internal/service"
	apperrors "visitstats/pkg/errors"
	"visitstats/pkg/logger"
)

// VisitorHandler handles visit recording and stats HTTP requests
type VisitorHandler struct {
	visitorService service.VisitorService
	logger         *logger.Logger
	now            func() time.Time
}

// NewVisitorHandler creates a new visitor handler
func NewVisitorHandler(visitorService service.VisitorService, logger *logger.Logger) *VisitorHandler {
	return &VisitorHandler{
		visitorService: visitorService,
		logger:         logger.Named("handler"),
		now:            time.Now,
	}
}

// RangeQuery echoes the resolved bounds of a range-style request
type RangeQuery struct {
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
	Resolution domain.Resolution `json:"resolution,omitempty"`
}

// GroupedResponse is the payload of GET /api/stats/grouped
type GroupedResponse struct {
	RangeQuery
	Buckets []domain.BucketStat `json:"buckets"`
}

// WeekdayResponse is the payload of GET /api/stats/weekdays
type WeekdayResponse struct {
	RangeQuery
	Weekdays []domain.WeekdayStat `json:"weekdays"`
}

// Visit handles GET /: records the caller and returns today's stats as JSON,
// or as an HTML page for browsers
func (h *VisitorHandler) Visit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now()
	ipAddress := h.getRealIPAddress(r)

	if err := h.visitorService.RecordVisit(ctx, now, ipAddress); err != nil {
		sendErrorResponse(w, r, h.logger, err)
		return
	}

	stats := h.visitorService.Summary(now)
	if wantsHTML(r) {
		writeStatsPage(w, h.logger, stats)
	} else {
		writeJSON(w, h.logger, http.StatusOK, StatsResponse{Success: true, Data: stats})
	}

	h.logger.WithFields(map[string]interface{}{
		"ip":        ipAddress,
		"day_total": stats.DayTotal,
	}).Debug("Visit recorded successfully")
}

// GetStats handles GET /api/stats?date=YYYY-MM-DD
func (h *VisitorHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	date := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := domain.ParseTimeBound(raw, h.visitorService.Location(), false)
		if err != nil {
			sendErrorResponse(w, r, h.logger, err)
			return
		}
		date = parsed
	}

	writeJSON(w, h.logger, http.StatusOK, StatsResponse{Success: true, Data: h.visitorService.Summary(date)})
}

// GetRange handles GET /api/stats/range?start=&end=
func (h *VisitorHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseRange(r)
	if err != nil {
		sendErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, StatsResponse{Success: true, Data: h.visitorService.Range(q.Start, q.End)})
}

// GetGrouped handles GET /api/stats/grouped?start=&end=&resolution=
func (h *VisitorHandler) GetGrouped(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseRange(r)
	if err != nil {
		sendErrorResponse(w, r, h.logger, err)
		return
	}

	raw := r.URL.Query().Get("resolution")
	resolution, err := domain.ParseResolution(raw)
	if err != nil {
		sendErrorResponse(w, r, h.logger, apperrors.NewInvalidResolutionError(raw))
		return
	}
	q.Resolution = resolution

	buckets, err := h.visitorService.Grouped(q.Start, q.End, resolution)
	if err != nil {
		sendErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, StatsResponse{
		Success: true,
		Data:    GroupedResponse{RangeQuery: q, Buckets: buckets},
	})
}

// GetWeekdays handles GET /api/stats/weekdays?start=&end=
func (h *VisitorHandler) GetWeekdays(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseRange(r)
	if err != nil {
		sendErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, StatsResponse{
		Success: true,
		Data:    WeekdayResponse{RangeQuery: q, Weekdays: h.visitorService.WeekdayBreakdown(q.Start, q.End)},
	})
}

// parseRange reads the required start and end query parameters
func (h *VisitorHandler) parseRange(r *http.Request) (RangeQuery, error) {
	loc := h.visitorService.Location()
	query := r.URL.Query()

	missing := make([]string, 0, 2)
	for _, key := range []string{"start", "end"} {
		if query.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return RangeQuery{}, apperrors.NewValidationError("start and end are required", map[string]interface{}{
			"missing": missing,
		})
	}

	start, err := domain.ParseTimeBound(query.Get("start"), loc, false)
	if err != nil {
		return RangeQuery{}, err
	}
	end, err := domain.ParseTimeBound(query.Get("end"), loc, true)
	if err != nil {
		return RangeQuery{}, err
	}
	return RangeQuery{Start: start, End: end}, nil
}

// getRealIPAddress extracts the real IP address from the request
func (h *VisitorHandler) getRealIPAddress(r *http.Request) string {
	// Check for IP in various headers (in order of preference)
	headers := []string{
		"CF-Connecting-IP", // Cloudflare
		"X-Forwarded-For",  // Standard proxy header
		"X-Real-IP",        // Nginx proxy
		"X-Client-IP",      // Apache proxy
	}

	for _, header := range headers {
		if ip := strings.TrimSpace(r.Header.Get(header)); ip != "" {
			// X-Forwarded-For can contain multiple IPs, take the first one
			if header == "X-Forwarded-For" {
				if firstIP := getFirstIP(ip); firstIP != "" {
					return firstIP
				}
				continue
			}
			return ip
		}
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// getFirstIP extracts the first IP from a comma-separated list
func getFirstIP(ips string) string {
	for i, char := range ips {
		if char == ',' || char == ' ' {
			return ips[:i]
		}
	}
	return ips
}

// RegisterRoutes registers visitor handler routes with the router
func (h *VisitorHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Visit)
	r.Route("/api/stats", func(r chi.Router) {
		r.Get("/", h.GetStats)
		r.Get("/range", h.GetRange)
		r.Get("/grouped", h.GetGrouped)
		r.Get("/weekdays", h.GetWeekdays)
	})
}
