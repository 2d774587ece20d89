package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gartstein/visaexplorer/internal/explorer/auth"
	e "github.com/gartstein/visaexplorer/internal/explorer/errors"
	"github.com/gartstein/visaexplorer/internal/explorer/models"
	"go.uber.org/zap"
)

// ExplorerController defines the business logic interface the HTTP
// handlers invoke.
type ExplorerController interface {
	SearchEmployers(ctx context.Context, filter models.EmployerSearchFilter) ([]models.EmployerSearchResult, error)
	GetEmployerStats(ctx context.Context, id string) (*models.EmployerStats, error)
	ListPositions(ctx context.Context, filter models.PositionFilter) ([]models.Position, error)
	Autocomplete(ctx context.Context, prefix string) ([]models.NameEntry, error)
	RebuildIndex(ctx context.Context) (*models.ReindexResult, error)
	GetCase(ctx context.Context, caseNumber string) (*models.Case, error)
	SearchCases(ctx context.Context, filter models.CaseSearchFilter) ([]models.CaseListing, error)
	Dropdown(ctx context.Context, criteria models.DropdownCriteria, state string) ([]string, error)
	RankCities(ctx context.Context) ([]models.CityRank, error)
	RankIndustries(ctx context.Context) ([]models.IndustryRank, error)
	Health(ctx context.Context) error
}

// envelope is the {result: ...} body of the employer and dropdown routes.
type envelope struct {
	Result interface{} `json:"result"`
}

// messages overrides the response message of a sentinel error on one route.
type messages map[error]string

// HTTPHandler serves the explorer routes.
type HTTPHandler struct {
	service ExplorerController
	logger  *zap.Logger
}

func NewHTTPHandler(service ExplorerController, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		logger:  logger.Named("http_handler"),
	}
}

// Routes returns the route table. Every route is GET.
func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/employer/search", h.SearchEmployers)
	mux.HandleFunc("GET /api/employer/positions", h.ListPositions)
	mux.HandleFunc("GET /api/employer/autocomplete", h.Autocomplete)
	mux.HandleFunc("GET /api/employer/autocomplete_update", h.RebuildIndex)
	mux.HandleFunc("GET /api/employer/{id}", h.GetEmployer)
	mux.HandleFunc("GET /api/case/search", h.SearchCases)
	mux.HandleFunc("GET /api/case/{id}", h.GetCase)
	mux.HandleFunc("GET /api/dropdown", h.Dropdown)
	mux.HandleFunc("GET /api/rank/city", h.RankCities)
	mux.HandleFunc("GET /api/rank/industry", h.RankIndustries)
	mux.HandleFunc("GET /health", h.Health)
	return mux
}

// SearchEmployers handles /api/employer/search.
func (h *HTTPHandler) SearchEmployers(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEmployerSearch(r.URL.Query())
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, envelope{Result: err.Error()})
		return
	}

	results, err := h.service.SearchEmployers(r.Context(), filter)
	if err != nil {
		status, msg := h.mapServiceError(r, err, nil)
		h.writeJSON(w, status, envelope{Result: msg})
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(results))
}

// GetEmployer handles /api/employer/{id}.
func (h *HTTPHandler) GetEmployer(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.writeJSON(w, http.StatusBadRequest, envelope{Result: "Invalid ID"})
		return
	}

	stats, err := h.service.GetEmployerStats(r.Context(), id)
	if err != nil {
		status, msg := h.mapServiceError(r, err, messages{
			e.ErrNotFound:         "No employer found with the given ID",
			e.ErrStatsUnavailable: "Failed to load employer statistics on given ID",
		})
		h.writeJSON(w, status, envelope{Result: msg})
		return
	}
	h.writeJSON(w, http.StatusOK, envelope{Result: stats})
}

// ListPositions handles /api/employer/positions.
func (h *HTTPHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePositions(r.URL.Query())
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, envelope{Result: err.Error()})
		return
	}
	if filter.EmployerID == "" {
		h.writeJSON(w, http.StatusBadRequest, envelope{Result: "Employer ID is required"})
		return
	}

	positions, err := h.service.ListPositions(r.Context(), filter)
	if err != nil {
		status, msg := h.mapServiceError(r, err, messages{
			e.ErrNotFound: "No positions found for the given employer ID",
		})
		h.writeJSON(w, status, envelope{Result: msg})
		return
	}
	h.writeJSON(w, http.StatusOK, envelope{Result: positions})
}

// Autocomplete handles /api/employer/autocomplete.
func (h *HTTPHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Autocomplete(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		status, msg := h.mapServiceError(r, err, nil)
		h.writeJSON(w, status, msg)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(entries))
}

// RebuildIndex handles /api/employer/autocomplete_update. The rebuild
// runs to completion even if the caller disconnects.
func (h *HTTPHandler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Index rebuild requested",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("subject", auth.Subject(r.Context())),
	)

	result, err := h.service.RebuildIndex(context.WithoutCancel(r.Context()))
	if err != nil {
		status, msg := h.mapServiceError(r, err, nil)
		h.writeJSON(w, status, msg)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// GetCase handles /api/case/{id}.
func (h *HTTPHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.writeJSON(w, http.StatusBadRequest, "Missing id")
		return
	}

	c, err := h.service.GetCase(r.Context(), id)
	if err != nil {
		status, msg := h.mapServiceError(r, err, messages{
			e.ErrNotFound: "Case does not exist",
		})
		h.writeJSON(w, status, msg)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// SearchCases handles /api/case/search.
func (h *HTTPHandler) SearchCases(w http.ResponseWriter, r *http.Request) {
	filter, err := parseCaseSearch(r.URL.Query())
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.EmployerID == "" {
		h.writeJSON(w, http.StatusBadRequest, "Missing parameter employer_id")
		return
	}

	cases, err := h.service.SearchCases(r.Context(), filter)
	if err != nil {
		status, msg := h.mapServiceError(r, err, nil)
		h.writeJSON(w, status, msg)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(cases))
}

// Dropdown handles /api/dropdown.
func (h *HTTPHandler) Dropdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := models.DropdownCriteria(queryString(q, "criteria"))

	values, err := h.service.Dropdown(r.Context(), criteria, queryString(q, "state"))
	if err != nil {
		status, msg := h.mapServiceError(r, err, nil)
		h.writeJSON(w, status, envelope{Result: msg})
		return
	}
	h.writeJSON(w, http.StatusOK, envelope{Result: nonNil(values)})
}

// RankCities handles /api/rank/city.
func (h *HTTPHandler) RankCities(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.service.RankCities(r.Context())
	if err != nil {
		status, msg := h.mapServiceError(r, err, nil)
		h.writeJSON(w, status, msg)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(ranks))
}

// RankIndustries handles /api/rank/industry.
func (h *HTTPHandler) RankIndustries(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.service.RankIndustries(r.Context())
	if err != nil {
		status, msg := h.mapServiceError(r, err, nil)
		h.writeJSON(w, status, msg)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(ranks))
}

func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// mapServiceError maps domain errors to HTTP status codes. Anything
// unrecognized is a 500 carrying the raw error message.
func (h *HTTPHandler) mapServiceError(r *http.Request, err error, msgs messages) (int, string) {
	var status int
	var sentinel error
	switch {
	case errors.Is(err, e.ErrInvalidInput):
		status, sentinel = http.StatusBadRequest, e.ErrInvalidInput
	case errors.Is(err, e.ErrNotFound):
		status, sentinel = http.StatusNotFound, e.ErrNotFound
	case errors.Is(err, e.ErrStatsUnavailable):
		status, sentinel = http.StatusNotFound, e.ErrStatsUnavailable
	case errors.Is(err, e.ErrUnauthorized):
		status, sentinel = http.StatusUnauthorized, e.ErrUnauthorized
	default:
		h.logger.Error("Internal server error",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		return http.StatusInternalServerError, err.Error()
	}

	if msg, ok := msgs[sentinel]; ok {
		return status, msg
	}
	return status, err.Error()
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
