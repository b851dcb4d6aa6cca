package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gridwatch/traffic-anomaly-service/internal/dataset"
	"github.com/gridwatch/traffic-anomaly-service/internal/domain"
	"github.com/gridwatch/traffic-anomaly-service/internal/view"
)

// handleMonths returns the distinct months of the base table.
// GET /api/v1/months
func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	months, err := s.engine.Months(r.Context())
	if err != nil {
		s.serverError(w, "list months", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": months,
		"meta": map[string]any{"count": len(months)},
	})
}

// handleOptions returns the cascading selector values for the given filters.
// GET /api/v1/options?month=6&day_of_week=0
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts, err := s.engine.Options(r.Context(), sel)
	if err != nil {
		s.serverError(w, "compute options", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": opts})
}

// handleView returns the filtered, scored, and aggregated view.
// GET /api/v1/view?month=6&day_of_week=0&hour=8&threshold=2.0
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.Recompute(r.Context(), q)
	if err != nil {
		s.serverError(w, "recompute view", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": result,
		"meta": map[string]any{
			"count":         result.TotalRows,
			"anomaly_count": result.AnomalyCount,
			"threshold":     result.Threshold,
			"computed_at":   result.ComputedAt,
		},
	})
}

// handleExport streams the current view as a CSV attachment.
// GET /api/v1/export?month=6&threshold=2.0
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dataset.ExportFilename))

	if err := s.engine.ExportCSV(r.Context(), q, w); err != nil {
		// Headers have already been sent, so just log and drop the stream.
		s.logger.Error("export failed", "error", err)
	}
}

func (s *Server) parseQuery(r *http.Request) (view.Query, error) {
	sel, err := parseSelection(r)
	if err != nil {
		return view.Query{}, err
	}

	threshold := s.defaultThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return view.Query{}, fmt.Errorf("invalid threshold %q", raw)
		}
		if err := view.ValidateThreshold(threshold); err != nil {
			return view.Query{}, err
		}
	}

	return view.Query{Selection: sel, Threshold: threshold}, nil
}

func parseSelection(r *http.Request) (domain.Selection, error) {
	q := r.URL.Query()

	raw := q.Get("month")
	if raw == "" {
		return domain.Selection{}, errors.New("month is required")
	}
	month, err := strconv.Atoi(raw)
	if err != nil {
		return domain.Selection{}, fmt.Errorf("invalid month %q", raw)
	}

	sel := domain.Selection{Month: month}
	if sel.DayOfWeek, err = optionalInt(q.Get("day_of_week"), "day_of_week"); err != nil {
		return domain.Selection{}, err
	}
	if sel.Hour, err = optionalInt(q.Get("hour"), "hour"); err != nil {
		return domain.Selection{}, err
	}
	return sel, nil
}

func optionalInt(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return &v, nil
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
