package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mbolis/schroedinger/store"
	"github.com/mbolis/schroedinger/uid"
)

const (
	defaultPageNumber = 0
	defaultPageSize   = 5
)

func surveyIDParam(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	return id, uid.Valid(id)
}

// parseSurveyFilter reads the optional search parameters off the query
// string. Absent parameters leave the corresponding filter nil.
func parseSurveyFilter(r *http.Request) (f store.SurveyFilter, err error) {
	query := r.URL.Query()

	if title := query.Get("title"); title != "" {
		f.Title = &title
	}
	if description := query.Get("description"); description != "" {
		f.Description = &description
	}
	if f.StartDate, err = parseDate(query.Get("start_date")); err != nil {
		return f, fmt.Errorf("start_date: %w", err)
	}
	if f.EndDate, err = parseDate(query.Get("end_date")); err != nil {
		return f, fmt.Errorf("end_date: %w", err)
	}

	f.PageNumber = defaultPageNumber
	if raw := query.Get("page_number"); raw != "" {
		if f.PageNumber, err = strconv.Atoi(raw); err != nil || f.PageNumber < 0 {
			return f, fmt.Errorf("page_number: invalid value %q", raw)
		}
	}
	f.PageSize = defaultPageSize
	if raw := query.Get("page_size"); raw != "" {
		if f.PageSize, err = strconv.Atoi(raw); err != nil || f.PageSize < 1 {
			return f, fmt.Errorf("page_size: invalid value %q", raw)
		}
	}

	return f, nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", raw)
	}
	return &t, nil
}
