package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbolis/schroedinger/model"
	"github.com/mbolis/schroedinger/uid"
)

// SurveyFilter carries the optional search predicates. A nil field means the
// corresponding predicate is skipped.
//
// Note the end-date predicate: it compares end_date against the *start-date*
// filter value, exactly as the queries always have. Callers rely on the
// documented behavior, so it stays until a deliberate schema of its own.
type SurveyFilter struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	PageNumber  int
	PageSize    int
}

// args CTE: a one-row table of the optional filter values, so every
// predicate can test for NULL against a named column.
const filterArgs = `
	WITH args (title, description, start_date, end_date)
	AS (VALUES ($1::text, $2::text, $3::timestamptz, $4::timestamptz))`

const filterPredicates = `
	AND (args.title IS NULL OR s.title LIKE args.title)
	AND (args.description IS NULL OR s.description LIKE args.description)
	AND (args.start_date IS NULL OR s.start_date > args.start_date)
	AND (args.end_date IS NULL OR s.end_date < args.start_date)`

func (f SurveyFilter) pattern(v *string) *string {
	if v == nil {
		return nil
	}
	p := "%" + *v + "%"
	return &p
}

func (f SurveyFilter) values() (title, description *string, startDate, endDate *time.Time) {
	return f.pattern(f.Title), f.pattern(f.Description), f.StartDate, f.EndDate
}

func (f SurveyFilter) offset() int {
	return f.PageNumber * f.PageSize
}

// SearchPublicSurveyIDs matches unsecured surveys only, newest ids first.
func (s *Store) SearchPublicSurveyIDs(ctx context.Context, q Querier, f SurveyFilter) ([]string, error) {
	title, description, startDate, endDate := f.values()
	rows, err := q.QueryContext(ctx, filterArgs+`
		SELECT s.id FROM surveys s, args
		WHERE s.secured IS false`+filterPredicates+`
		ORDER BY s.id DESC
		OFFSET $5 LIMIT $6`,
		title, description, startDate, endDate, f.offset(), f.PageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("search public surveys: %w", err)
	}
	return scanIDs(rows)
}

func (s *Store) CountPublicSurveys(ctx context.Context, q Querier, f SurveyFilter) (int, error) {
	title, description, startDate, endDate := f.values()
	var count int
	err := q.QueryRowContext(ctx, filterArgs+`
		SELECT count(s.id)::integer FROM surveys s, args
		WHERE s.secured IS false`+filterPredicates,
		title, description, startDate, endDate,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count public surveys: %w", err)
	}
	return count, nil
}

// SearchSecuredSurveyIDs matches secured surveys of the given owner only.
func (s *Store) SearchSecuredSurveyIDs(ctx context.Context, q Querier, f SurveyFilter, ownerID string) ([]string, error) {
	title, description, startDate, endDate := f.values()
	rows, err := q.QueryContext(ctx, filterArgs+`
		SELECT s.id FROM surveys s, args
		WHERE s.user_id = $5
		AND s.secured IS true`+filterPredicates+`
		ORDER BY s.id DESC
		OFFSET $6 LIMIT $7`,
		title, description, startDate, endDate, uid.Normalize(ownerID), f.offset(), f.PageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("search secured surveys: %w", err)
	}
	return scanIDs(rows)
}

func (s *Store) CountSecuredSurveys(ctx context.Context, q Querier, f SurveyFilter, ownerID string) (int, error) {
	title, description, startDate, endDate := f.values()
	var count int
	err := q.QueryRowContext(ctx, filterArgs+`
		SELECT count(s.id)::integer FROM surveys s, args
		WHERE s.user_id = $5
		AND s.secured IS true`+filterPredicates,
		title, description, startDate, endDate, uid.Normalize(ownerID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count secured surveys: %w", err)
	}
	return count, nil
}

// SearchSurveys is the owner-scoped general search: any combination of
// owner, secured and field filters, returning full aggregates ordered by
// creation time descending.
func (s *Store) SearchSurveys(ctx context.Context, q Querier, f SurveyFilter, ownerID *string, secured *bool) ([]model.Survey, error) {
	title, description, startDate, endDate := f.values()
	var owner *string
	if ownerID != nil {
		normalized := uid.Normalize(*ownerID)
		owner = &normalized
	}
	rows, err := q.QueryContext(ctx, filterArgs+`
		SELECT `+surveyAggregate+` AS result
		FROM surveys s, args
		WHERE ($5::uuid IS NULL OR s.user_id = $5::uuid)
		AND ($6::boolean IS NULL OR s.secured = $6::boolean)`+filterPredicates+`
		ORDER BY s.created DESC
		OFFSET $7 LIMIT $8`,
		title, description, startDate, endDate, owner, secured, f.offset(), f.PageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("search surveys: %w", err)
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan survey aggregate: %w", err)
		}
		var survey model.Survey
		if err := json.Unmarshal(raw, &survey); err != nil {
			return nil, fmt.Errorf("decode survey aggregate: %w", err)
		}
		fillAggregate(&survey)
		surveys = append(surveys, survey)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate surveys: %w", err)
	}
	return surveys, nil
}

func (s *Store) CountSurveys(ctx context.Context, q Querier, f SurveyFilter, ownerID *string, secured *bool) (int, error) {
	title, description, startDate, endDate := f.values()
	var owner *string
	if ownerID != nil {
		normalized := uid.Normalize(*ownerID)
		owner = &normalized
	}
	var count int
	err := q.QueryRowContext(ctx, filterArgs+`
		SELECT count(s.id)::integer
		FROM surveys s, args
		WHERE ($5::uuid IS NULL OR s.user_id = $5::uuid)
		AND ($6::boolean IS NULL OR s.secured = $6::boolean)`+filterPredicates,
		title, description, startDate, endDate, owner, secured,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count surveys: %w", err)
	}
	return count, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan survey id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate survey ids: %w", err)
	}
	return ids, nil
}
