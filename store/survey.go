package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mbolis/schroedinger/model"
	"github.com/mbolis/schroedinger/uid"
)

// surveyAggregate reconstructs a survey with its nested questions and
// options as one JSON document in a single round trip. Questions and options
// come back ordered by position, ties broken by id.
const surveyAggregate = `
	json_build_object(
		'id', s.id,
		'title', s.title,
		'user_id', s.user_id,
		'description', s.description,
		'start_date', s.start_date,
		'end_date', s.end_date,
		'secured', s.secured,
		'created', s.created,
		'constrained_questions', (
			SELECT json_agg(
				json_build_object(
					'id', cq.id,
					'question_text', cq.question_text,
					'position', cq.position,
					'options', (
						SELECT json_agg(
							json_build_object(
								'id', cqo.id,
								'answer', cqo.answer,
								'position', cqo.position
							)
							ORDER BY cqo.position, cqo.id
						)
						FROM constrained_questions_options cqo
						WHERE cqo.constrained_question_id = cq.id
					)
				)
				ORDER BY cq.position, cq.id
			)
			FROM constrained_questions cq
			WHERE cq.survey_id = s.id
		),
		'freestyle_questions', (
			SELECT json_agg(
				json_build_object(
					'id', fq.id,
					'question_text', fq.question_text,
					'position', fq.position
				)
				ORDER BY fq.position, fq.id
			)
			FROM freestyle_questions fq
			WHERE fq.survey_id = s.id
		)
	)`

func (s *Store) CreateSurvey(ctx context.Context, q Querier, title, description string, startDate time.Time, endDate *time.Time, secured bool, ownerID string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `
		INSERT INTO surveys (title, description, start_date, end_date, secured, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		title, description, startDate, endDate, secured, uid.Normalize(ownerID),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert survey: %w", err)
	}
	return id, nil
}

// GetAggregate reconstructs the full nested survey structure in one query.
// Missing nested collections come back as empty slices, never nil.
func (s *Store) GetAggregate(ctx context.Context, q Querier, surveyID string) (model.Survey, error) {
	var raw []byte
	err := q.QueryRowContext(ctx,
		`SELECT `+surveyAggregate+` AS result FROM surveys s WHERE s.id = $1`,
		uid.Normalize(surveyID),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Survey{}, ErrNotFound
	}
	if err != nil {
		return model.Survey{}, fmt.Errorf("get survey aggregate: %w", err)
	}

	var survey model.Survey
	if err := json.Unmarshal(raw, &survey); err != nil {
		return model.Survey{}, fmt.Errorf("decode survey aggregate: %w", err)
	}
	fillAggregate(&survey)
	return survey, nil
}

func fillAggregate(survey *model.Survey) {
	if survey.ConstrainedQuestions == nil {
		survey.ConstrainedQuestions = []model.ConstrainedQuestion{}
	}
	for i := range survey.ConstrainedQuestions {
		if survey.ConstrainedQuestions[i].Options == nil {
			survey.ConstrainedQuestions[i].Options = []model.ConstrainedQuestionOption{}
		}
	}
	if survey.FreestyleQuestions == nil {
		survey.FreestyleQuestions = []model.FreestyleQuestion{}
	}
}

// GetSurvey reads the bare survey row, without nested questions.
func (s *Store) GetSurvey(ctx context.Context, q Querier, surveyID string) (model.Survey, error) {
	var survey model.Survey
	err := q.QueryRowContext(ctx, `
		SELECT id, title, description, start_date, end_date, secured, user_id, created
		FROM surveys
		WHERE id = $1`,
		uid.Normalize(surveyID),
	).Scan(
		&survey.ID, &survey.Title, &survey.Description,
		&survey.StartDate, &survey.EndDate, &survey.Secured,
		&survey.UserID, &survey.Created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Survey{}, ErrNotFound
	}
	if err != nil {
		return model.Survey{}, fmt.Errorf("get survey: %w", err)
	}
	return survey, nil
}

// GetSurveyOfOwner reads a survey only when it belongs to ownerID. A survey
// owned by someone else is indistinguishable from a missing one.
func (s *Store) GetSurveyOfOwner(ctx context.Context, q Querier, surveyID, ownerID string) (model.Survey, error) {
	var survey model.Survey
	err := q.QueryRowContext(ctx, `
		SELECT id, title, description, start_date, end_date, secured, user_id, created
		FROM surveys
		WHERE id = $1 AND user_id = $2`,
		uid.Normalize(surveyID), uid.Normalize(ownerID),
	).Scan(
		&survey.ID, &survey.Title, &survey.Description,
		&survey.StartDate, &survey.EndDate, &survey.Secured,
		&survey.UserID, &survey.Created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Survey{}, ErrNotFound
	}
	if err != nil {
		return model.Survey{}, fmt.Errorf("get survey of owner: %w", err)
	}
	return survey, nil
}

// UpdateSurvey replaces all survey fields, restricted to the owner's rows.
// An owner mismatch affects zero rows and reports ErrNotFound.
func (s *Store) UpdateSurvey(ctx context.Context, q Querier, surveyID, ownerID, title, description string, startDate time.Time, endDate *time.Time, secured bool) error {
	res, err := q.ExecContext(ctx, `
		UPDATE surveys
		SET title       = $1,
		    description = $2,
		    start_date  = $3,
		    end_date    = $4,
		    secured     = $5
		WHERE id = $6 AND user_id = $7`,
		title, description, startDate, endDate, secured,
		uid.Normalize(surveyID), uid.Normalize(ownerID),
	)
	if err != nil {
		return fmt.Errorf("update survey: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update survey: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSurvey removes a survey and, through cascading keys, all questions,
// options, tokens and submissions hanging below it.
func (s *Store) DeleteSurvey(ctx context.Context, q Querier, surveyID, ownerID string) error {
	res, err := q.ExecContext(ctx,
		`DELETE FROM surveys WHERE id = $1 AND user_id = $2`,
		uid.Normalize(surveyID), uid.Normalize(ownerID),
	)
	if err != nil {
		return fmt.Errorf("delete survey: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete survey: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
