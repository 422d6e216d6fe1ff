package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mbolis/schroedinger/model"
	"github.com/mbolis/schroedinger/uid"
)

// Submissions are anonymous: rows reference the survey and its questions,
// never the caller.

func (s *Store) CreateSubmission(ctx context.Context, q Querier, surveyID string) (model.Submission, error) {
	var sub model.Submission
	err := q.QueryRowContext(ctx, `
		INSERT INTO submissions (survey_id)
		VALUES ($1)
		RETURNING id, survey_id, created`,
		uid.Normalize(surveyID),
	).Scan(&sub.ID, &sub.SurveyID, &sub.Created)
	if err != nil {
		return model.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	sub.ConstrainedAnswers = []model.ConstrainedAnswer{}
	sub.FreestyleAnswers = []model.FreestyleAnswer{}
	return sub, nil
}

// CreateConstrainedAnswer records a choice. The insert is guarded so the
// chosen option must actually belong to the answered question; a mismatch
// affects zero rows.
func (s *Store) CreateConstrainedAnswer(ctx context.Context, q Querier, submissionID, questionID, optionID string) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO constrained_answers (submission_id, constrained_question_id, constrained_questions_option_id)
		SELECT $1, $2, $3
		WHERE EXISTS (
			SELECT 1 FROM constrained_questions_options o
			WHERE o.id = $3 AND o.constrained_question_id = $2
		)`,
		uid.Normalize(submissionID), uid.Normalize(questionID), uid.Normalize(optionID),
	)
	if err != nil {
		return fmt.Errorf("insert constrained answer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert constrained answer: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateFreestyleAnswer(ctx context.Context, q Querier, submissionID, questionID, answer string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO freestyle_answers (submission_id, freestyle_question_id, answer)
		VALUES ($1, $2, $3)`,
		uid.Normalize(submissionID), uid.Normalize(questionID), answer,
	)
	if err != nil {
		return fmt.Errorf("insert freestyle answer: %w", err)
	}
	return nil
}

// SubmissionsOfSurvey reads a page of submissions with their nested answers
// as one JSON-aggregated query, newest first. The query joins on the owning
// survey, so a caller who does not own the survey reads an empty page rather
// than learning it exists.
func (s *Store) SubmissionsOfSurvey(ctx context.Context, q Querier, surveyID, ownerID string, pageNumber, pageSize int) ([]model.Submission, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT json_build_object(
			'id', sub.id,
			'survey_id', sub.survey_id,
			'created', sub.created,
			'constrained_answers', (
				SELECT json_agg(
					json_build_object(
						'constrained_question_id', ca.constrained_question_id,
						'constrained_questions_option_id', ca.constrained_questions_option_id
					)
					ORDER BY ca.id
				)
				FROM constrained_answers ca
				WHERE ca.submission_id = sub.id
			),
			'freestyle_answers', (
				SELECT json_agg(
					json_build_object(
						'freestyle_question_id', fa.freestyle_question_id,
						'answer', fa.answer
					)
					ORDER BY fa.id
				)
				FROM freestyle_answers fa
				WHERE fa.submission_id = sub.id
			)
		) AS result
		FROM submissions sub
		JOIN surveys s ON s.id = sub.survey_id
		WHERE sub.survey_id = $1 AND s.user_id = $2
		ORDER BY sub.created DESC, sub.id DESC
		OFFSET $3 LIMIT $4`,
		uid.Normalize(surveyID), uid.Normalize(ownerID), pageNumber*pageSize, pageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("get submissions: %w", err)
	}
	defer rows.Close()

	submissions := []model.Submission{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		var sub model.Submission
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		if sub.ConstrainedAnswers == nil {
			sub.ConstrainedAnswers = []model.ConstrainedAnswer{}
		}
		if sub.FreestyleAnswers == nil {
			sub.FreestyleAnswers = []model.FreestyleAnswer{}
		}
		submissions = append(submissions, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return submissions, nil
}

// CountSubmissions mirrors SubmissionsOfSurvey: a non-owner counts zero.
func (s *Store) CountSubmissions(ctx context.Context, q Querier, surveyID, ownerID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT count(sub.id)::integer
		FROM submissions sub
		JOIN surveys s ON s.id = sub.survey_id
		WHERE sub.survey_id = $1 AND s.user_id = $2`,
		uid.Normalize(surveyID), uid.Normalize(ownerID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}
