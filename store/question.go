package store

import (
	"context"
	"fmt"

	"github.com/mbolis/schroedinger/model"
	"github.com/mbolis/schroedinger/uid"
)

// Question and option rows have no lifecycle of their own: they are only
// written inside the create-survey transaction and only read as part of an
// aggregate operation. Authorization happens at the survey level, never here.

func (s *Store) CreateConstrainedQuestion(ctx context.Context, q Querier, surveyID, questionText string, position int) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `
		INSERT INTO constrained_questions (survey_id, question_text, position)
		VALUES ($1, $2, $3)
		RETURNING id`,
		uid.Normalize(surveyID), questionText, position,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert constrained question: %w", err)
	}
	return id, nil
}

func (s *Store) CreateConstrainedQuestionOption(ctx context.Context, q Querier, questionID, answer string, position int) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `
		INSERT INTO constrained_questions_options (constrained_question_id, answer, position)
		VALUES ($1, $2, $3)
		RETURNING id`,
		uid.Normalize(questionID), answer, position,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert constrained question option: %w", err)
	}
	return id, nil
}

func (s *Store) CreateFreestyleQuestion(ctx context.Context, q Querier, surveyID, questionText string, position int) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `
		INSERT INTO freestyle_questions (survey_id, question_text, position)
		VALUES ($1, $2, $3)
		RETURNING id`,
		uid.Normalize(surveyID), questionText, position,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert freestyle question: %w", err)
	}
	return id, nil
}

func (s *Store) ConstrainedQuestionsOfSurvey(ctx context.Context, q Querier, surveyID string) ([]model.ConstrainedQuestion, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, question_text, position
		FROM constrained_questions
		WHERE survey_id = $1
		ORDER BY position, id`,
		uid.Normalize(surveyID),
	)
	if err != nil {
		return nil, fmt.Errorf("get constrained questions: %w", err)
	}
	defer rows.Close()

	questions := []model.ConstrainedQuestion{}
	for rows.Next() {
		cq := model.ConstrainedQuestion{Options: []model.ConstrainedQuestionOption{}}
		if err := rows.Scan(&cq.ID, &cq.QuestionText, &cq.Position); err != nil {
			return nil, fmt.Errorf("scan constrained question: %w", err)
		}
		questions = append(questions, cq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate constrained questions: %w", err)
	}
	return questions, nil
}

func (s *Store) OptionsOfQuestion(ctx context.Context, q Querier, questionID string) ([]model.ConstrainedQuestionOption, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, answer, position
		FROM constrained_questions_options
		WHERE constrained_question_id = $1
		ORDER BY position, id`,
		uid.Normalize(questionID),
	)
	if err != nil {
		return nil, fmt.Errorf("get question options: %w", err)
	}
	defer rows.Close()

	options := []model.ConstrainedQuestionOption{}
	for rows.Next() {
		var o model.ConstrainedQuestionOption
		if err := rows.Scan(&o.ID, &o.Answer, &o.Position); err != nil {
			return nil, fmt.Errorf("scan question option: %w", err)
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question options: %w", err)
	}
	return options, nil
}

func (s *Store) FreestyleQuestionsOfSurvey(ctx context.Context, q Querier, surveyID string) ([]model.FreestyleQuestion, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, question_text, position
		FROM freestyle_questions
		WHERE survey_id = $1
		ORDER BY position, id`,
		uid.Normalize(surveyID),
	)
	if err != nil {
		return nil, fmt.Errorf("get freestyle questions: %w", err)
	}
	defer rows.Close()

	questions := []model.FreestyleQuestion{}
	for rows.Next() {
		var fq model.FreestyleQuestion
		if err := rows.Scan(&fq.ID, &fq.QuestionText, &fq.Position); err != nil {
			return nil, fmt.Errorf("scan freestyle question: %w", err)
		}
		questions = append(questions, fq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate freestyle questions: %w", err)
	}
	return questions, nil
}
