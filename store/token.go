package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mbolis/schroedinger/model"
	"github.com/mbolis/schroedinger/uid"
)

func (s *Store) CreateToken(ctx context.Context, q Querier, surveyID string) (model.Token, error) {
	var token model.Token
	err := q.QueryRowContext(ctx, `
		INSERT INTO tokens (survey_id)
		VALUES ($1)
		RETURNING id, survey_id, used`,
		uid.Normalize(surveyID),
	).Scan(&token.ID, &token.SurveyID, &token.Used)
	if err != nil {
		return model.Token{}, fmt.Errorf("insert token: %w", err)
	}
	return token, nil
}

func (s *Store) GetToken(ctx context.Context, q Querier, tokenID string) (model.Token, error) {
	var token model.Token
	err := q.QueryRowContext(ctx,
		`SELECT id, survey_id, used FROM tokens WHERE id = $1`,
		uid.Normalize(tokenID),
	).Scan(&token.ID, &token.SurveyID, &token.Used)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Token{}, ErrNotFound
	}
	if err != nil {
		return model.Token{}, fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

// ConsumeToken marks a token as used, but only when it is still unused: the
// conditional update plus affected-row check is what keeps two concurrent
// redemptions of the same token from both winning. Must run in the same
// transaction as the submission insert it funds.
func (s *Store) ConsumeToken(ctx context.Context, q Querier, tokenID string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE tokens SET used = true WHERE id = $1 AND used IS false`,
		uid.Normalize(tokenID),
	)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if n == 0 {
		return ErrTokenSpent
	}
	return nil
}

// TokensOfSurvey lists the survey's tokens, unspent first.
func (s *Store) TokensOfSurvey(ctx context.Context, q Querier, surveyID string) ([]model.Token, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, survey_id, used
		FROM tokens
		WHERE survey_id = $1
		ORDER BY used, id`,
		uid.Normalize(surveyID),
	)
	if err != nil {
		return nil, fmt.Errorf("get tokens: %w", err)
	}
	defer rows.Close()

	tokens := []model.Token{}
	for rows.Next() {
		var t model.Token
		if err := rows.Scan(&t.ID, &t.SurveyID, &t.Used); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return tokens, nil
}
