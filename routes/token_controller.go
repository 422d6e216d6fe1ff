package routes

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/schroedinger/app"
	"github.com/mbolis/schroedinger/httpx"
	"github.com/mbolis/schroedinger/log"
	"github.com/mbolis/schroedinger/model"
	"github.com/mbolis/schroedinger/routes/middlewares"
	"github.com/mbolis/schroedinger/store"
)

// MintTokens creates a batch of one-time access tokens for a secured survey.
// The ownership check and the inserts share one transaction so tokens are
// never minted against a survey the caller lost in the meantime.
func MintTokens(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middlewares.CallerFromContext(r.Context())

		payload := model.MintTokensPayload{}
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := model.Validate(payload); err != nil {
			httpx.Respond(w, r, "token.mint.validate",
				httpx.Wrap(httpx.ValidationFailed, "invalid token payload", err))
			return
		}

		tokens := []model.Token{}
		err := app.Transact(r.Context(), nil, func(tx *sql.Tx) error {
			_, err := app.GetSurveyOfOwner(r.Context(), tx, payload.SurveyID, caller.User.ID)
			if err != nil {
				return err
			}
			for i := 0; i < payload.Amount; i++ {
				token, err := app.CreateToken(r.Context(), tx, payload.SurveyID)
				if err != nil {
					return err
				}
				tokens = append(tokens, token)
			}
			return nil
		})
		if errors.Is(err, store.ErrNotFound) {
			httpx.Respond(w, r, "token.mint.owner",
				httpx.Errorf(httpx.Forbidden, "no survey found for this user id and survey id"))
			return
		}
		if err != nil {
			httpx.Respond(w, r, "db.insert_tokens",
				httpx.Wrap(httpx.TransactionFailure, "could not create tokens", err))
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, tokens)
	}
}
