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
	"github.com/mbolis/schroedinger/uid"
)

// SubmitSurvey accepts an anonymous submission. Who may submit depends on
// the survey: anyone for an unsecured one; for a secured survey, either its
// owner or the bearer of an unspent token minted for it. Token consumption
// and the submission insert share one transaction, so of N concurrent
// redemptions of the same token exactly one commits.
func SubmitSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, ok := surveyIDParam(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		caller := middlewares.CallerFromContext(r.Context())

		payload := model.SubmissionPayload{}
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := model.Validate(payload); err != nil {
			httpx.Respond(w, r, "submission.validate",
				httpx.Wrap(httpx.ValidationFailed, "invalid submission payload", err))
			return
		}

		var submission model.Submission
		err := app.Transact(r.Context(), nil, func(tx *sql.Tx) error {
			survey, err := app.GetSurvey(r.Context(), tx, surveyID)
			if err != nil {
				return err
			}

			switch {
			case !survey.Secured:
				// open to anyone
			case caller.Authenticated() && uid.Normalize(caller.User.ID) == uid.Normalize(survey.UserID):
				// the owner may exercise their own secured survey without a token
			case caller.Token != nil && uid.Normalize(caller.Token.SurveyID) == uid.Normalize(survey.ID):
				if err := app.ConsumeToken(r.Context(), tx, caller.Token.ID); err != nil {
					return err
				}
			default:
				return httpx.Errorf(httpx.Forbidden, "submission to secured survey requires a token")
			}

			if err := checkAnswersComplete(app, r, tx, surveyID, payload); err != nil {
				return err
			}

			submission, err = app.CreateSubmission(r.Context(), tx, surveyID)
			if err != nil {
				return err
			}
			for _, a := range payload.ConstrainedAnswers {
				err := app.CreateConstrainedAnswer(r.Context(), tx, submission.ID, a.QuestionID, a.OptionID)
				if errors.Is(err, store.ErrNotFound) {
					return httpx.Errorf(httpx.ValidationFailed, "option does not belong to question %s", a.QuestionID)
				}
				if err != nil {
					return err
				}
			}
			for _, a := range payload.FreestyleAnswers {
				if err := app.CreateFreestyleAnswer(r.Context(), tx, submission.ID, a.QuestionID, a.Answer); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			respondSubmissionError(w, r, surveyID, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, submission)
	}
}

// checkAnswersComplete requires exactly one answer per question of the
// survey, constrained and freestyle alike.
func checkAnswersComplete(app app.App, r *http.Request, tx *sql.Tx, surveyID string, payload model.SubmissionPayload) error {
	constrained, err := app.ConstrainedQuestionsOfSurvey(r.Context(), tx, surveyID)
	if err != nil {
		return err
	}
	freestyle, err := app.FreestyleQuestionsOfSurvey(r.Context(), tx, surveyID)
	if err != nil {
		return err
	}

	if len(payload.ConstrainedAnswers) != len(constrained) || len(payload.FreestyleAnswers) != len(freestyle) {
		return httpx.Errorf(httpx.ValidationFailed, "submission must answer every question of the survey")
	}

	constrainedIDs := make(map[string]bool, len(constrained))
	for _, q := range constrained {
		constrainedIDs[uid.Normalize(q.ID)] = true
	}
	for _, a := range payload.ConstrainedAnswers {
		if !constrainedIDs[uid.Normalize(a.QuestionID)] {
			return httpx.Errorf(httpx.ValidationFailed, "question %s does not belong to survey", a.QuestionID)
		}
		delete(constrainedIDs, uid.Normalize(a.QuestionID))
	}

	freestyleIDs := make(map[string]bool, len(freestyle))
	for _, q := range freestyle {
		freestyleIDs[uid.Normalize(q.ID)] = true
	}
	for _, a := range payload.FreestyleAnswers {
		if !freestyleIDs[uid.Normalize(a.QuestionID)] {
			return httpx.Errorf(httpx.ValidationFailed, "question %s does not belong to survey", a.QuestionID)
		}
		delete(freestyleIDs, uid.Normalize(a.QuestionID))
	}

	return nil
}

func respondSubmissionError(w http.ResponseWriter, r *http.Request, surveyID string, err error) {
	e := &httpx.Error{}
	switch {
	case errors.As(err, &e):
		httpx.Respond(w, r, "submission", err)
	case errors.Is(err, store.ErrNotFound):
		httpx.LogNotFound(w, "submission.get_survey", surveyID)
	case errors.Is(err, store.ErrTokenSpent):
		httpx.Respond(w, r, "submission.token",
			httpx.Wrap(httpx.Forbidden, "token was already used", err))
	default:
		httpx.Respond(w, r, "db.insert_submission",
			httpx.Wrap(httpx.TransactionFailure, "could not accept submission", err))
	}
}

func GetSurveySubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, ok := surveyIDParam(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		caller := middlewares.CallerFromContext(r.Context())

		filter, err := parseSurveyFilter(r)
		if err != nil {
			httpx.Respond(w, r, "submission.list.params",
				httpx.Wrap(httpx.ValidationFailed, "invalid parameters", err))
			return
		}

		submissions, err := app.SubmissionsOfSurvey(r.Context(), app.DB(),
			surveyID, caller.User.ID, filter.PageNumber, filter.PageSize)
		if err != nil {
			httpx.LogInternalError(w, "db.get_submissions", err)
			return
		}

		render.JSON(w, r, submissions)
	}
}

func CountSurveySubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, ok := surveyIDParam(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		caller := middlewares.CallerFromContext(r.Context())

		count, err := app.CountSubmissions(r.Context(), app.DB(), surveyID, caller.User.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.count_submissions", err)
			return
		}

		render.JSON(w, r, map[string]any{"count": count})
	}
}
