package routes

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/mbolis/schroedinger/app"
	"github.com/mbolis/schroedinger/httpx"
	"github.com/mbolis/schroedinger/log"
	"github.com/mbolis/schroedinger/model"
	"github.com/mbolis/schroedinger/routes/middlewares"
	"github.com/mbolis/schroedinger/store"
)

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middlewares.CallerFromContext(r.Context())

		payload := model.SurveyPayload{}
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := model.Validate(payload); err != nil {
			httpx.Respond(w, r, "survey.create.validate",
				httpx.Wrap(httpx.ValidationFailed, "invalid survey payload", err))
			return
		}

		startDate := time.Now()
		if payload.StartDate != nil {
			startDate = *payload.StartDate
		}

		var surveyID string
		err := app.Transact(r.Context(), nil, func(tx *sql.Tx) error {
			id, err := app.CreateSurvey(r.Context(), tx,
				payload.Title, payload.Description,
				startDate, payload.EndDate, *payload.Secured,
				caller.User.ID,
			)
			if err != nil {
				return err
			}
			surveyID = id

			for _, fq := range payload.FreestyleQuestions {
				_, err := app.CreateFreestyleQuestion(r.Context(), tx, id, fq.QuestionText, *fq.Position)
				if err != nil {
					return err
				}
			}
			for _, cq := range payload.ConstrainedQuestions {
				questionID, err := app.CreateConstrainedQuestion(r.Context(), tx, id, cq.QuestionText, *cq.Position)
				if err != nil {
					return err
				}
				for _, o := range cq.Options {
					_, err := app.CreateConstrainedQuestionOption(r.Context(), tx, questionID, o.Answer, *o.Position)
					if err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			httpx.Respond(w, r, "db.insert_survey",
				httpx.Wrap(httpx.TransactionFailure, "could not create survey", err))
			return
		}

		survey, err := app.GetAggregate(r.Context(), app.DB(), surveyID)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_survey.read_back", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, survey)
	}
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, ok := surveyIDParam(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		caller := middlewares.CallerFromContext(r.Context())

		payload := model.SurveyPayload{}
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := model.Validate(payload); err != nil {
			httpx.Respond(w, r, "survey.update.validate",
				httpx.Wrap(httpx.ValidationFailed, "invalid survey payload", err))
			return
		}

		startDate := time.Now()
		if payload.StartDate != nil {
			startDate = *payload.StartDate
		}

		err := app.UpdateSurvey(r.Context(), app.DB(), surveyID, caller.User.ID,
			payload.Title, payload.Description, startDate, payload.EndDate, *payload.Secured)
		if err != nil {
			respondOwnershipError(app, w, r, "db.update_survey", surveyID, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, ok := surveyIDParam(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		caller := middlewares.CallerFromContext(r.Context())

		err := app.DeleteSurvey(r.Context(), app.DB(), surveyID, caller.User.ID)
		if err != nil {
			respondOwnershipError(app, w, r, "db.delete_survey", surveyID, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// respondOwnershipError rebuilds the 403-vs-404 distinction the data layer
// collapses: the caller holds an authenticated identity, so an existence
// probe leaks nothing it could not learn anyway.
func respondOwnershipError(app app.App, w http.ResponseWriter, r *http.Request, code, surveyID string, err error) {
	if !errors.Is(err, store.ErrNotFound) {
		httpx.LogInternalError(w, code, err)
		return
	}
	if _, getErr := app.GetSurvey(r.Context(), app.DB(), surveyID); getErr == nil {
		httpx.Respond(w, r, code, httpx.Errorf(httpx.Forbidden, "user is not owner of survey"))
		return
	}
	httpx.LogNotFound(w, code, surveyID)
}

// SearchOwnSurveys is the owner-scoped general search: the owner filter is
// pinned to the caller, secured is free.
func SearchOwnSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middlewares.CallerFromContext(r.Context())

		filter, err := parseSurveyFilter(r)
		if err != nil {
			httpx.Respond(w, r, "survey.search.params",
				httpx.Wrap(httpx.ValidationFailed, "invalid search parameters", err))
			return
		}
		secured, err := parseSecuredParam(r)
		if err != nil {
			httpx.Respond(w, r, "survey.search.params",
				httpx.Wrap(httpx.ValidationFailed, "invalid search parameters", err))
			return
		}

		surveys, err := app.SearchSurveys(r.Context(), app.DB(), filter, &caller.User.ID, secured)
		if err != nil {
			httpx.LogInternalError(w, "db.search_surveys", err)
			return
		}

		render.JSON(w, r, surveys)
	}
}

func CountOwnSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middlewares.CallerFromContext(r.Context())

		filter, err := parseSurveyFilter(r)
		if err != nil {
			httpx.Respond(w, r, "survey.count.params",
				httpx.Wrap(httpx.ValidationFailed, "invalid search parameters", err))
			return
		}
		secured, err := parseSecuredParam(r)
		if err != nil {
			httpx.Respond(w, r, "survey.count.params",
				httpx.Wrap(httpx.ValidationFailed, "invalid search parameters", err))
			return
		}

		count, err := app.CountSurveys(r.Context(), app.DB(), filter, &caller.User.ID, secured)
		if err != nil {
			httpx.LogInternalError(w, "db.count_surveys", err)
			return
		}

		render.JSON(w, r, map[string]any{"count": count})
	}
}

func parseSecuredParam(r *http.Request) (*bool, error) {
	raw := r.URL.Query().Get("secured")
	switch raw {
	case "":
		return nil, nil
	case "true":
		secured := true
		return &secured, nil
	case "false":
		secured := false
		return &secured, nil
	}
	return nil, errors.New("secured: expected true or false")
}
