package routes

import (
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

func PublicGetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, ok := surveyIDParam(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		survey, err := app.GetAggregate(r.Context(), app.DB(), surveyID)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "get_survey", surveyID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey", err)
			return
		}
		if survey.Secured {
			httpx.Respond(w, r, "get_survey.secured",
				httpx.Errorf(httpx.Forbidden, "survey is secured"))
			return
		}

		render.JSON(w, r, survey)
	}
}

// SecuredGetSurveyById serves a survey to its owner or to the bearer of a
// token minted for it. Nobody else learns whether the survey exists.
func SecuredGetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, ok := surveyIDParam(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		caller := middlewares.CallerFromContext(r.Context())

		survey, err := app.GetAggregate(r.Context(), app.DB(), surveyID)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "get_survey", surveyID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey", err)
			return
		}

		switch {
		case caller.Authenticated():
			if uid.Normalize(caller.User.ID) != uid.Normalize(survey.UserID) {
				httpx.Respond(w, r, "get_survey.owner",
					httpx.Errorf(httpx.Forbidden, "user is not owner of survey"))
				return
			}
		case caller.Token != nil:
			if uid.Normalize(caller.Token.SurveyID) != uid.Normalize(survey.ID) {
				httpx.Respond(w, r, "get_survey.token",
					httpx.Errorf(httpx.Forbidden, "token does not belong to survey"))
				return
			}
		}

		render.JSON(w, r, survey)
	}
}

// SearchPublicSurveys fans out one aggregate read per matched id: the id
// search is cheap and the aggregate reads are bounded by the page size.
func SearchPublicSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseSurveyFilter(r)
		if err != nil {
			httpx.Respond(w, r, "survey.search_public.params",
				httpx.Wrap(httpx.ValidationFailed, "invalid search parameters", err))
			return
		}

		ids, err := app.SearchPublicSurveyIDs(r.Context(), app.DB(), filter)
		if err != nil {
			httpx.LogInternalError(w, "db.search_public_surveys", err)
			return
		}

		surveys := []model.Survey{}
		for _, id := range ids {
			survey, err := app.GetAggregate(r.Context(), app.DB(), id)
			if err != nil {
				httpx.LogInternalError(w, "db.search_public_surveys.aggregate", err)
				return
			}
			surveys = append(surveys, survey)
		}

		render.JSON(w, r, surveys)
	}
}

func CountPublicSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseSurveyFilter(r)
		if err != nil {
			httpx.Respond(w, r, "survey.count_public.params",
				httpx.Wrap(httpx.ValidationFailed, "invalid search parameters", err))
			return
		}

		count, err := app.CountPublicSurveys(r.Context(), app.DB(), filter)
		if err != nil {
			httpx.LogInternalError(w, "db.count_public_surveys", err)
			return
		}

		render.JSON(w, r, map[string]any{"count": count})
	}
}

func SearchSecuredSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middlewares.CallerFromContext(r.Context())

		filter, err := parseSurveyFilter(r)
		if err != nil {
			httpx.Respond(w, r, "survey.search_secured.params",
				httpx.Wrap(httpx.ValidationFailed, "invalid search parameters", err))
			return
		}

		ids, err := app.SearchSecuredSurveyIDs(r.Context(), app.DB(), filter, caller.User.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.search_secured_surveys", err)
			return
		}

		surveys := []model.Survey{}
		for _, id := range ids {
			survey, err := app.GetAggregate(r.Context(), app.DB(), id)
			if err != nil {
				httpx.LogInternalError(w, "db.search_secured_surveys.aggregate", err)
				return
			}
			surveys = append(surveys, survey)
		}

		render.JSON(w, r, surveys)
	}
}

func CountSecuredSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middlewares.CallerFromContext(r.Context())

		filter, err := parseSurveyFilter(r)
		if err != nil {
			httpx.Respond(w, r, "survey.count_secured.params",
				httpx.Wrap(httpx.ValidationFailed, "invalid search parameters", err))
			return
		}

		count, err := app.CountSecuredSurveys(r.Context(), app.DB(), filter, caller.User.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.count_secured_surveys", err)
			return
		}

		render.JSON(w, r, map[string]any{"count": count})
	}
}
