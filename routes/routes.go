package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/mbolis/schroedinger/app"
	"github.com/mbolis/schroedinger/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.Logger, middleware.Recoverer)
	root.Use(jwtauth.Verifier(app.JWT))
	root.Use(middlewares.Classify(app))

	root.Route("/user", func(r chi.Router) {
		r.Post("/", RegisterUser(app))
		r.Post("/login", LoginUser(app))
		r.Post("/password/reset", SendResetMail(app))
		r.Put("/password/reset", ResetForgottenPassword(app))

		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequireUser)
			r.Get("/info", UserInfo(app))
			r.Put("/", ChangeUser(app))
			r.Delete("/", DeleteUser(app))
		})
	})

	root.Route("/survey", func(r chi.Router) {
		// public visibility regime
		r.Get("/public", SearchPublicSurveys(app))
		r.Get("/public/count", CountPublicSurveys(app))
		r.Get("/public/{id}", PublicGetSurveyById(app))

		// secured visibility regime
		r.With(middlewares.RequireUser).Get("/secured", SearchSecuredSurveys(app))
		r.With(middlewares.RequireUser).Get("/secured/count", CountSecuredSurveys(app))
		r.With(middlewares.RequireUserOrToken).Get("/secured/{id}", SecuredGetSurveyById(app))

		// owner operations
		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequireUser)
			r.Post("/", CreateSurvey(app))
			r.Get("/", SearchOwnSurveys(app))
			r.Get("/count", CountOwnSurveys(app))
			r.Put("/{id}", UpdateSurvey(app))
			r.Delete("/{id}", DeleteSurvey(app))
			r.Get("/{id}/submission", GetSurveySubmissions(app))
			r.Get("/{id}/submission/count", CountSurveySubmissions(app))
		})

		// submission accepts all three caller capabilities
		r.Post("/{id}/submission", SubmitSurvey(app))
	})

	root.With(middlewares.RequireUser).Post("/token", MintTokens(app))

	return root
}
