// Package middlewares classifies the caller of each request into one of
// three capabilities: authenticated owner, anonymous public reader, or
// bearer of a one-time access token. Handlers read the result from the
// request context and never touch credentials themselves.
package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/mbolis/schroedinger/app"
	"github.com/mbolis/schroedinger/model"
	"github.com/mbolis/schroedinger/uid"
)

type contextKey struct{ name string }

var callerKey = &contextKey{"caller"}

// Caller is the classified identity of a request.
type Caller struct {
	User  *model.User
	Token *model.Token
}

func (c Caller) Authenticated() bool {
	return c.User != nil
}

func CallerFromContext(ctx context.Context) Caller {
	caller, _ := ctx.Value(callerKey).(Caller)
	return caller
}

// Classify resolves the request's JWT and one-time token, when present, into
// a Caller. A JWT minted before the user's last password change is stale and
// does not authenticate. Invalid credentials classify as anonymous here;
// rejecting them is the job of the Require* middlewares and the handlers.
func Classify(app app.App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller := Caller{}

			if token, claims, err := jwtauth.FromContext(ctx); err == nil && token != nil {
				if id, ok := claims["id"].(string); ok && uid.Valid(id) {
					user, err := app.UserByID(ctx, app.DB(), id)
					if err == nil && claimedPasswordCurrent(claims, user) {
						caller.User = &user
					}
				}
			}

			if t := r.URL.Query().Get("token"); t != "" && uid.Valid(t) {
				token, err := app.GetToken(ctx, app.DB(), t)
				if err == nil {
					caller.Token = &token
				}
			}

			ctx = context.WithValue(ctx, callerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func claimedPasswordCurrent(claims map[string]any, user model.User) bool {
	claimed, ok := claims["last_changed_password"].(float64)
	return ok && int64(claimed) == user.LastChangedPassword.Unix()
}

// RequireUser lets only authenticated owners through.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CallerFromContext(r.Context()).Authenticated() {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUserOrToken lets authenticated owners and token bearers through.
func RequireUserOrToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := CallerFromContext(r.Context())
		if !caller.Authenticated() && caller.Token == nil {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
