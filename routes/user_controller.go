package routes

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/schroedinger/app"
	"github.com/mbolis/schroedinger/httpx"
	"github.com/mbolis/schroedinger/log"
	"github.com/mbolis/schroedinger/model"
	"github.com/mbolis/schroedinger/routes/middlewares"
	"github.com/mbolis/schroedinger/store"
	"golang.org/x/crypto/bcrypt"
)

func RegisterUser(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := model.RegisterPayload{}
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := model.Validate(payload); err != nil {
			httpx.Respond(w, r, "user.register.validate",
				httpx.Wrap(httpx.ValidationFailed, "invalid registration payload", err))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
		if err != nil {
			httpx.LogInternalError(w, "user.register.hash", err)
			return
		}

		// repeatable read keeps two concurrent registrations from both
		// observing the name as available
		opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
		err = app.Transact(r.Context(), opts, func(tx *sql.Tx) error {
			if _, err := app.UserByUsername(r.Context(), tx, payload.Username); err == nil {
				return httpx.Errorf(httpx.Conflict, "user name already taken")
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if _, err := app.UserByEmail(r.Context(), tx, payload.Email); err == nil {
				return httpx.Errorf(httpx.Conflict, "email already taken")
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}

			_, err := app.CreateUser(r.Context(), tx, payload.Username, payload.Email, string(hash))
			if errors.Is(err, store.ErrConflict) {
				return httpx.Errorf(httpx.Conflict, "user name or email already taken")
			}
			return err
		})
		if err != nil {
			respondUserError(w, r, "db.register_user", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

func LoginUser(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := model.LoginPayload{}
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := model.Validate(payload); err != nil {
			httpx.Respond(w, r, "user.login.validate",
				httpx.Wrap(httpx.ValidationFailed, "invalid login payload", err))
			return
		}

		user, err := app.UserByUsername(r.Context(), app.DB(), payload.Username)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "user.login", payload.Username)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_user", err)
			return
		}

		err = bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(payload.Password))
		if err != nil {
			httpx.Respond(w, r, "user.login.password",
				httpx.Errorf(httpx.Forbidden, "authentication failed"))
			return
		}

		token, err := issueJWT(app, user)
		if err != nil {
			httpx.LogInternalError(w, "user.login.jwt", err)
			return
		}
		render.JSON(w, r, map[string]any{"jwt": token})
	}
}

// issueJWT signs the claims the Classify middleware later checks. The
// last_changed_password claim pins the token to the current password: a
// password change invalidates every JWT issued before it.
func issueJWT(app app.App, user model.User) (string, error) {
	claims := map[string]any{
		"id":                    user.ID,
		"username":              user.Username,
		"last_changed_password": user.LastChangedPassword.Unix(),
		"user_created_at":       user.Created.Unix(),
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, app.JWTTTL)

	_, token, err := app.JWT.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("encode jwt: %w", err)
	}
	return token, nil
}

func UserInfo(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middlewares.CallerFromContext(r.Context())
		render.JSON(w, r, caller.User)
	}
}

func ChangeUser(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middlewares.CallerFromContext(r.Context())

		payload := model.ChangeUserPayload{}
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := model.Validate(payload); err != nil {
			httpx.Respond(w, r, "user.change.validate",
				httpx.Wrap(httpx.ValidationFailed, "invalid change payload", err))
			return
		}

		opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
		err := app.Transact(r.Context(), opts, func(tx *sql.Tx) error {
			if payload.Username != "" {
				if _, err := app.UserByUsername(r.Context(), tx, payload.Username); err == nil {
					return httpx.Errorf(httpx.Conflict, "the username is taken")
				} else if !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}
			if payload.Email != "" {
				if _, err := app.UserByEmail(r.Context(), tx, payload.Email); err == nil {
					return httpx.Errorf(httpx.Conflict, "the email is taken")
				} else if !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}

			user, err := app.UserByID(r.Context(), tx, caller.User.ID)
			if err != nil {
				return err
			}
			if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(payload.OldPassword)) != nil {
				return httpx.Errorf(httpx.Forbidden, "the old password is not correct and therefore can not be verified")
			}

			var username, email, hash *string
			if payload.Username != "" {
				username = &payload.Username
			}
			if payload.Email != "" {
				email = &payload.Email
			}
			if payload.NewPassword != "" {
				hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
				if err != nil {
					return err
				}
				hashedStr := string(hashed)
				hash = &hashedStr
			}

			err = app.UpdateUser(r.Context(), tx, caller.User.ID, username, email, hash)
			if errors.Is(err, store.ErrConflict) {
				return httpx.Errorf(httpx.Conflict, "the username or email is taken")
			}
			return err
		})
		if err != nil {
			respondUserError(w, r, "db.change_user", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteUser(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := middlewares.CallerFromContext(r.Context())
		log.Warnf("user %s wants to delete account", caller.User.ID)

		payload := model.DeleteUserPayload{}
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := model.Validate(payload); err != nil {
			httpx.Respond(w, r, "user.delete.validate",
				httpx.Wrap(httpx.ValidationFailed, "invalid payload", err))
			return
		}

		err := app.Transact(r.Context(), nil, func(tx *sql.Tx) error {
			user, err := app.UserByID(r.Context(), tx, caller.User.ID)
			if err != nil {
				return err
			}
			if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(payload.Password)) != nil {
				return httpx.Errorf(httpx.Forbidden, "the old password is not correct and therefore can not be verified")
			}
			return app.DeleteUser(r.Context(), tx, caller.User.ID)
		})
		if err != nil {
			respondUserError(w, r, "db.delete_user", err)
			return
		}

		log.Warnf("user %s deleted account", caller.User.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func SendResetMail(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := model.SendResetPayload{}
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := model.Validate(payload); err != nil {
			httpx.Respond(w, r, "user.reset.validate",
				httpx.Wrap(httpx.ValidationFailed, "username or email is expected to reset password", err))
			return
		}

		var user model.User
		var resetToken string
		err := app.Transact(r.Context(), nil, func(tx *sql.Tx) (err error) {
			if payload.Email != "" {
				user, err = app.UserByEmail(r.Context(), tx, payload.Email)
			} else {
				user, err = app.UserByUsername(r.Context(), tx, payload.Username)
			}
			if err != nil {
				return err
			}
			resetToken, err = app.CreateResetPasswordToken(r.Context(), tx, user.ID)
			return err
		})
		if err != nil {
			respondUserError(w, r, "db.reset_password_token", err)
			return
		}

		// the mail leaves the process only after the token is committed
		body := fmt.Sprintf("Hello %s,\n\nuse the following token to reset your password: %s\n", user.Username, resetToken)
		if err := app.Mail.Send(user.Email, "Reset your password", body); err != nil {
			httpx.LogInternalError(w, "mail.send_reset", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"message": fmt.Sprintf("A reset email was sent to the address of %s", user.Username),
		})
	}
}

func ResetForgottenPassword(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := model.ResetPasswordPayload{}
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := model.Validate(payload); err != nil {
			httpx.Respond(w, r, "user.reset.validate",
				httpx.Wrap(httpx.ValidationFailed, "invalid reset payload", err))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			httpx.LogInternalError(w, "user.reset.hash", err)
			return
		}

		err = app.Transact(r.Context(), nil, func(tx *sql.Tx) error {
			return app.RedeemResetPasswordToken(r.Context(), tx, payload.ResetPasswordToken, string(hash))
		})
		if err != nil {
			respondUserError(w, r, "db.reset_password", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func respondUserError(w http.ResponseWriter, r *http.Request, code string, err error) {
	e := &httpx.Error{}
	switch {
	case errors.As(err, &e):
		httpx.Respond(w, r, code, err)
	case errors.Is(err, store.ErrNotFound):
		httpx.LogNotFound(w, code, nil)
	default:
		httpx.Respond(w, r, code,
			httpx.Wrap(httpx.TransactionFailure, "an unexpected error happened, please try again", err))
	}
}
