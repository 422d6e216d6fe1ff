package app

import (
	"github.com/go-chi/jwtauth/v5"
	"github.com/mbolis/schroedinger/config"
	"github.com/mbolis/schroedinger/mail"
	"github.com/mbolis/schroedinger/store"
)

type App struct {
	*store.Store
	JWT  *jwtauth.JWTAuth
	Mail mail.Sender
	config.Config
}
