package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/schroedinger/log"
)

// Kind classifies a failure for HTTP mapping.
type Kind string

const (
	NotFound           Kind = "not_found"
	Forbidden          Kind = "forbidden"
	Conflict           Kind = "conflict"
	ValidationFailed   Kind = "validation_failed"
	TransactionFailure Kind = "transaction_failure"
	Unexpected         Kind = "unexpected"
)

func (k Kind) Status() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	case ValidationFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Respond maps err to an HTTP status and JSON payload. Causes of server-side
// kinds are logged under code and never leave the process.
func Respond(w http.ResponseWriter, r *http.Request, code string, err error) {
	e := &Error{}
	if !errors.As(err, &e) {
		e = Wrap(Unexpected, "An unexpected error happened. Please try again.", err)
	}

	message := e.Message
	switch e.Kind {
	case TransactionFailure, Unexpected:
		log.Errorf("%s: %s", code, e)
		message = "An unexpected error happened. Please try again."
	default:
		log.Debugf("%s: %s", code, e)
	}

	render.Status(r, e.Kind.Status())
	render.JSON(w, r, map[string]any{
		"error":   string(e.Kind),
		"message": message,
	})
}

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	w.WriteHeader(http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}
