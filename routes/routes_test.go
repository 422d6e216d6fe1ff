package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/mbolis/schroedinger/app"
	"github.com/mbolis/schroedinger/config"
	"github.com/mbolis/schroedinger/database"
	"github.com/mbolis/schroedinger/model"
	"github.com/mbolis/schroedinger/store"
)

// Route tests exercise the wired router against a real PostgreSQL instance,
// pointed at by SCHROEDINGER_TEST_DB_URL. Without it they skip.

type testEnv struct {
	t       *testing.T
	handler http.Handler
	mail    *captureSender
}

type capturedMail struct {
	to, subject, body string
}

type captureSender struct {
	mails []capturedMail
}

func (c *captureSender) Send(to, subject, body string) error {
	c.mails = append(c.mails, capturedMail{to, subject, body})
	return nil
}

func testServer(t *testing.T) *testEnv {
	t.Helper()

	url := os.Getenv("SCHROEDINGER_TEST_DB_URL")
	if url == "" {
		t.Skip("SCHROEDINGER_TEST_DB_URL not set")
	}

	cfg := config.Config{
		DBUrl:     url,
		JWTSecret: "test-secret",
		JWTTTL:    time.Hour,
	}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`TRUNCATE users CASCADE`); err != nil {
		t.Fatalf("reset test database: %v", err)
	}

	mail := &captureSender{}
	a := app.App{
		Store:  store.New(db),
		JWT:    jwtauth.New("HS256", []byte(cfg.JWTSecret), nil),
		Mail:   mail,
		Config: cfg,
	}
	return &testEnv{t: t, handler: Wire(a), mail: mail}
}

func (env *testEnv) do(method, path, jwt string, body any) *httptest.ResponseRecorder {
	env.t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			env.t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if jwt != "" {
		req.Header.Set("Authorization", "Bearer "+jwt)
	}

	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	return rr
}

func (env *testEnv) decode(rr *httptest.ResponseRecorder, out any) {
	env.t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		env.t.Fatalf("parse response %s: %v", rr.Body.String(), err)
	}
}

func (env *testEnv) register(username, password string) {
	env.t.Helper()
	rr := env.do("POST", "/user", "", model.RegisterPayload{
		Username: username,
		Password: password,
		Email:    username + "@example.com",
	})
	if rr.Code != http.StatusCreated {
		env.t.Fatalf("register %s: expected 201, got %d body=%s", username, rr.Code, rr.Body.String())
	}
}

func (env *testEnv) login(username, password string) string {
	env.t.Helper()
	rr := env.do("POST", "/user/login", "", model.LoginPayload{
		Username: username,
		Password: password,
	})
	if rr.Code != http.StatusOK {
		env.t.Fatalf("login %s: expected 200, got %d body=%s", username, rr.Code, rr.Body.String())
	}
	var payload map[string]string
	env.decode(rr, &payload)
	if payload["jwt"] == "" {
		env.t.Fatalf("login %s: missing jwt in %s", username, rr.Body.String())
	}
	return payload["jwt"]
}

func (env *testEnv) registerAndLogin(username string) string {
	env.t.Helper()
	env.register(username, "hunter22")
	return env.login(username, "hunter22")
}

func intp(v int) *int { return &v }

func boolp(v bool) *bool { return &v }

func surveyPayload(title string, secured bool) model.SurveyPayload {
	return model.SurveyPayload{
		Title:       title,
		Description: "about " + title,
		Secured:     boolp(secured),
		ConstrainedQuestions: []model.ConstrainedQuestionPayload{{
			QuestionText: "Pizza or pasta?",
			Position:     intp(1),
			Options: []model.OptionPayload{
				{Answer: "pizza", Position: intp(1)},
				{Answer: "pasta", Position: intp(2)},
			},
		}},
		FreestyleQuestions: []model.FreestyleQuestionPayload{{
			QuestionText: "Anything else?",
			Position:     intp(2),
		}},
	}
}

func (env *testEnv) createSurvey(jwt, title string, secured bool) model.Survey {
	env.t.Helper()
	rr := env.do("POST", "/survey", jwt, surveyPayload(title, secured))
	if rr.Code != http.StatusCreated {
		env.t.Fatalf("create survey %s: expected 201, got %d body=%s", title, rr.Code, rr.Body.String())
	}
	var survey model.Survey
	env.decode(rr, &survey)
	return survey
}

// completeSubmission answers every question of a survey built by surveyPayload.
func completeSubmission(survey model.Survey) model.SubmissionPayload {
	payload := model.SubmissionPayload{
		ConstrainedAnswers: []model.ConstrainedAnswerPayload{},
		FreestyleAnswers:   []model.FreestyleAnswerPayload{},
	}
	for _, cq := range survey.ConstrainedQuestions {
		payload.ConstrainedAnswers = append(payload.ConstrainedAnswers, model.ConstrainedAnswerPayload{
			QuestionID: cq.ID,
			OptionID:   cq.Options[0].ID,
		})
	}
	for _, fq := range survey.FreestyleQuestions {
		payload.FreestyleAnswers = append(payload.FreestyleAnswers, model.FreestyleAnswerPayload{
			QuestionID: fq.ID,
			Answer:     "fine",
		})
	}
	return payload
}

func (env *testEnv) mintTokens(jwt, surveyID string, amount int) []model.Token {
	env.t.Helper()
	rr := env.do("POST", "/token", jwt, model.MintTokensPayload{
		SurveyID: surveyID,
		Amount:   amount,
	})
	if rr.Code != http.StatusCreated {
		env.t.Fatalf("mint tokens: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var tokens []model.Token
	env.decode(rr, &tokens)
	return tokens
}
