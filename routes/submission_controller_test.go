package routes

import (
	"net/http"
	"testing"

	"github.com/mbolis/schroedinger/model"
)

func TestSubmitToOpenSurvey(t *testing.T) {
	env := testServer(t)

	jwt := env.registerAndLogin("alice")
	survey := env.createSurvey(jwt, "open poll", false)

	rr := env.do("POST", "/survey/"+survey.ID+"/submission", "", completeSubmission(survey))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var sub model.Submission
	env.decode(rr, &sub)
	if sub.ID == "" || len(sub.ConstrainedAnswers) != 0 {
		t.Fatalf("unexpected submission body: %+v", sub)
	}
}

func TestSubmitRequiresEveryQuestionAnswered(t *testing.T) {
	env := testServer(t)

	jwt := env.registerAndLogin("alice")
	survey := env.createSurvey(jwt, "strict poll", false)

	payload := completeSubmission(survey)
	payload.FreestyleAnswers = nil
	rr := env.do("POST", "/survey/"+survey.ID+"/submission", "", payload)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing answer: expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSubmitRejectsForeignQuestion(t *testing.T) {
	env := testServer(t)

	jwt := env.registerAndLogin("alice")
	survey := env.createSurvey(jwt, "target", false)
	other := env.createSurvey(jwt, "other", false)

	payload := completeSubmission(survey)
	payload.ConstrainedAnswers[0].QuestionID = other.ConstrainedQuestions[0].ID
	rr := env.do("POST", "/survey/"+survey.ID+"/submission", "", payload)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("foreign question: expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSubmitRejectsOptionOfOtherQuestion(t *testing.T) {
	env := testServer(t)

	jwt := env.registerAndLogin("alice")
	survey := env.createSurvey(jwt, "picky", false)
	other := env.createSurvey(jwt, "other", false)

	payload := completeSubmission(survey)
	payload.ConstrainedAnswers[0].OptionID = other.ConstrainedQuestions[0].Options[0].ID
	rr := env.do("POST", "/survey/"+survey.ID+"/submission", "", payload)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("mismatched option: expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSubmitToSecuredSurveyNeedsToken(t *testing.T) {
	env := testServer(t)

	ownerJWT := env.registerAndLogin("alice")
	survey := env.createSurvey(ownerJWT, "gated", true)
	payload := completeSubmission(survey)

	rr := env.do("POST", "/survey/"+survey.ID+"/submission", "", payload)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("anonymous: expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}

	tokens := env.mintTokens(ownerJWT, survey.ID, 1)
	rr = env.do("POST", "/survey/"+survey.ID+"/submission?token="+tokens[0].ID, "", payload)
	if rr.Code != http.StatusCreated {
		t.Fatalf("token bearer: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	// the token is consumed by the submission it funded
	rr = env.do("POST", "/survey/"+survey.ID+"/submission?token="+tokens[0].ID, "", payload)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("spent token: expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestOwnerSubmitsToOwnSecuredSurvey(t *testing.T) {
	env := testServer(t)

	ownerJWT := env.registerAndLogin("alice")
	otherJWT := env.registerAndLogin("bob")
	survey := env.createSurvey(ownerJWT, "gated", true)
	payload := completeSubmission(survey)

	rr := env.do("POST", "/survey/"+survey.ID+"/submission", ownerJWT, payload)
	if rr.Code != http.StatusCreated {
		t.Fatalf("owner: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.do("POST", "/survey/"+survey.ID+"/submission", otherJWT, payload)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("authenticated non-owner without token: expected 403, got %d", rr.Code)
	}
}

func TestSubmissionListingScopedToOwner(t *testing.T) {
	env := testServer(t)

	ownerJWT := env.registerAndLogin("alice")
	otherJWT := env.registerAndLogin("bob")
	survey := env.createSurvey(ownerJWT, "popular", false)
	payload := completeSubmission(survey)

	for i := 0; i < 3; i++ {
		rr := env.do("POST", "/survey/"+survey.ID+"/submission", "", payload)
		if rr.Code != http.StatusCreated {
			t.Fatalf("submission %d: expected 201, got %d", i, rr.Code)
		}
	}

	rr := env.do("GET", "/survey/"+survey.ID+"/submission?page_size=10", ownerJWT, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("owner listing: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var submissions []model.Submission
	env.decode(rr, &submissions)
	if len(submissions) != 3 {
		t.Fatalf("owner expected 3 submissions, got %d", len(submissions))
	}
	for _, sub := range submissions {
		if len(sub.ConstrainedAnswers) != 1 || len(sub.FreestyleAnswers) != 1 {
			t.Fatalf("expected nested answers, got %+v", sub)
		}
	}

	rr = env.do("GET", "/survey/"+survey.ID+"/submission/count", ownerJWT, nil)
	var count map[string]int
	env.decode(rr, &count)
	if count["count"] != 3 {
		t.Fatalf("owner expected count 3, got %d", count["count"])
	}

	// another user reads an empty page, not an error
	rr = env.do("GET", "/survey/"+survey.ID+"/submission", otherJWT, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("non-owner listing: expected 200, got %d", rr.Code)
	}
	env.decode(rr, &submissions)
	if len(submissions) != 0 {
		t.Fatalf("non-owner expected no submissions, got %d", len(submissions))
	}
	rr = env.do("GET", "/survey/"+survey.ID+"/submission/count", otherJWT, nil)
	env.decode(rr, &count)
	if count["count"] != 0 {
		t.Fatalf("non-owner expected count 0, got %d", count["count"])
	}

	rr = env.do("GET", "/survey/"+survey.ID+"/submission", "", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("anonymous listing: expected 403, got %d", rr.Code)
	}
}

func TestSubmitToMissingSurvey(t *testing.T) {
	env := testServer(t)

	rr := env.do("POST", "/survey/00000000-0000-0000-0000-000000000000/submission", "", model.SubmissionPayload{})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}
