package model

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Request payloads. Validation happens here, before anything reaches a store.

var validate = validator.New()

func Validate(payload any) error {
	return validate.Struct(payload)
}

type SurveyPayload struct {
	Title                string                       `json:"title" validate:"required"`
	Description          string                       `json:"description" validate:"required"`
	StartDate            *time.Time                   `json:"start_date"`
	EndDate              *time.Time                   `json:"end_date"`
	Secured              *bool                        `json:"secured" validate:"required"`
	ConstrainedQuestions []ConstrainedQuestionPayload `json:"constrained_questions" validate:"dive"`
	FreestyleQuestions   []FreestyleQuestionPayload   `json:"freestyle_questions" validate:"dive"`
}

type ConstrainedQuestionPayload struct {
	QuestionText string          `json:"question_text" validate:"required"`
	Position     *int            `json:"position" validate:"required"`
	Options      []OptionPayload `json:"options" validate:"required,min=2,dive"`
}

type OptionPayload struct {
	Answer   string `json:"answer" validate:"required"`
	Position *int   `json:"position" validate:"required"`
}

type FreestyleQuestionPayload struct {
	QuestionText string `json:"question_text" validate:"required"`
	Position     *int   `json:"position" validate:"required"`
}

type RegisterPayload struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"required,email"`
}

type LoginPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangeUserPayload struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"omitempty,min=6"`
	Username    string `json:"username" validate:"omitempty,min=3,max=64"`
	Email       string `json:"email" validate:"omitempty,email"`
}

type DeleteUserPayload struct {
	Password string `json:"password" validate:"required"`
}

type SendResetPayload struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type ResetPasswordPayload struct {
	ResetPasswordToken string `json:"reset_password_token" validate:"required,uuid"`
	NewPassword        string `json:"new_password" validate:"required,min=6"`
}

type MintTokensPayload struct {
	SurveyID string `json:"survey_id" validate:"required,uuid"`
	Amount   int    `json:"amount" validate:"required,min=1,max=500"`
}

type SubmissionPayload struct {
	ConstrainedAnswers []ConstrainedAnswerPayload `json:"constrained_answers" validate:"dive"`
	FreestyleAnswers   []FreestyleAnswerPayload   `json:"freestyle_answers" validate:"dive"`
}

type ConstrainedAnswerPayload struct {
	QuestionID string `json:"constrained_question_id" validate:"required,uuid"`
	OptionID   string `json:"constrained_questions_option_id" validate:"required,uuid"`
}

type FreestyleAnswerPayload struct {
	QuestionID string `json:"freestyle_question_id" validate:"required,uuid"`
	Answer     string `json:"answer" validate:"required"`
}
