package model

import "time"

type Survey struct {
	ID                   string                `json:"id"`
	Title                string                `json:"title"`
	Description          string                `json:"description"`
	StartDate            time.Time             `json:"start_date"`
	EndDate              *time.Time            `json:"end_date"`
	Secured              bool                  `json:"secured"`
	UserID               string                `json:"user_id"`
	Created              time.Time             `json:"created"`
	ConstrainedQuestions []ConstrainedQuestion `json:"constrained_questions"`
	FreestyleQuestions   []FreestyleQuestion   `json:"freestyle_questions"`
}

type ConstrainedQuestion struct {
	ID           string                      `json:"id"`
	QuestionText string                      `json:"question_text"`
	Position     int                         `json:"position"`
	Options      []ConstrainedQuestionOption `json:"options"`
}

type ConstrainedQuestionOption struct {
	ID       string `json:"id"`
	Answer   string `json:"answer"`
	Position int    `json:"position"`
}

type FreestyleQuestion struct {
	ID           string `json:"id"`
	QuestionText string `json:"question_text"`
	Position     int    `json:"position"`
}

type Token struct {
	ID       string `json:"id"`
	SurveyID string `json:"survey_id"`
	Used     bool   `json:"used"`
}

type User struct {
	ID                  string    `json:"id"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	HashedPassword      string    `json:"-"`
	LastChangedPassword time.Time `json:"last_changed_password"`
	Created             time.Time `json:"created"`
}

type Submission struct {
	ID                 string              `json:"id"`
	SurveyID           string              `json:"survey_id"`
	Created            time.Time           `json:"created"`
	ConstrainedAnswers []ConstrainedAnswer `json:"constrained_answers"`
	FreestyleAnswers   []FreestyleAnswer   `json:"freestyle_answers"`
}

type ConstrainedAnswer struct {
	QuestionID string `json:"constrained_question_id"`
	OptionID   string `json:"constrained_questions_option_id"`
}

type FreestyleAnswer struct {
	QuestionID string `json:"freestyle_question_id"`
	Answer     string `json:"answer"`
}
