package domain

import "time"

// OptionLabels are the four answer slots every question carries, in display order.
var OptionLabels = [4]string{"a", "b", "c", "d"}

// Question is a multiple-choice question with exactly one correct option.
// Questions are read-only: they come from the question bank and are never
// mutated during a session.
type Question struct {
	ID            int    `json:"id"`
	Text          string `json:"text"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	CorrectOption string `json:"correctOption"` // one of "a".."d"
	Category      string `json:"category"`
	Difficulty    int    `json:"difficulty"` // 1..5
}

// OptionText returns the text behind an option label.
func (q Question) OptionText(label string) (string, bool) {
	switch label {
	case "a":
		return q.OptionA, true
	case "b":
		return q.OptionB, true
	case "c":
		return q.OptionC, true
	case "d":
		return q.OptionD, true
	}
	return "", false
}

// Valid reports whether the question is well-formed enough to be served.
func (q Question) Valid() bool {
	if q.Text == "" {
		return false
	}
	_, ok := q.OptionText(q.CorrectOption)
	return ok
}

// Answer records one response within a session. Selected is empty for
// questions the user never answered; those are synthesized as incorrect at
// submit time. Answers are immutable once locked.
type Answer struct {
	QuestionID    int    `json:"questionId"`
	Selected      string `json:"selected"`
	Correct       bool   `json:"correct"`
	CorrectOption string `json:"correctOption"`
}

// Attempt is the outcome record of one finished quiz session. It is written
// exactly once and never updated afterwards.
type Attempt struct {
	ID             int       `json:"id"`
	UserID         int       `json:"userId"`
	UserName       string    `json:"userName"`
	Score          int       `json:"score"`
	TimeTaken      int       `json:"timeTaken"` // whole seconds
	SubmittedAt    time.Time `json:"submittedAt"`
	WeekYear       int       `json:"weekYear"`
	WeekNumber     int       `json:"weekNumber"`
	TotalQuestions int       `json:"totalQuestions"`
}

// User is a quiz participant. Mobile is the natural key: registering the
// same mobile again returns the existing identity.
type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	CreatedAt time.Time `json:"createdAt"`
}

// Leaderboard is the derived top-N view for one ISO week. It is recomputed
// on every request, never stored.
type Leaderboard struct {
	WeekYear   int       `json:"weekYear"`
	WeekNumber int       `json:"weekNumber"`
	Entries    []Attempt `json:"entries"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// WeeklyStats aggregates one week's attempts. All fields are zero for an
// empty week.
type WeeklyStats struct {
	TotalAttempts int     `json:"totalAttempts"`
	AverageScore  float64 `json:"averageScore"` // one decimal place
	HighestScore  int     `json:"highestScore"`
	AverageTime   int     `json:"averageTime"` // whole seconds
}
