package domain

import "errors"

var (
	// ErrQuestionFetch indicates the question bank could not be loaded.
	// Fatal to the session; the user has to restart from entry.
	ErrQuestionFetch = errors.New("failed to fetch questions")
	// ErrAttemptWrite indicates saving an attempt failed. Recoverable: the
	// session keeps its answers and submit may be retried.
	ErrAttemptWrite = errors.New("failed to save quiz attempt")
	// ErrAttemptRead indicates a leaderboard/stats query failed. Callers
	// degrade to an empty result instead of blocking the page.
	ErrAttemptRead = errors.New("failed to load quiz attempts")
	// ErrValidation indicates a malformed name or mobile number at entry.
	ErrValidation = errors.New("invalid user details")

	// ErrAnswerLocked is returned when a second option is selected for a
	// question that already has a locked answer.
	ErrAnswerLocked = errors.New("answer already locked")
	// ErrUnknownOption is returned when a selected label is not one of a-d.
	ErrUnknownOption = errors.New("unknown option")
	// ErrSessionFinished is returned for actions on a session that already
	// reached a terminal state.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrNoQuestions indicates the question bank is empty.
	ErrNoQuestions = errors.New("no questions available")
	// ErrUserNotFound indicates a lookup for an unknown user identity.
	ErrUserNotFound = errors.New("user not found")
)
