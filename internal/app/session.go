package app

import (
	"sync"
	"time"

	"sanskriti-quiz-service/internal/domain"
)

// State is the session lifecycle position. Loading is represented by
// StartQuiz itself: a session only exists once its questions are fetched.
type State int

const (
	StatePresenting State = iota
	StateAnswerLocked
	StateSubmitting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePresenting:
		return "presenting"
	case StateAnswerLocked:
		return "answerLocked"
	case StateSubmitting:
		return "submitting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Session is one user's in-flight quiz attempt. The timer tick and user
// actions are the only triggers into it; both are funneled through mu so a
// race between "time's up" and "user clicked submit" cannot produce two
// attempt writes or a corrupted score.
type Session struct {
	mu        sync.Mutex
	user      domain.User
	questions []domain.Question
	answers   []*domain.Answer // indexed by question position, nil until locked
	current   int
	state     State
	sealed    bool // answers finalized and attempt built; survives a failed write
	attempt   domain.Attempt
	final     []domain.Answer
	startedAt time.Time
	deadline  time.Time
	now       func() time.Time
}

func newSession(user domain.User, questions []domain.Question, budget time.Duration, now func() time.Time) *Session {
	start := now()
	return &Session{
		user:      user,
		questions: questions,
		answers:   make([]*domain.Answer, len(questions)),
		state:     StatePresenting,
		startedAt: start,
		deadline:  start.Add(budget),
		now:       now,
	}
}

// User returns the session owner.
func (s *Session) User() domain.User {
	return s.user
}

// State returns the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the question being presented and its zero-based position.
// ok is false once the session is terminal.
func (s *Session) Current() (int, domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePresenting && s.state != StateAnswerLocked {
		return 0, domain.Question{}, false
	}
	return s.current, s.questions[s.current], true
}

// Total returns how many questions this session carries. It may be fewer
// than the configured quiz size when the bank is small.
func (s *Session) Total() int {
	return len(s.questions)
}

// Remaining returns the time left on the shared countdown, floored at zero.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	left := s.deadline.Sub(s.now())
	if left < 0 {
		return 0
	}
	return left
}

// SelectOption locks an answer for the current question. The first
// selection wins; a second selection for the same question returns
// ErrAnswerLocked and changes nothing. Correctness is computed here, at
// lock time, not deferred to submit.
func (s *Session) SelectOption(label string) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StatePresenting:
	case StateAnswerLocked:
		return *s.answers[s.current], domain.ErrAnswerLocked
	default:
		return domain.Answer{}, domain.ErrSessionFinished
	}

	question := s.questions[s.current]
	if _, ok := question.OptionText(label); !ok {
		return domain.Answer{}, domain.ErrUnknownOption
	}

	answer := domain.Answer{
		QuestionID:    question.ID,
		Selected:      label,
		Correct:       label == question.CorrectOption,
		CorrectOption: question.CorrectOption,
	}
	s.answers[s.current] = &answer
	s.state = StateAnswerLocked
	return answer, nil
}

// Result returns the persisted attempt and the full answer list. ok is
// false until the session reaches Done.
func (s *Session) Result() (domain.Attempt, []domain.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDone {
		return domain.Attempt{}, nil, false
	}
	answers := make([]domain.Answer, len(s.final))
	copy(answers, s.final)
	return s.attempt, answers, true
}

// Questions returns the question list the session was dealt.
func (s *Session) Questions() []domain.Question {
	questions := make([]domain.Question, len(s.questions))
	copy(questions, s.questions)
	return questions
}

// sealLocked finalizes the answer list and builds the attempt record.
// Unanswered questions become incorrect answers so the score always
// accounts for every question dealt. Idempotent: a second call keeps the
// attempt built by the first.
func (s *Session) sealLocked() {
	if s.sealed {
		return
	}

	now := s.now()
	s.final = make([]domain.Answer, len(s.questions))
	score := 0
	for i, question := range s.questions {
		if locked := s.answers[i]; locked != nil {
			s.final[i] = *locked
			if locked.Correct {
				score++
			}
			continue
		}
		s.final[i] = domain.Answer{
			QuestionID:    question.ID,
			CorrectOption: question.CorrectOption,
		}
	}

	year, week := domain.WeekOf(now)
	s.attempt = domain.Attempt{
		UserID:         s.user.ID,
		UserName:       s.user.Name,
		Score:          score,
		TimeTaken:      int(now.Sub(s.startedAt) / time.Second),
		SubmittedAt:    now,
		WeekYear:       year,
		WeekNumber:     week,
		TotalQuestions: len(s.questions),
	}
	s.sealed = true
	s.state = StateSubmitting
}
