package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sanskriti-quiz-service/internal/domain"
)

// QuestionSource supplies random distinct questions (from cache/backing store).
type QuestionSource interface {
	RandomQuestions(ctx context.Context, count int) ([]domain.Question, error)
}

// AttemptStore persists finished attempts and serves weekly queries.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error)
	AttemptsByWeek(ctx context.Context, year, week int) ([]domain.Attempt, error)
}

// UserDirectory resolves and registers users, keyed by mobile number.
type UserDirectory interface {
	FindByMobile(ctx context.Context, mobile string) (domain.User, bool, error)
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
}

// QuizService contains the quiz-taking use cases: entry registration,
// dealing a session, answer progression, and the exactly-once submit.
type QuizService struct {
	questions QuestionSource
	attempts  AttemptStore
	users     UserDirectory
	size      int
	budget    time.Duration
	now       func() time.Time
}

func NewQuizService(questions QuestionSource, attempts AttemptStore, users UserDirectory, size int, budget time.Duration) *QuizService {
	return NewQuizServiceWithClock(questions, attempts, users, size, budget, time.Now)
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(questions QuestionSource, attempts AttemptStore, users UserDirectory, size int, budget time.Duration, now func() time.Time) *QuizService {
	if size <= 0 {
		size = 10
	}
	if budget <= 0 {
		budget = 5 * time.Minute
	}
	return &QuizService{
		questions: questions,
		attempts:  attempts,
		users:     users,
		size:      size,
		budget:    budget,
		now:       now,
	}
}

// Register validates entry details and returns the user identity for the
// mobile number, creating one only if none exists. Re-entry with the same
// mobile returns the existing identity, never a duplicate.
func (s *QuizService) Register(ctx context.Context, name, mobile string) (domain.User, error) {
	if err := domain.ValidateRegistration(name, mobile); err != nil {
		return domain.User{}, err
	}

	if existing, ok, err := s.users.FindByMobile(ctx, mobile); err != nil {
		return domain.User{}, err
	} else if ok {
		return existing, nil
	}

	return s.users.CreateUser(ctx, domain.User{
		Name:      strings.TrimSpace(name),
		Mobile:    mobile,
		CreatedAt: s.now(),
	})
}

// StartQuiz deals a fresh session for the user. A fetch failure is fatal to
// the session; the caller restarts the whole flow. When the bank holds
// fewer questions than the configured size, the session adapts to what was
// actually dealt.
func (s *QuizService) StartQuiz(ctx context.Context, user domain.User) (*Session, error) {
	questions, err := s.questions.RandomQuestions(ctx, s.size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuestionFetch, err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return newSession(user, questions, s.budget, s.now), nil
}

// Advance moves past a locked answer: to the next question, or into submit
// when the locked question was the last one. finished reports whether the
// session ended here.
func (s *QuizService) Advance(ctx context.Context, session *Session) (finished bool, attempt domain.Attempt, err error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	switch session.state {
	case StateAnswerLocked:
	case StateDone:
		return true, session.attempt, nil
	case StatePresenting:
		return false, domain.Attempt{}, fmt.Errorf("no answer locked for question %d", session.current+1)
	default:
		return false, domain.Attempt{}, domain.ErrSessionFinished
	}

	if session.current+1 < len(session.questions) {
		session.current++
		session.state = StatePresenting
		return false, domain.Attempt{}, nil
	}

	attempt, err = s.submitLocked(ctx, session)
	return true, attempt, err
}

// Submit ends the session from any in-progress state, counting unanswered
// questions as incorrect. Calling it on a Done session is a no-op returning
// the stored attempt, so a manual submit racing the timer can never write
// twice. After a write failure the answers are kept and Submit retries just
// the write.
func (s *QuizService) Submit(ctx context.Context, session *Session) (domain.Attempt, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	return s.submitLocked(ctx, session)
}

// ExpireIfDue is the timer trigger: it submits when the deadline has
// passed and the session is still in progress. fired reports whether this
// call performed the submit; it is false when a manual submit won the race.
func (s *QuizService) ExpireIfDue(ctx context.Context, session *Session) (attempt domain.Attempt, fired bool, err error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	switch session.state {
	case StatePresenting, StateAnswerLocked:
	default:
		return domain.Attempt{}, false, nil
	}
	if session.now().Before(session.deadline) {
		return domain.Attempt{}, false, nil
	}

	attempt, err = s.submitLocked(ctx, session)
	return attempt, true, err
}

// submitLocked is the single terminal transition. It runs with the session
// mutex held, including the attempt write, so at most one write ever
// happens no matter how many triggers race.
func (s *QuizService) submitLocked(ctx context.Context, session *Session) (domain.Attempt, error) {
	switch session.state {
	case StateDone:
		return session.attempt, nil
	case StateFailed:
		if !session.sealed {
			return domain.Attempt{}, domain.ErrSessionFinished
		}
		// retryable write failure: answers preserved, retry the write only
	}

	session.sealLocked()

	saved, err := s.attempts.CreateAttempt(ctx, session.attempt)
	if err != nil {
		session.state = StateFailed
		return session.attempt, fmt.Errorf("%w: %v", domain.ErrAttemptWrite, err)
	}
	session.attempt = saved
	session.state = StateDone
	return saved, nil
}
