package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sanskriti-quiz-service/internal/app"
	"sanskriti-quiz-service/internal/domain"
	"sanskriti-quiz-service/internal/infra/memory"
)

func TestFullSessionScoresAllCorrect(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 5)

	session := env.startSession(t, "Alice", "9876543210")
	if session.Total() != 5 {
		t.Fatalf("expected 5 questions, got %d", session.Total())
	}

	for {
		_, question, ok := session.Current()
		if !ok {
			t.Fatalf("session ended before all questions were answered")
		}
		answer, err := session.SelectOption(question.CorrectOption)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if !answer.Correct {
			t.Fatalf("expected correct answer for question %d", question.ID)
		}
		finished, attempt, err := env.quiz.Advance(ctx, session)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if finished {
			if attempt.Score != 5 || attempt.TotalQuestions != 5 {
				t.Fatalf("expected score 5/5, got %d/%d", attempt.Score, attempt.TotalQuestions)
			}
			break
		}
	}

	if env.store.Len() != 1 {
		t.Fatalf("expected exactly one persisted attempt, got %d", env.store.Len())
	}
}

func TestEarlySubmitCountsUnansweredAsWrong(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 5)
	session := env.startSession(t, "Bob", "9876543211")

	// Answer two questions, one correct and one wrong, then bail.
	_, q1, _ := session.Current()
	if _, err := session.SelectOption(q1.CorrectOption); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, _, err := env.quiz.Advance(ctx, session); err != nil {
		t.Fatalf("advance: %v", err)
	}
	_, q2, _ := session.Current()
	if _, err := session.SelectOption(wrongOption(q2)); err != nil {
		t.Fatalf("select: %v", err)
	}

	attempt, err := env.quiz.Submit(ctx, session)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attempt.Score != 1 {
		t.Fatalf("expected score 1, got %d", attempt.Score)
	}
	if attempt.TotalQuestions != 5 {
		t.Fatalf("expected total 5, got %d", attempt.TotalQuestions)
	}

	_, answers, ok := session.Result()
	if !ok {
		t.Fatalf("expected result after submit")
	}
	if len(answers) != 5 {
		t.Fatalf("expected 5 answers including synthesized ones, got %d", len(answers))
	}
	for _, answer := range answers[2:] {
		if answer.Selected != "" || answer.Correct {
			t.Fatalf("expected unanswered question marked incorrect, got %+v", answer)
		}
	}
}

func TestAnswerLockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 3)
	session := env.startSession(t, "Chitra", "9876543212")

	_, question, _ := session.Current()
	first, err := session.SelectOption(question.CorrectOption)
	if err != nil {
		t.Fatalf("first select: %v", err)
	}

	second, err := session.SelectOption(wrongOption(question))
	if !errors.Is(err, domain.ErrAnswerLocked) {
		t.Fatalf("expected ErrAnswerLocked, got %v", err)
	}
	if second != first {
		t.Fatalf("locked answer changed: %+v vs %+v", second, first)
	}

	attempt, err := env.quiz.Submit(ctx, session)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attempt.Score != 1 {
		t.Fatalf("second selection affected score: got %d", attempt.Score)
	}
}

func TestTimerAndManualSubmitRaceWritesOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 3)
	session := env.startSession(t, "Dev", "9876543213")

	env.advanceClock(6 * time.Minute) // past the deadline

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = env.quiz.Submit(ctx, session)
	}()
	go func() {
		defer wg.Done()
		_, _, _ = env.quiz.ExpireIfDue(ctx, session)
	}()
	wg.Wait()

	if env.store.Len() != 1 {
		t.Fatalf("expected exactly one persisted attempt, got %d", env.store.Len())
	}
	if session.State() != app.StateDone {
		t.Fatalf("expected done, got %v", session.State())
	}
}

func TestExpireIsNoOpAfterManualSubmit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 3)
	session := env.startSession(t, "Esha", "9876543214")

	if _, err := env.quiz.Submit(ctx, session); err != nil {
		t.Fatalf("submit: %v", err)
	}

	env.advanceClock(6 * time.Minute)
	_, fired, err := env.quiz.ExpireIfDue(ctx, session)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if fired {
		t.Fatalf("expected expiry to be a no-op after manual submit")
	}
	if env.store.Len() != 1 {
		t.Fatalf("expected one attempt, got %d", env.store.Len())
	}
}

func TestExpireBeforeDeadlineDoesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 3)
	session := env.startSession(t, "Faiz", "9876543215")

	_, fired, err := env.quiz.ExpireIfDue(ctx, session)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if fired {
		t.Fatalf("expire fired before the deadline")
	}
	if session.State() != app.StatePresenting {
		t.Fatalf("expected presenting, got %v", session.State())
	}
}

func TestSubmitRetriesAfterWriteFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 3)
	env.store.failures = 1
	session := env.startSession(t, "Gauri", "9876543216")

	_, question, _ := session.Current()
	if _, err := session.SelectOption(question.CorrectOption); err != nil {
		t.Fatalf("select: %v", err)
	}

	_, err := env.quiz.Submit(ctx, session)
	if !errors.Is(err, domain.ErrAttemptWrite) {
		t.Fatalf("expected ErrAttemptWrite, got %v", err)
	}
	if session.State() != app.StateFailed {
		t.Fatalf("expected failed, got %v", session.State())
	}

	// In-memory answers survive the failure; retrying only redoes the write.
	attempt, err := env.quiz.Submit(ctx, session)
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if attempt.Score != 1 || attempt.TotalQuestions != 3 {
		t.Fatalf("retry lost answers: got %d/%d", attempt.Score, attempt.TotalQuestions)
	}
	if env.store.Len() != 1 {
		t.Fatalf("expected one attempt after retry, got %d", env.store.Len())
	}
}

func TestSessionAdaptsToSmallBank(t *testing.T) {
	env := newTestEnv(t, 3) // bank of 3, quiz size stays 10
	session := env.startSession(t, "Hari", "9876543217")
	if session.Total() != 3 {
		t.Fatalf("expected session to adapt to 3 questions, got %d", session.Total())
	}
}

func TestStartQuizFailsWhenFetchFails(t *testing.T) {
	ctx := context.Background()
	quiz := app.NewQuizService(failingSource{}, memory.NewAttemptStore(), memory.NewUserDirectory(), 10, 5*time.Minute)

	_, err := quiz.StartQuiz(ctx, domain.User{ID: 1, Name: "Ira"})
	if !errors.Is(err, domain.ErrQuestionFetch) {
		t.Fatalf("expected ErrQuestionFetch, got %v", err)
	}
}

func TestRegisterReturnsExistingIdentity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 3)

	first, err := env.quiz.Register(ctx, "Jaya", "9876543218")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := env.quiz.Register(ctx, "Jaya Again", "9876543218")
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same identity, got %d and %d", first.ID, second.ID)
	}
	if env.users.Count() != 1 {
		t.Fatalf("expected one user, got %d", env.users.Count())
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 3)

	if _, err := env.quiz.Register(ctx, "K", "9876543219"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for short name, got %v", err)
	}
	if _, err := env.quiz.Register(ctx, "Kiran", "12345"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for bad mobile, got %v", err)
	}
}

type testEnv struct {
	quiz  *app.QuizService
	store *flakyAttemptStore
	users *memory.UserDirectory
	mu    sync.Mutex
	now   time.Time
}

func newTestEnv(t *testing.T, bankSize int) *testEnv {
	t.Helper()
	env := &testEnv{
		store: &flakyAttemptStore{AttemptStore: memory.NewAttemptStore()},
		users: memory.NewUserDirectory(),
		now:   time.Date(2025, time.September, 1, 10, 0, 0, 0, time.UTC),
	}
	bank := memory.NewQuestionBank(memory.NewStaticQuestionLoader(sampleBank(bankSize)), time.Minute)
	env.quiz = app.NewQuizServiceWithClock(bank, env.store, env.users, 10, 5*time.Minute, env.clock)
	return env
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advanceClock(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func (e *testEnv) startSession(t *testing.T, name, mobile string) *app.Session {
	t.Helper()
	ctx := context.Background()
	user, err := e.quiz.Register(ctx, name, mobile)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	session, err := e.quiz.StartQuiz(ctx, user)
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	return session
}

// flakyAttemptStore fails the first `failures` writes, then delegates.
type flakyAttemptStore struct {
	*memory.AttemptStore
	mu       sync.Mutex
	failures int
}

func (s *flakyAttemptStore) CreateAttempt(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return domain.Attempt{}, errors.New("backend unavailable")
	}
	s.mu.Unlock()
	return s.AttemptStore.CreateAttempt(ctx, attempt)
}

type failingSource struct{}

func (failingSource) RandomQuestions(context.Context, int) ([]domain.Question, error) {
	return nil, errors.New("backend unavailable")
}

func wrongOption(q domain.Question) string {
	for _, label := range domain.OptionLabels {
		if label != q.CorrectOption {
			return label
		}
	}
	return "a"
}

func sampleBank(n int) []domain.Question {
	labels := domain.OptionLabels
	bank := make([]domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		bank = append(bank, domain.Question{
			ID:            i,
			Text:          fmt.Sprintf("Question %d?", i),
			OptionA:       "First",
			OptionB:       "Second",
			OptionC:       "Third",
			OptionD:       "Fourth",
			CorrectOption: labels[i%len(labels)],
			Category:      "General",
			Difficulty:    1 + i%5,
		})
	}
	return bank
}
