package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sanskriti-quiz-service/internal/app"
	"sanskriti-quiz-service/internal/domain"
)

// WSHandler drives one interactive quiz session per websocket connection.
// The server owns the countdown: a ticker pushes the remaining time every
// second and fires the auto-submit when the budget runs out.
type WSHandler struct {
	quiz     *app.QuizService
	boards   *app.LeaderboardService
	upgrader websocket.Upgrader
	tick     time.Duration
}

func NewWSHandler(quiz *app.QuizService, boards *app.LeaderboardService) *WSHandler {
	return &WSHandler{
		quiz:   quiz,
		boards: boards,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		tick: time.Second,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type questionPayload struct {
	Index     int            `json:"index"`
	Total     int            `json:"total"`
	Question  clientQuestion `json:"question"`
	Remaining int            `json:"remaining"`
}

// clientQuestion is what the taker sees: no correct option.
type clientQuestion struct {
	ID         int               `json:"id"`
	Text       string            `json:"text"`
	Options    map[string]string `json:"options"`
	Category   string            `json:"category"`
	Difficulty int               `json:"difficulty"`
}

type answerResultPayload struct {
	QuestionID    int    `json:"questionId"`
	Selected      string `json:"selected"`
	Correct       bool   `json:"correct"`
	CorrectOption string `json:"correctOption"`
}

type timerPayload struct {
	Remaining int `json:"remaining"`
}

type resultPayload struct {
	Attempt domain.Attempt  `json:"attempt"`
	Answers []domain.Answer `json:"answers"`
	Rank    int             `json:"rank"`
	HasRank bool            `json:"hasRank"`
}

// ServeQuiz upgrades the request and walks the caller through one session:
// register (idempotent by mobile), deal questions, then answer/next/submit
// frames until the attempt is saved or the client goes away.
func (h *WSHandler) ServeQuiz(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	mobile := r.URL.Query().Get("mobile")
	if name == "" || mobile == "" {
		http.Error(w, "missing name or mobile", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()

	user, err := h.quiz.Register(ctx, name, mobile)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	session, err := h.quiz.StartQuiz(ctx, user)
	if err != nil {
		// Fatal: the user restarts the whole flow.
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	done := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})
	var closeOnce, resultOnce sync.Once
	finish := func() { closeOnce.Do(func() { close(done) }) }
	defer finish()

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
			// After the result the session is over; say goodbye so the
			// read loop unblocks on the close handshake.
			if msg.Type == "result" {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "quiz complete"))
				return
			}
		}
	}()

	enqueue := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-done:
		}
	}

	pushResult := func(attempt domain.Attempt) {
		resultOnce.Do(func() {
			_, answers, _ := session.Result()
			rank, hasRank, err := h.boards.Rank(ctx, attempt.UserID, attempt.WeekYear, attempt.WeekNumber)
			if err != nil {
				log.Printf("rank lookup failed: %v", err)
				rank, hasRank = 0, false
			}
			enqueue(outboundMessage[any]{Type: "result", Payload: resultPayload{
				Attempt: attempt,
				Answers: answers,
				Rank:    rank,
				HasRank: hasRank,
			}})
			finish()
		})
	}

	// Countdown loop. ExpireIfDue is a no-op when a manual submit already
	// won, so the race can never write a second attempt.
	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(h.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// Background context: the auto-submit write must not be
				// canceled by the request teardown racing it.
				attempt, fired, err := h.quiz.ExpireIfDue(context.Background(), session)
				if fired {
					if err != nil {
						enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Retryable: retryable(err)}})
						continue
					}
					pushResult(attempt)
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "timer", Payload: timerPayload{Remaining: int(session.Remaining() / time.Second)}}:
				default:
					// drop ticks rather than block on a slow client
				}
			case <-done:
				return
			}
		}
	}()

	if index, question, ok := session.Current(); ok {
		enqueue(outboundMessage[any]{Type: "question", Payload: h.questionFrame(session, index, question)})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			answer, err := session.SelectOption(payload.Option)
			if err != nil {
				enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			enqueue(outboundMessage[any]{Type: "answerResult", Payload: answerResultPayload{
				QuestionID:    answer.QuestionID,
				Selected:      answer.Selected,
				Correct:       answer.Correct,
				CorrectOption: answer.CorrectOption,
			}})
		case "next":
			finished, attempt, err := h.quiz.Advance(ctx, session)
			if err != nil {
				enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Retryable: retryable(err)}})
				continue
			}
			if finished {
				pushResult(attempt)
				continue
			}
			if index, question, ok := session.Current(); ok {
				enqueue(outboundMessage[any]{Type: "question", Payload: h.questionFrame(session, index, question)})
			}
		case "submit":
			attempt, err := h.quiz.Submit(ctx, session)
			if err != nil {
				enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Retryable: retryable(err)}})
				continue
			}
			pushResult(attempt)
		default:
			enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	finish()
	<-tickerDone
	close(send)
	<-writerDone
}

func (h *WSHandler) questionFrame(session *app.Session, index int, question domain.Question) questionPayload {
	return questionPayload{
		Index: index,
		Total: session.Total(),
		Question: clientQuestion{
			ID:   question.ID,
			Text: question.Text,
			Options: map[string]string{
				"a": question.OptionA,
				"b": question.OptionB,
				"c": question.OptionC,
				"d": question.OptionD,
			},
			Category:   question.Category,
			Difficulty: question.Difficulty,
		},
		Remaining: int(session.Remaining() / time.Second),
	}
}

// retryable reports whether the failed step may be re-attempted without
// restarting the flow: only attempt writes qualify.
func retryable(err error) bool {
	return errors.Is(err, domain.ErrAttemptWrite)
}
