package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"sanskriti-quiz-service/internal/app"
	"sanskriti-quiz-service/internal/domain"
)

// APIHandler serves the non-interactive JSON endpoints: entry registration
// and the weekly leaderboard views.
type APIHandler struct {
	quiz   *app.QuizService
	boards *app.LeaderboardService
}

func NewAPIHandler(quiz *app.QuizService, boards *app.LeaderboardService) *APIHandler {
	return &APIHandler{quiz: quiz, boards: boards}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/entry", h.handleEntry)
	mux.HandleFunc("/api/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/api/leaderboard/stats", h.handleStats)
	mux.HandleFunc("/api/leaderboard/rank", h.handleRank)
}

type entryRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
}

type leaderboardResponse struct {
	WeekYear   int              `json:"weekYear"`
	WeekNumber int              `json:"weekNumber"`
	WeekStart  string           `json:"weekStart"`
	WeekEnd    string           `json:"weekEnd"`
	Entries    []domain.Attempt `json:"entries"`
}

type rankResponse struct {
	Rank    int  `json:"rank"`
	HasRank bool `json:"hasRank"`
}

func (h *APIHandler) handleEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.quiz.Register(r.Context(), req.Name, req.Mobile)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("register failed: %v", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *APIHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	year, week := h.requestedWeek(r)

	board, err := h.boards.Weekly(r.Context(), year, week)
	if err != nil {
		// Degrade to an empty board rather than blocking the page.
		log.Printf("leaderboard read failed: %v", err)
	}

	start := domain.WeekStart(year, week)
	end := start.AddDate(0, 0, 7).Add(-time.Second)
	entries := board.Entries
	if entries == nil {
		entries = []domain.Attempt{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		WeekYear:   year,
		WeekNumber: week,
		WeekStart:  start.Format("Jan 02"),
		WeekEnd:    end.Format("Jan 02, 2006"),
		Entries:    entries,
	})
}

func (h *APIHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	year, week := h.requestedWeek(r)
	writeJSON(w, http.StatusOK, h.boards.Stats(r.Context(), year, week))
}

func (h *APIHandler) handleRank(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid userId")
		return
	}
	year, week := h.requestedWeek(r)

	rank, ok, err := h.boards.Rank(r.Context(), userID, year, week)
	if err != nil {
		log.Printf("rank read failed: %v", err)
		writeJSON(w, http.StatusOK, rankResponse{})
		return
	}
	writeJSON(w, http.StatusOK, rankResponse{Rank: rank, HasRank: ok})
}

// requestedWeek reads the week/year query pair, defaulting to the current
// ISO week.
func (h *APIHandler) requestedWeek(r *http.Request) (year, week int) {
	year, week = h.boards.CurrentWeek()
	if v, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil {
		year = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("week")); err == nil {
		week = v
	}
	return year, week
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
