package social

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// Handler serves the friends and leaderboard endpoints
type Handler struct {
	store Store
}

// NewHandler creates a Handler backed by store
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Register adds the handler's routes through register, typically a mux's
// HandleFunc or a server's authenticated equivalent
func (h *Handler) Register(register func(pattern string, handler http.HandlerFunc)) {
	register("GET /friends", h.handleListFriends)
	register("POST /friends", h.handleAddFriend)
	register("DELETE /friends/{email}", h.handleRemoveFriend)
	register("GET /leaderboard", h.handleLeaderboard)
	register("POST /metrics", h.handleUpdateMetrics)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

func internalError(w http.ResponseWriter, err error) {
	slog.Error("Request failed", "error", err)
	jsonError(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handler) handleListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.store.ListFriends()
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

func (h *Handler) handleAddFriend(w http.ResponseWriter, r *http.Request) {
	var friend Friend
	if err := json.NewDecoder(r.Body).Decode(&friend); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	friend.Name = strings.TrimSpace(friend.Name)
	friend.Email = normalizeEmail(friend.Email)
	if friend.Name == "" || friend.Email == "" {
		jsonError(w, "name and email are required", http.StatusBadRequest)
		return
	}

	if err := h.store.AddFriend(friend); err != nil {
		if errors.Is(err, ErrFriendExists) {
			jsonError(w, "Friend already exists", http.StatusConflict)
			return
		}
		internalError(w, err)
		return
	}

	slog.Info("Friend added", "email", friend.Email)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Friend added successfully!"})
}

func (h *Handler) handleRemoveFriend(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if err := h.store.RemoveFriend(email); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Friend removed successfully!"})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Leaderboard()
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// metricsRequest uses pointers so missing fields can be told apart from zeros
type metricsRequest struct {
	User    string `json:"user"`
	Metrics *struct {
		Points      *int             `json:"points"`
		DaysLate    *int             `json:"days_late"`
		TotalAmount *decimal.Decimal `json:"total_amount"`
	} `json:"metrics"`
}

func (h *Handler) handleUpdateMetrics(w http.ResponseWriter, r *http.Request) {
	var req metricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user := strings.TrimSpace(req.User)
	if user == "" {
		jsonError(w, "user is required", http.StatusBadRequest)
		return
	}
	m := req.Metrics
	if m == nil || m.Points == nil || m.DaysLate == nil || m.TotalAmount == nil {
		jsonError(w, "metrics.points, metrics.days_late and metrics.total_amount are required", http.StatusBadRequest)
		return
	}

	metrics := Metrics{Points: *m.Points, DaysLate: *m.DaysLate, TotalAmount: *m.TotalAmount}
	if err := h.store.SaveMetrics(user, metrics); err != nil {
		internalError(w, err)
		return
	}

	slog.Info("Metrics updated", "user", user, "points", metrics.Points)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Metrics updated successfully!"})
}
