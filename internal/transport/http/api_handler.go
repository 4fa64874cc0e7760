package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// APIHandler exposes sessions over plain request/response for clients that
// poll instead of holding a WebSocket.
type APIHandler struct {
	service *app.QuizService
	logger  *zap.Logger
}

func NewAPIHandler(service *app.QuizService, logger *zap.Logger) *APIHandler {
	return &APIHandler{service: service, logger: logger}
}

type selectRequest struct {
	Answer string `json:"answer"`
}

type selectResponse struct {
	Recorded bool        `json:"recorded"`
	View     domain.View `json:"view"`
}

func (h *APIHandler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/sessions", h.CreateFunc).Methods("POST")
	r.HandleFunc("/sessions/{id}", h.GetFunc).Methods("GET")
	r.HandleFunc("/sessions/{id}", h.DeleteFunc).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/select", h.SelectFunc).Methods("POST")
	r.HandleFunc("/sessions/{id}/{action:start|next|previous|restart}", h.ActionFunc).Methods("POST")
	r.HandleFunc("/results/{id}", h.ResultFunc).Methods("GET")
}

func (h *APIHandler) CreateFunc(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.service.Create(r.Context()))
}

func (h *APIHandler) GetFunc(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) DeleteFunc(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.service.View(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.service.Remove(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) SelectFunc(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid select payload"})
		return
	}
	view, recorded, err := h.service.Select(r.Context(), mux.Vars(r)["id"], req.Answer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectResponse{Recorded: recorded, View: view})
}

func (h *APIHandler) ActionFunc(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var (
		view domain.View
		err  error
	)
	switch vars["action"] {
	case "start":
		view, err = h.service.Start(r.Context(), id)
	case "next":
		view, err = h.service.Next(r.Context(), id)
	case "previous":
		view, err = h.service.Previous(r.Context(), id)
	case "restart":
		view, err = h.service.Restart(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) ResultFunc(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Result(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrResultNotFound):
		status = http.StatusNotFound
	default:
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
