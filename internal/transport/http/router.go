package http

import (
	"net/http"

	"trivia-quiz/internal/app"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var (
	corsHeaders = handlers.AllowedHeaders([]string{"Content-Type"})
	corsMethods = handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"})
	corsOrigins = handlers.AllowedOrigins([]string{"*"})
)

// NewRouter wires the REST and WebSocket endpoints for service behind CORS
// and access logging.
func NewRouter(service *app.QuizService, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := NewAPIHandler(service, logger)
	ws := NewWSHandler(service, logger)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	r.HandleFunc("/ws", ws.ServeWS).Methods("GET")
	api.SetupRoutes(r.PathPrefix("/api").Subrouter())

	accessLog := zap.NewStdLog(logger.Named("access")).Writer()
	return handlers.CORS(corsHeaders, corsMethods, corsOrigins)(handlers.CombinedLoggingHandler(accessLog, r))
}
