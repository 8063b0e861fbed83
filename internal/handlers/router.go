package handlers

import (
	"net/http"

	"github.com/google/uuid"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/tonipenya/learn-emotion-detection/internal/log"
)

const requestIDHeader = "X-Request-ID"

// NewRouter wires the API routes behind request-id and CORS middleware.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(requestID)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/predict", h.Predict).Methods(http.MethodPost)
	r.HandleFunc("/predict/image", h.PredictFromImage).Methods(http.MethodPost)
	r.HandleFunc("/detect/image", h.DetectFromImage).Methods(http.MethodPost)

	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{"*"}),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type"}),
	)(r)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(log.ContextWithRequestID(r.Context(), id)))
	})
}
