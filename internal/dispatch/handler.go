package dispatch

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tablero/tablero/internal/security"
	"github.com/tablero/tablero/internal/session"
	"github.com/tablero/tablero/internal/shared"
)

// Handler exposes the generic dispatch endpoint and the menu projection.
type Handler struct {
	logger     *slog.Logger
	dispatcher *Dispatcher
	sessions   *session.Service
	cache      *security.Cache
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, dispatcher *Dispatcher, sessions *session.Service, cache *security.Cache) *Handler {
	return &Handler{logger: logger, dispatcher: dispatcher, sessions: sessions, cache: cache}
}

// MountRoutes registers dispatch routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/to-process", h.handleToProcess)
	r.Get("/menu-options", h.handleMenuOptions)
}

func (h *Handler) handleToProcess(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Solicitud inválida"})
		return
	}

	sess := session.FromContext(r.Context())
	outcome := h.dispatcher.Dispatch(r.Context(), sess, req)
	shared.WriteJSON(w, statusFor(outcome.Kind), outcome)
}

func (h *Handler) handleMenuOptions(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if !h.sessions.SessionExists(sess) || sess.Profile() == 0 {
		shared.WriteJSON(w, http.StatusUnauthorized, shared.Envelope{Msg: "No autorizado"})
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"sts":     true,
		"options": h.cache.VisibleOptions(sess.Profile()),
	})
}

// statusFor maps outcome kinds onto HTTP status codes. The body keeps the
// {sts,msg,data} shape regardless.
func statusFor(kind Kind) int {
	switch kind {
	case KindSuccess:
		return http.StatusOK
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
