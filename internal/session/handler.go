package session

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tablero/tablero/internal/security"
	"github.com/tablero/tablero/internal/shared"
)

// Handler wires the login/session lifecycle endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	manager   *Manager
	cache     *security.Cache
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, manager *Manager, cache *security.Cache) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		manager:   manager,
		cache:     cache,
		validator: validator.New(),
	}
}

// MountRoutes registers session routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/select-profile", h.handleSelectProfile)
	r.Post("/logout", h.handleLogout)
	r.Get("/check-session", h.handleCheckSession)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Sts      bool              `json:"sts"`
	Msg      string            `json:"msg"`
	Profiles []Profile         `json:"profiles,omitempty"`
	Options  []security.Option `json:"options,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := FromContext(r.Context())
	if h.service.SessionExists(sess) {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Ya tienes una sesión activa"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Datos inválidos"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Datos inválidos"})
		return
	}

	pending, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil || !pending.Status {
		shared.WriteJSON(w, http.StatusUnauthorized, shared.Envelope{Msg: "Datos inválidos"})
		return
	}

	profiles, err := h.service.Profiles(r.Context(), pending.UserName)
	if err != nil {
		h.logger.Error("load profiles", slog.Any("error", err))
		shared.WriteJSON(w, http.StatusInternalServerError, shared.Envelope{Msg: "Error al iniciar sesión"})
		return
	}
	if len(profiles) == 0 {
		shared.WriteJSON(w, http.StatusForbidden, shared.Envelope{Msg: "No tienes perfiles asignados"})
		return
	}

	if len(profiles) > 1 {
		// Park the verified identity on this caller's session until a
		// profile is chosen.
		sess.bindPending(pending)
		shared.WriteJSON(w, http.StatusOK, loginResponse{
			Sts:      true,
			Msg:      "Selecciona un perfil",
			Profiles: profiles,
		})
		return
	}

	if !h.service.CreateSession(sess, pending, profiles[0].ID) {
		shared.WriteJSON(w, http.StatusUnauthorized, shared.Envelope{Msg: "Datos inválidos"})
		return
	}
	h.logger.Info("user logged in",
		slog.String("email", pending.UserName),
		slog.Int64("profile", profiles[0].ID))

	shared.WriteJSON(w, http.StatusOK, loginResponse{
		Sts:     true,
		Msg:     "Usuario autenticado",
		Options: h.cache.VisibleOptions(profiles[0].ID),
	})
}

type selectProfileRequest struct {
	ProfileID int64 `json:"id_profile" validate:"required"`
}

func (h *Handler) handleSelectProfile(w http.ResponseWriter, r *http.Request) {
	sess := FromContext(r.Context())

	var req selectProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProfileID == 0 {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Debes seleccionar un perfil"})
		return
	}

	pending := sess.Pending()
	if pending == nil {
		shared.WriteJSON(w, http.StatusUnauthorized, shared.Envelope{Msg: "Datos inválidos"})
		return
	}

	profiles, err := h.service.Profiles(r.Context(), pending.UserName)
	if err != nil {
		h.logger.Error("load profiles", slog.Any("error", err))
		shared.WriteJSON(w, http.StatusInternalServerError, shared.Envelope{Msg: "Error al iniciar sesión"})
		return
	}
	valid := false
	for _, p := range profiles {
		if p.ID == req.ProfileID {
			valid = true
			break
		}
	}
	if !valid {
		shared.WriteJSON(w, http.StatusForbidden, shared.Envelope{Msg: "Perfil no válido"})
		return
	}

	if !h.service.CreateSession(sess, pending, req.ProfileID) {
		shared.WriteJSON(w, http.StatusUnauthorized, shared.Envelope{Msg: "Datos inválidos"})
		return
	}
	h.logger.Info("profile selected",
		slog.String("email", pending.UserName),
		slog.Int64("profile", req.ProfileID))

	shared.WriteJSON(w, http.StatusOK, loginResponse{
		Sts:     true,
		Msg:     "Perfil seleccionado correctamente",
		Options: h.cache.VisibleOptions(req.ProfileID),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := FromContext(r.Context())
	if err := h.service.CloseSession(r.Context(), h.manager, sess); err != nil {
		shared.WriteJSON(w, http.StatusInternalServerError, shared.Envelope{Msg: "Error al cerrar la sesión"})
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{Sts: true, Msg: "Logout ok!"})
}

func (h *Handler) handleCheckSession(w http.ResponseWriter, r *http.Request) {
	sess := FromContext(r.Context())
	shared.WriteJSON(w, http.StatusOK, map[string]bool{
		"authenticated": h.service.SessionExists(sess),
	})
}
