package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tablero/tablero/internal/shared"
	"github.com/tablero/tablero/internal/store"
)

// Handler wires the public account endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers account routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/create-user", h.handleSignup)
	r.Post("/reset-password", h.handleResetPassword)
	r.Post("/confirm-reset-password", h.handleConfirmReset)
	r.Post("/reset-email", h.handleResetEmail)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var p SignupParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Faltan datos obligatorios"})
		return
	}
	if err := h.validator.Struct(p); err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Faltan datos obligatorios"})
		return
	}

	if err := h.service.Signup(r.Context(), p); err != nil {
		if store.IsUniqueViolation(err) {
			shared.WriteJSON(w, http.StatusConflict, shared.Envelope{Msg: "El correo ya está registrado"})
			return
		}
		h.logger.Error("signup", slog.Any("error", err))
		shared.WriteJSON(w, http.StatusInternalServerError, shared.Envelope{Msg: "Error al crear el usuario"})
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{Sts: true, Msg: "Usuario creado correctamente"})
}

type resetPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=50"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Falta el email"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Email invalido"})
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "El correo no está registrado."})
			return
		}
		h.logger.Error("reset password", slog.Any("error", err))
		shared.WriteJSON(w, http.StatusInternalServerError, shared.Envelope{Msg: "Error al enviar el correo."})
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{Sts: true, Msg: "Correo enviado con el código de restablecimiento."})
}

type confirmResetRequest struct {
	Code        string `json:"code" validate:"required,len=6"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

func (h *Handler) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Faltan datos obligatorios"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Faltan datos obligatorios"})
		return
	}

	if err := h.service.ConfirmPasswordReset(r.Context(), req.Code, req.NewPassword); err != nil {
		if errors.Is(err, errCodeInvalid) {
			shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Código incorrecto o no encontrado."})
			return
		}
		h.logger.Error("confirm reset", slog.Any("error", err))
		shared.WriteJSON(w, http.StatusInternalServerError, shared.Envelope{Msg: "No se pudo actualizar la contraseña."})
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{Sts: true, Msg: "Contraseña actualizada correctamente."})
}

type resetEmailRequest struct {
	NumberID string `json:"number_id" validate:"required"`
	Password string `json:"password" validate:"required"`
	NewEmail string `json:"newEmail" validate:"required,email,max=50"`
}

func (h *Handler) handleResetEmail(w http.ResponseWriter, r *http.Request) {
	var req resetEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Faltan datos obligatorios"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Faltan datos obligatorios"})
		return
	}

	if err := h.service.ChangeEmail(r.Context(), req.NumberID, req.Password, req.NewEmail); err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			shared.WriteJSON(w, http.StatusBadRequest, shared.Envelope{Msg: "Credenciales incorrectas"})
			return
		}
		h.logger.Error("reset email", slog.Any("error", err))
		shared.WriteJSON(w, http.StatusInternalServerError, shared.Envelope{Msg: "No se pudo actualizar el email."})
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.Envelope{Sts: true, Msg: "Email actualizado correctamente."})
}
