package handlers

import (
	"net/http"
	"strings"

	"cryptosim/src/schemas"
	"cryptosim/src/utils"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	req := new(schemas.RegisterRequest)
	if err := h.decode(w, r, req); err != nil {
		h.HandleErrors(w, r, err)
		return
	}

	userID, err := h.Auth.Register(ctx, req.Nombre, req.Email, req.Password)
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}

	h.respond(w, r, schemas.RegisterResponse{
		Success: true,
		Message: "Usuario registrado correctamente",
		UserID:  userID,
	}, http.StatusCreated)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	req := new(schemas.LoginRequest)
	if err := h.decode(w, r, req); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.HandleErrors(w, r, utils.BadRequest("Email y contraseña son requeridos"))
		return
	}

	result, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}

	h.respond(w, r, schemas.LoginResponse{
		User: schemas.PublicUser{
			ID:     result.User.ID,
			Nombre: result.User.Name,
			Email:  result.User.Email,
		},
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	}, http.StatusOK)
}
