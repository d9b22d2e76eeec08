package api

import (
	"net/http"

	"ecfresh/internal/entities"
	"ecfresh/internal/service"
	"ecfresh/internal/utils"

	"go.uber.org/zap"
)

type AdminAuthHandler struct {
	service service.AdminAuthService
	log     *zap.Logger
}

func NewAdminAuthHandler(svc service.AdminAuthService, log *zap.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{service: svc, log: log}
}

func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req entities.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if err := utils.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.LoginResponse{Token: token})
}

func (h *AdminAuthHandler) CreateUserAdmin(w http.ResponseWriter, r *http.Request) {
	var req entities.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.CreateAdmin(r.Context(), req.Email, req.Password); err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Admin registered successfully"})
}
