package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/finloop/loan-management/internal/domain"
	"github.com/finloop/loan-management/internal/service"
	"github.com/finloop/loan-management/pkg/response"
)

type AuthHandler struct {
	service   *service.AuthService
	validator *validator.Validate
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var request domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.service.Register(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, result)
}

// VerifyOTP handles POST /auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var request domain.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.service.VerifyOTP(r.Context(), &request); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, map[string]string{
		"message": "OTP verified successfully. You can now log in.",
	})
}

// ResendOTP handles POST /auth/resend-otp
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var request domain.ResendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.service.ResendOTP(r.Context(), &request); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, map[string]string{
		"message": "A new OTP has been sent to your email.",
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var request domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	tokens, err := h.service.Login(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, tokens)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var request domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	tokens, err := h.service.Refresh(r.Context(), request.RefreshToken)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, tokens)
}
