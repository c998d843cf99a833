package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/ardentid"
	"github.com/MrEthical07/ardentid/internal/logger"
	"github.com/MrEthical07/ardentid/middleware"
)

const maxBodyBytes = 1 << 20

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID  string `json:"user_id,omitempty"`
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

type registerResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type generateOTPRequest struct {
	Email   string               `json:"email"`
	Purpose *ardentid.OTPPurpose `json:"purpose"`
}

type verifyOTPRequest struct {
	Email   string               `json:"email"`
	Purpose *ardentid.OTPPurpose `json:"purpose"`
	Token   string               `json:"token"`
}

type meResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *handler) authenticate(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	if problems := append(validateEmail(req.Email), required(req.Password, "Password is required.")...); len(problems) > 0 {
		h.invalid(w, r, problems)
		return
	}

	res, err := h.engine.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		logger.From(r.Context(), h.logger).Error("authenticate", logger.Err(err))
		writeInternal(w, r)
		return
	}
	if !res.Success {
		writeFailure(w, r, http.StatusBadRequest, CodeBadRequest, ErrCodeCredentials,
			"Invalid email or password.", loginResponse{Success: false})
		return
	}

	writeSuccess(w, r, "User authenticated successfully.", loginResponse{
		UserID:  res.UserID,
		Success: true,
		Token:   res.Token,
	})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	var problems []string
	problems = append(problems, validateEmail(req.Email)...)
	problems = append(problems, validatePassword(req.Password)...)
	problems = append(problems, required(req.GivenName, "Given name is required.")...)
	problems = append(problems, required(req.FamilyName, "Family name is required.")...)
	if len(problems) > 0 {
		h.invalid(w, r, problems)
		return
	}

	res, err := h.engine.Register(r.Context(), ardentid.RegisterRequest{
		Email:      req.Email,
		Password:   req.Password,
		GivenName:  strings.TrimSpace(req.GivenName),
		FamilyName: strings.TrimSpace(req.FamilyName),
	})
	switch {
	case errors.Is(err, ardentid.ErrDuplicateIdentity):
		writeFailure(w, r, http.StatusConflict, CodeConflict, ErrCodeDuplicate, err.Error(), nil)
		return
	case errors.Is(err, ardentid.ErrInvalidRequest):
		h.invalid(w, r, []string{"Email and password are required."})
		return
	case err != nil:
		logger.From(r.Context(), h.logger).Error("register", logger.Err(err))
		writeInternal(w, r)
		return
	}

	writeSuccess(w, r, res.Message, registerResponse{UserID: res.UserID, Message: res.Message})
}

func (h *handler) generateOTP(w http.ResponseWriter, r *http.Request) {
	var req generateOTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	problems := validateEmail(req.Email)
	if req.Purpose == nil {
		problems = append(problems, "Purpose is required.")
	}
	if len(problems) > 0 {
		h.invalid(w, r, problems)
		return
	}

	msg, err := h.engine.GenerateOTP(r.Context(), req.Email, *req.Purpose)
	switch {
	case errors.Is(err, ardentid.ErrUnknownPurpose):
		writeFailure(w, r, http.StatusBadRequest, CodeBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	case errors.Is(err, ardentid.ErrUserNotFound):
		writeFailure(w, r, http.StatusBadRequest, CodeNotFound, ErrCodeNotFound, "User not found.", nil)
		return
	case err != nil:
		logger.From(r.Context(), h.logger).Error("generate otp", logger.Err(err))
		writeInternal(w, r)
		return
	}

	writeSuccess(w, r, msg, msg)
}

func (h *handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	problems := validateEmail(req.Email)
	if req.Purpose == nil {
		problems = append(problems, "Purpose is required.")
	}
	problems = append(problems, required(req.Token, "Token is required.")...)
	if len(problems) > 0 {
		h.invalid(w, r, problems)
		return
	}

	ok, err := h.engine.VerifyOTP(r.Context(), req.Email, *req.Purpose, req.Token)
	if err != nil {
		logger.From(r.Context(), h.logger).Error("verify otp", logger.Err(err))
		writeInternal(w, r)
		return
	}

	if !ok {
		writeFailure(w, r, http.StatusOK, CodeInvalidOTP, ErrCodeInvalidOTP,
			"Verification failed. The code is either invalid or has expired.", false)
		return
	}
	writeSuccess(w, r, "Verification successful.", true)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.unauthorized(w, r)
		return
	}

	resp := meResponse{
		UserID: claims.Subject,
		Email:  claims.Email,
		Roles:  claims.Roles,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	writeSuccess(w, r, "Token is valid.", resp)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, ardentid.ErrUnknownPurpose) {
			h.invalid(w, r, []string{"Invalid OTP purpose specified."})
			return false
		}
		h.invalid(w, r, []string{"Request body must be valid JSON."})
		return false
	}
	return true
}

func (h *handler) invalid(w http.ResponseWriter, r *http.Request, problems []string) {
	writeFailure(w, r, http.StatusBadRequest, CodeBadRequest, ErrCodeValidation, strings.Join(problems, " "), problems)
}
