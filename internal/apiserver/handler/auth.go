package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quarrydirect/portal/internal/apiserver/middleware"
	"github.com/quarrydirect/portal/internal/common/dto"
	"github.com/quarrydirect/portal/internal/common/errorx"
)

// Register handles POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, errorx.ErrMissingFields)
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login handles POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, errorx.ErrMissingFields)
		return
	}

	resp, err := h.svc.LoginWithPassword(c.Request.Context(), req.Email, req.Password)
	h.countLogin("password", err)
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SessionIssued()
	}

	c.JSON(http.StatusOK, resp)
}

// SendOTP handles POST /api/auth/otp/send
func (h *Handler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, errorx.ErrMissingFields)
		return
	}

	resp, err := h.svc.SendOTP(c.Request.Context(), req.Phone)
	if h.metrics != nil {
		if err != nil {
			h.metrics.OTPSend("failure")
		} else {
			h.metrics.OTPSend("success")
		}
	}
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyOTP handles POST /api/auth/otp/verify
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorx.Respond(c, errorx.ErrMissingFields)
		return
	}

	resp, err := h.svc.LoginWithOTP(c.Request.Context(), req.Phone, req.OTP)
	if h.metrics != nil {
		if err != nil {
			h.metrics.OTPVerify("failure")
		} else {
			h.metrics.OTPVerify("success")
		}
	}
	h.countLogin("otp", err)
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SessionIssued()
	}

	c.JSON(http.StatusOK, resp)
}

// GetSession handles GET /api/auth/session. It is not mounted behind the
// auth middleware so that an invalid token yields the structured error
// rather than a generic rejection.
func (h *Handler) GetSession(c *gin.Context) {
	token := middleware.ExtractToken(c)
	if token == "" {
		errorx.Respond(c, errorx.ErrTokenMissing)
		return
	}

	resp, err := h.svc.ValidateSession(c.Request.Context(), token)
	if h.metrics != nil {
		if err != nil {
			h.metrics.SessionValidation("failure")
		} else {
			h.metrics.SessionValidation("success")
		}
	}
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout. An explicit session_token in the
// body wins over the bearer header; unknown tokens still succeed.
func (h *Handler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	_ = c.ShouldBindJSON(&req)

	token := req.SessionToken
	if token == "" {
		token = middleware.ExtractToken(c)
	}

	if token != "" {
		if err := h.svc.Logout(c.Request.Context(), token); err != nil {
			h.logger.Warn("logout failed", zap.Error(err))
			errorx.Respond(c, err)
			return
		}
		if h.metrics != nil {
			h.metrics.SessionRevoked()
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
