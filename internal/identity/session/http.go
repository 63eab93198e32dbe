// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

/*
HTTP delivery layer for the credential lifecycle.

It implements the gateway for registration, verification, login, token
refresh, and password recovery.

# Architecture

The handler acts as a thin mediation layer between the web and domain services:
  - Protocol: Standard RESTful JSON interface.
  - Security: Handles JWT orchestration and refresh token cookie injection.
  - Verification: Enforces strict input validation before passing to [Service].

This layer is strictly responsible for transport concerns (status codes, headers, JSON).
*/
package session

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/talentis/talentis/internal/platform/apperr"
	"github.com/talentis/talentis/internal/platform/constants"
	"github.com/talentis/talentis/internal/platform/middleware"
	requestutil "github.com/talentis/talentis/internal/platform/request"
	"github.com/talentis/talentis/internal/platform/respond"
	"github.com/talentis/talentis/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements credential-lifecycle HTTP endpoints.
//
// # Scope
//
// This handler manages everything related to the session lifecycle entry
// points (Registration, Verification, Login, Refresh, Password Recovery).
type Handler struct {
	sessionService *Service
	policy         Policy
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, policy Policy) *Handler {
	return &Handler{sessionService: service, policy: policy.normalized()}
}

// Routes returns a [chi.Router] configured with session-specific routes.
//
// # Endpoints
//   - POST /register : Creates a pending account and mails its OTP.
//   - POST /verify   : Verifies the OTP and activates the account.
//   - POST /login    : Authenticates and returns a JWT.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/verify", handler.verify)
	router.Post("/resend-otp", handler.resendOtp)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
		r.Post("/logout-all", handler.logoutAll)
		r.Post("/change-password", handler.changePassword)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resendOtpRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

/*
Register handles the creation of a new pending account.

POST /api/v1/auth/register

Description: Validates input, checks for identity conflicts, persists an
inactive account, and dispatches the verification code by email.

Request:
  - Body: registerRequest (Username, Email, Password, DisplayName)

Response:
  - 201: RegistrationTicket: Pending account and OTP expiry
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Username or Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, 3).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	ticket, err := handler.sessionService.Register(request.Context(), RegisterInput{
		Username:    input.Username,
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.DisplayName,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		FieldUser:        ticket.User,
		"otp_expires_at": ticket.OtpExpiresAt,
	})
}

/*
Verify activates a pending account with its OTP code.

POST /api/v1/auth/verify

Description: Checks the submitted code against the live record. Wrong
guesses count toward the guess budget; the correct code activates the
account.

Request:
  - Body: verifyRequest (Email, Code)

Response:
  - 200: User: Activated account
  - 400: MISMATCH: Wrong code
  - 404: NOT_FOUND: No pending code for this email
  - 409: ALREADY_USED: Code already consumed
  - 410: EXPIRED: Code past its TTL
  - 429: EXHAUSTED: Guess budget spent
*/
func (handler *Handler) verify(writer http.ResponseWriter, request *http.Request) {
	var input verifyRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldCode, input.Code)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.sessionService.CompleteRegistration(request.Context(), input.Email, input.Code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldUser:    user,
		FieldMessage: "Account verified successfully",
	})
}

/*
ResendOtp re-issues the verification code for a pending account.

POST /api/v1/auth/resend-otp

Description: Throttled per email; the previous code is superseded.

Request:
  - Body: resendOtpRequest (Email)

Response:
  - 200: Success: Code re-sent
  - 404: NOT_FOUND: No pending registration
  - 409: ErrConflict: Account already verified
  - 429: THROTTLED: Resend interval not yet elapsed
*/
func (handler *Handler) resendOtp(writer http.ResponseWriter, request *http.Request) {
	var input resendOtpRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	issuance, err := handler.sessionService.ResendOtp(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldMessage:     "Verification code sent",
		"otp_expires_at": issuance.ExpiresAt,
	})
}

/*
Login authenticates a user and establishes a session.

POST /api/v1/auth/login

Description: Verifies credentials under the lockout rule, generates JWT
access tokens, and injects a secure refresh token cookie into the response.

Request:
  - Body: loginRequest (Login, Password)

Response:
  - 200: Session: Access token and User profile
  - 401: INVALID_CREDENTIALS: Unknown identity or wrong password
  - 423: ACCOUNT_LOCKED: Too many recent failures
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldLogin, input.Login)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.sessionService.Login(request.Context(), LoginInput{
		Login:     input.Login,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: getClientIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session)

	respond.OK(writer, map[string]any{
		FieldAccessToken: session.AccessToken,
		FieldUser:        session.User,
	})
}

/*
Refresh issues a new access token using a valid refresh token.

POST /api/v1/auth/refresh

Description: Rotates the session by validating the refresh token cookie
and issuing a fresh access token and an updated refresh token.

Response:
  - 200: RefreshResponse: New access token credentials
  - 401: REVOKED: Token already rotated or revoked
  - 404: NOT_FOUND: Unknown token
  - 410: EXPIRED: Token past its TTL
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing refresh token in cookies"))
		return
	}

	session, err := handler.sessionService.RefreshSession(
		request.Context(),
		cookie.Value,
		request.UserAgent(),
		getClientIP(request),
	)

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session)

	respond.OK(writer, map[string]any{
		FieldAccessToken: session.AccessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   handler.policy.AccessTokenTTL / time.Second,
	})
}

/*
Logout terminates the current user session.

POST /api/v1/auth/logout

Description: Invalidates the refresh token (if present) and clears the
security cookies from the client. Idempotent.

Response:
  - 204: No Content: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)

	if err == nil && cookie != nil && cookie.Value != "" {
		_ = handler.sessionService.Logout(request.Context(), cookie.Value)
	}

	handler.clearRefreshCookie(writer)

	respond.NoContent(writer)
}

/*
LogoutAll terminates every session of the authenticated user.

POST /api/v1/auth/logout-all

Response:
  - 204: No Content: All sessions terminated
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.sessionService.LogoutEverywhere(request.Context(), claims.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearRefreshCookie(writer)

	respond.NoContent(writer)
}

/*
ForgotPassword initiates the password recovery flow.

POST /api/v1/auth/forgot-password

Description: Mails a single-use reset token to the address if it belongs
to an account. The response never reveals whether the account exists.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: Success: Generic security message
  - 400: ErrInvalidJSON: Invalid email format
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	_, err := handler.sessionService.RequestPasswordReset(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "If this email is registered, a reset token has been sent.",
	})
}

/*
ResetPassword completes the password recovery flow.

POST /api/v1/auth/reset-password

Description: Redeems the reset token exactly once and updates the user's
password. Every live session is revoked as a side effect.

Request:
  - Body: resetPasswordRequest (Token, Password)

Response:
  - 200: Success: Password updated
  - 404: NOT_FOUND: Unknown token
  - 409: ALREADY_USED: Token already redeemed
  - 410: EXPIRED: Token past its TTL
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldToken, input.Token).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.sessionService.CompletePasswordReset(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password updated successfully",
	})
}

/*
ChangePassword updates the authenticated user's password.

POST /api/v1/auth/change-password

Description: Verifies the current password and security context before
applying a new password. All other sessions are revoked.

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 200: Success: Password changed
  - 401: ErrUnauthorized: Session invalid or current password wrong
  - 400: ErrInvalidJSON: Weak password or validation failure
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing active session cookie"))
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, 8)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.sessionService.ChangePassword(
		request.Context(),
		claims.UserID,
		input.CurrentPassword,
		input.NewPassword,
		cookie.Value,
	)

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password changed successfully",
	})
}

// # Cookie & Transport Helpers

// setRefreshCookie injects the rotated refresh token as a secure cookie.
func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, session *LoginSession) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    session.RefreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  session.RefreshTokenExpiresAt,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie expires the refresh cookie on the client.
func (handler *Handler) clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// getClientIP tries to extract the real IP address of a user over proxy environments.
func getClientIP(request *http.Request) string {

	ip := request.Header.Get(constants.HeaderXRealIP)
	if ip == "" {
		ip = request.Header.Get(constants.HeaderXForwardedFor)
	}

	if ip == "" {
		ip = request.RemoteAddr
	}
	return ip
}
