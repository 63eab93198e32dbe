// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

/*
HTTP delivery layer for profile, session, and admin account management.

It implements the RESTful interface for users to interact with their
account data and active sessions, and for administrators to operate on
the account base.

# Security

All endpoints in this package require an active authentication session
provided by the RequireAuth middleware; the /admin subtree additionally
requires the admin role.
*/
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/talentis/talentis/internal/platform/constants"
	"github.com/talentis/talentis/internal/platform/middleware"
	requestutil "github.com/talentis/talentis/internal/platform/request"
	"github.com/talentis/talentis/internal/platform/respond"
	"github.com/talentis/talentis/internal/platform/sec"
	"github.com/talentis/talentis/internal/platform/validate"
	"github.com/talentis/talentis/pkg/convert"
	"github.com/talentis/talentis/pkg/pagination"
	"github.com/talentis/talentis/pkg/pointer"
	"github.com/talentis/talentis/pkg/query"
)

// Handler implements the HTTP layer for account management.
type Handler struct {
	accountService *Service
	codec          *sec.TokenCodec
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service, codec *sec.TokenCodec) *Handler {
	return &Handler{accountService: service, codec: codec}
}

// Routes returns a [chi.Router] configured with the account domain's endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequireAuth)

	// Account Management
	router.Get("/me", handler.getMe)
	router.Patch("/me", handler.updateMe)

	// Session Security
	router.Get("/me/sessions", handler.listSessions)
	router.Delete("/me/sessions", handler.revokeOtherSessions)
	router.Delete("/me/sessions/{id}", handler.revokeSession)

	// Administration
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(sec.RoleAdmin))
		r.Get("/admin/accounts", handler.listAccounts)
		r.Post("/admin/accounts/{id}/unlock", handler.unlockAccount)
		r.Post("/admin/accounts/{id}/deactivate", handler.deactivateAccount)
	})

	return router
}

// # User Profile Endpoints

/*
GET /api/v1/account/me.

Description: Retrieves the full private profile of the authenticated user.

Response:
  - 200: User: Fully hydrated user profile
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// updateMeRequest defines the expected JSON payload for profile updates.
type updateMeRequest struct {
	DisplayName *string `json:"display_name"`
}

/*
PATCH /api/v1/account/me.

Description: Applies partial updates to the authenticated user's profile.

Request:
  - body: updateMeRequest (Partial JSON)

Response:
  - 200: User: The updated profile
  - 400: ErrInvalidJSON/Validation: Invalid input data
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateMeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	if input.DisplayName != nil {
		v.MinLen("display_name", *input.DisplayName, 2).MaxLen("display_name", *input.DisplayName, 50)
	}

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.UpdateProfile(request.Context(), userID, UpdateProfileInput{
		DisplayName: input.DisplayName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// # Session Security Endpoints

/*
GET /api/v1/account/me/sessions.

Description: Enumerates all devices currently authenticated into the
user's account, flagging the caller's own session.

Response:
  - 200: []SessionInfo: List of active device sessions
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.accountService.ListSessions(request.Context(), userID, handler.currentTokenHash(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

/*
DELETE /api/v1/account/me/sessions/{id}.

Description: Forces a sign-out on a specific device identified by its session ID.

Request:
  - id: string (Session UUID)

Response:
  - 204: No Content: Session terminated successfully
  - 401: ErrUnauthorized: Authentication required
  - 404: ErrNotFound: Session unknown or not owned by the caller
*/
func (handler *Handler) revokeSession(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessionID := chi.URLParam(request, "id")

	if err := handler.accountService.RevokeSession(request.Context(), userID, sessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
DELETE /api/v1/account/me/sessions.

Description: Forces a sign-out on all devices except the one making the request.

Response:
  - 204: No Content: All other sessions terminated
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) revokeOtherSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Resolve the caller's own session so it survives the sweep.
	currentID := ""
	sessions, err := handler.accountService.ListSessions(request.Context(), userID, handler.currentTokenHash(request))
	if err == nil {
		for _, info := range sessions {
			if info.IsCurrent {
				currentID = info.ID
				break
			}
		}
	}

	if err := handler.accountService.RevokeOtherSessions(request.Context(), userID, currentID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Administration Endpoints

/*
GET /api/v1/account/admin/accounts.

Description: Lists accounts with role, activity, and search filters.

Request:
  - roles: string (comma-separated role names)
  - is_active: string ("true"/"false"; omit for both)
  - search: string (matches username, email, display name)
  - page, limit: pagination

Response:
  - 200: AccountPage: Accounts plus pagination metadata
  - 403: ErrForbidden: Admin role required
*/
func (handler *Handler) listAccounts(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	filter := ListFilter{
		Roles:  query.StringSlice(request.URL.Query().Get("roles")),
		Search: request.URL.Query().Get("search"),
	}
	if raw := request.URL.Query().Get("is_active"); raw != "" {
		filter.IsActive = pointer.To(convert.ToBool(raw))
	}

	page, err := handler.accountService.ListAccounts(request.Context(), filter, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		constants.FieldItems: page.Accounts,
		constants.FieldMeta:  page.Meta,
	})
}

/*
POST /api/v1/account/admin/accounts/{id}/unlock.

Description: Clears the brute-force lock on an account ahead of its window.

Response:
  - 204: No Content: Lock cleared
  - 403: ErrForbidden: Admin role required
  - 404: ErrNotFound: Unknown account
*/
func (handler *Handler) unlockAccount(writer http.ResponseWriter, request *http.Request) {
	userID := chi.URLParam(request, "id")

	if err := handler.accountService.UnlockAccount(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/account/admin/accounts/{id}/deactivate.

Description: Disables an account and revokes every active session.

Response:
  - 204: No Content: Account deactivated
  - 403: ErrForbidden: Admin role required
  - 404: ErrNotFound: Unknown account
*/
func (handler *Handler) deactivateAccount(writer http.ResponseWriter, request *http.Request) {
	userID := chi.URLParam(request, "id")

	if err := handler.accountService.DeactivateAccount(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// currentTokenHash hashes the caller's refresh cookie for session matching.
func (handler *Handler) currentTokenHash(request *http.Request) string {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return handler.codec.Hash(cookie.Value)
}
