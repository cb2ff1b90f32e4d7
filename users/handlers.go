// HTTP handlers for the user profile endpoints. All /users/me routes sit
// behind the auth middleware; the avatar-by-id route is public so that
// avatars can be embedded without a session.
package users

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/user/taskman-go/apperror"
	"github.com/user/taskman-go/auth"
)

// UserHandlers provides HTTP handlers for user profile management.
type UserHandlers struct {
	service *UserService
}

// NewUserHandlers creates new UserHandlers.
func NewUserHandlers(service *UserService) *UserHandlers {
	return &UserHandlers{service: service}
}

// HandleGetMe godoc
// @Summary Get current user's profile
// @Description Returns the serialized profile of the authenticated user.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} auth.User "Profile"
// @Failure 401 {object} apperror.ErrorResponse "Invalid or missing token"
// @Router /users/me [get]
func (h *UserHandlers) HandleGetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The middleware already loaded the user for this request; serializing
		// it through the User json tags is the sanctioned external shape.
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no authentication context", nil))
			return
		}
		auth.WriteJSON(w, http.StatusOK, user)
	}
}

// HandleUpdateMe godoc
// @Summary Update current user's profile
// @Description Applies a partial update to the authenticated user's profile. Only name, age, email, and password may be updated.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profileBody body users.UpdateProfileRequest true "Fields to update"
// @Success 200 {object} auth.User "Updated profile"
// @Failure 400 {object} apperror.ErrorResponse "Invalid updates"
// @Failure 401 {object} apperror.ErrorResponse "Invalid or missing token"
// @Failure 409 {object} apperror.ErrorResponse "Email already exists"
// @Router /users/me [patch]
func (h *UserHandlers) HandleUpdateMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no authentication context", nil))
			return
		}

		// DisallowUnknownFields enforces the updatable-field allow-list at the
		// decoder: any key outside {name, age, email, password} fails here.
		var req UpdateProfileRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewValidationError("invalid updates", err))
			return
		}
		defer r.Body.Close()

		updated, err := h.service.UpdateProfile(r.Context(), user.ID, req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		auth.WriteJSON(w, http.StatusOK, updated)
	}
}

// HandleDeleteMe godoc
// @Summary Delete current user's account
// @Description Deletes the authenticated user together with all their tasks and tokens, and returns the deleted profile.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} auth.User "Deleted profile"
// @Failure 401 {object} apperror.ErrorResponse "Invalid or missing token"
// @Router /users/me [delete]
func (h *UserHandlers) HandleDeleteMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no authentication context", nil))
			return
		}

		if err := h.service.DeleteAccount(r.Context(), user.ID); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		auth.WriteJSON(w, http.StatusOK, user)
	}
}

// allowedAvatarExtensions lists the accepted upload file extensions.
var allowedAvatarExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// HandleUploadAvatar godoc
// @Summary Upload avatar
// @Description Stores an avatar image for the authenticated user. Multipart field name "avatar", jpg/jpeg/png, at most 1MB.
// @Tags Users
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 "Avatar stored"
// @Failure 400 {object} apperror.ErrorResponse "Invalid upload"
// @Failure 401 {object} apperror.ErrorResponse "Invalid or missing token"
// @Router /users/me/avatar [post]
func (h *UserHandlers) HandleUploadAvatar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no authentication context", nil))
			return
		}

		// Cap the whole request body slightly above the avatar limit so
		// oversized uploads fail during parsing instead of buffering fully.
		r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize+4096)

		file, header, err := r.FormFile("avatar")
		if err != nil {
			auth.WriteError(w, r, apperror.NewValidationError("avatar file is required", err))
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedAvatarExtensions[ext] {
			auth.WriteError(w, r, apperror.NewValidationError("avatar must be a jpg, jpeg, or png file", nil))
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("failed to read avatar upload", err))
			return
		}

		if err := h.service.SetAvatar(r.Context(), user.ID, data); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		auth.WriteJSON(w, http.StatusOK, nil)
	}
}

// HandleDeleteAvatar godoc
// @Summary Delete avatar
// @Description Removes the authenticated user's avatar.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 "Avatar removed"
// @Failure 401 {object} apperror.ErrorResponse "Invalid or missing token"
// @Router /users/me/avatar [delete]
func (h *UserHandlers) HandleDeleteAvatar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no authentication context", nil))
			return
		}

		if err := h.service.ClearAvatar(r.Context(), user.ID); err != nil {
			auth.WriteError(w, r, err)
			return
		}

		auth.WriteJSON(w, http.StatusOK, nil)
	}
}

// HandleGetAvatar godoc
// @Summary Get a user's avatar
// @Description Serves the avatar image of any user by id.
// @Tags Users
// @Produce png
// @Param id path int true "User ID"
// @Success 200 {file} binary "Avatar image"
// @Failure 404 {object} apperror.ErrorResponse "User or avatar not found"
// @Router /users/{id}/avatar [get]
func (h *UserHandlers) HandleGetAvatar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			auth.WriteError(w, r, apperror.NewValidationError("invalid user id", nil))
			return
		}

		data, err := h.service.GetAvatar(r.Context(), userID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", http.DetectContentType(data))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
