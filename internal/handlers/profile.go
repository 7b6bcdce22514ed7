package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mangashelf/apiserver/internal/services"
	"github.com/mangashelf/apiserver/internal/store"
	"github.com/mangashelf/apiserver/types"
	"go.uber.org/zap"
)

const (
	maxProfileFormMemory = 1 << 20
	// maxProfileBody leaves room for the text fields around a full-size avatar.
	maxProfileBody = services.MaxAvatarSize + 1<<20

	formFieldName        = "name"
	formFieldBio         = "bio"
	formFieldReadingGoal = "readingGoal"
	formFieldAvatar      = "avatar"
)

// ProfileHandler serves the signed-in user's profile.
type ProfileHandler struct {
	userService *services.UserService
	log         *zap.Logger
}

func NewProfileHandler(userService *services.UserService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{userService: userService, log: log}
}

// ProfileRouter registers /profile routes. All of them need a session.
func ProfileRouter(r chi.Router, handler *ProfileHandler) {
	r.Use(RequireAuth)
	r.Get("/", handler.GetProfile)
	r.Post("/", handler.UpdateProfile)
	r.Post("/update", handler.UpdateProfile)
}

type ProfileResponse struct {
	Message string           `json:"message,omitempty"`
	User    services.Profile `json:"user"`
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.Profile(r.Context(), currentUser(r.Context()))
	if err != nil {
		h.writeProfileError(w, err, "Error fetching profile")
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{User: profile})
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	update, cleanup, err := parseProfileForm(w, r)
	defer cleanup()
	if err != nil {
		h.writeProfileError(w, err, "Error updating profile")
		return
	}

	profile, err := h.userService.UpdateProfile(r.Context(), currentUser(r.Context()), update)
	if err != nil {
		h.writeProfileError(w, err, "Error updating profile")
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Message: "Profile updated successfully", User: profile})
}

func (h *ProfileHandler) writeProfileError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeServiceError(w, h.log, err, fallback)
}

// parseProfileForm reads the multipart (or urlencoded) update form. The
// returned cleanup closes the avatar file and removes temp files.
func parseProfileForm(w http.ResponseWriter, r *http.Request) (services.ProfileUpdate, func(), error) {
	cleanup := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, maxProfileBody)

	err := r.ParseMultipartForm(maxProfileFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.ProfileUpdate{}, cleanup, &services.InputError{Message: "File is too large. Maximum size is 5MB."}
		}
		return services.ProfileUpdate{}, cleanup, &services.InputError{Message: "Invalid form data"}
	}

	update := services.ProfileUpdate{
		Name:        formField(r, formFieldName),
		Bio:         formField(r, formFieldBio),
		ReadingGoal: types.DefaultReadingGoal,
	}
	if raw := formField(r, formFieldReadingGoal); raw != nil {
		if goal, err := strconv.Atoi(strings.TrimSpace(*raw)); err == nil && goal != 0 {
			update.ReadingGoal = goal
		}
	}

	if r.MultipartForm != nil {
		if files := r.MultipartForm.File[formFieldAvatar]; len(files) > 0 {
			upload, closeFile, err := openAvatar(files[0])
			if err != nil {
				return services.ProfileUpdate{}, cleanup, err
			}
			update.Avatar = upload
			cleanup = func() {
				closeFile()
				_ = r.MultipartForm.RemoveAll()
			}
			return update, cleanup, nil
		}
		cleanup = func() { _ = r.MultipartForm.RemoveAll() }
	}
	if preset := formField(r, formFieldAvatar); preset != nil {
		update.AvatarPreset = strings.TrimSpace(*preset)
	}
	return update, cleanup, nil
}

func openAvatar(header *multipart.FileHeader) (*services.AvatarUpload, func(), error) {
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &services.AvatarUpload{
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, func() { _ = file.Close() }, nil
}

// formField returns nil when the field was not submitted at all.
func formField(r *http.Request, key string) *string {
	if r.MultipartForm != nil {
		if values, ok := r.MultipartForm.Value[key]; ok && len(values) > 0 {
			return &values[0]
		}
		return nil
	}
	if values, ok := r.PostForm[key]; ok && len(values) > 0 {
		return &values[0]
	}
	return nil
}
