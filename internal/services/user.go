package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/mangashelf/apiserver/internal/auth"
	"github.com/mangashelf/apiserver/internal/events"
	"github.com/mangashelf/apiserver/internal/store"
	"github.com/mangashelf/apiserver/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MaxAvatarSize is the largest accepted avatar upload.
const MaxAvatarSize = 5 << 20

const (
	msgInvalidAvatarType = "Invalid file type. Please upload JPEG, PNG, or GIF."
	msgAvatarTooLarge    = "File is too large. Maximum size is 5MB."
)

const (
	avatarURLPrefix = "/uploads/"
	avatarKeyDir    = "avatars"
)

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// PresetAvatars are the bundled avatars a user may pick instead of uploading.
var PresetAvatars = func() []string {
	presets := make([]string, 10)
	for i := range presets {
		presets[i] = fmt.Sprintf("/uploads/preset-avatars/avatar_%d.png", i+1)
	}
	return presets
}()

// IsPresetAvatar reports whether p is one of PresetAvatars.
func IsPresetAvatar(p string) bool {
	for _, preset := range PresetAvatars {
		if p == preset {
			return true
		}
	}
	return false
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, user types.User) (types.User, error)
}

// AvatarStore persists uploaded avatar files.
type AvatarStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher sends best-effort activity events.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, userID int, payload any)
}

// UserService encapsulates registration and profile use-cases.
type UserService struct {
	repo      UserRepository
	avatars   AvatarStore
	publisher EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

func NewUserService(repo UserRepository, avatars AvatarStore, publisher EventPublisher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		repo:      repo,
		avatars:   avatars,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. A taken email yields ErrEmailTaken.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	user := types.User{Name: in.Name, Email: in.Email}
	user.Normalize()
	user.ApplyDefaults()
	if err := user.Validate(); err != nil {
		return types.User{}, err
	}
	if in.Password == "" {
		return types.User{}, &types.ValidationError{Field: "password", Message: "Please provide a password"}
	}
	if len(in.Password) < types.MinPasswordLength {
		return types.User{}, &types.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters", types.MinPasswordLength),
		}
	}

	if _, err := s.repo.GetByEmail(ctx, user.Email); err == nil {
		return types.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hashed)

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrEmailTaken
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	created.PasswordHash = ""
	return created, nil
}

// Profile is the public projection of a user.
type Profile struct {
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Avatar       string             `json:"avatar"`
	Bio          string             `json:"bio"`
	ReadingGoal  int                `json:"readingGoal"`
	ReadingStats types.ReadingStats `json:"readingStats"`
}

// NewProfile projects user with display defaults applied.
func NewProfile(user types.User) Profile {
	p := Profile{
		Name:         user.Name,
		Email:        user.Email,
		Avatar:       user.Avatar,
		Bio:          user.Bio,
		ReadingGoal:  user.ReadingGoal,
		ReadingStats: user.ReadingStats,
	}
	if strings.TrimSpace(p.Avatar) == "" {
		p.Avatar = types.DefaultAvatar
	}
	if p.ReadingGoal == 0 {
		p.ReadingGoal = types.DefaultReadingGoal
	}
	return p
}

// Profile loads the session holder's profile.
func (s *UserService) Profile(ctx context.Context, current *auth.CurrentUser) (Profile, error) {
	if current == nil {
		return Profile{}, ErrUnauthorized
	}
	user, err := s.repo.GetByID(ctx, current.ID)
	if err != nil {
		return Profile{}, err
	}
	return NewProfile(user), nil
}

// AvatarUpload is a file submitted with a profile update.
type AvatarUpload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// ProfileUpdate holds the submitted form. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name         *string
	Bio          *string
	ReadingGoal  int
	AvatarPreset string
	Avatar       *AvatarUpload
}

// UpdateProfile applies update to the session holder. An uploaded avatar is
// checked before anything is written.
func (s *UserService) UpdateProfile(ctx context.Context, current *auth.CurrentUser, update ProfileUpdate) (Profile, error) {
	if current == nil {
		return Profile{}, ErrUnauthorized
	}

	var ext string
	if update.Avatar != nil {
		var ok bool
		ext, ok = avatarExtensions[strings.ToLower(strings.TrimSpace(update.Avatar.ContentType))]
		if !ok {
			return Profile{}, invalidInput(msgInvalidAvatarType)
		}
		if update.Avatar.Size > MaxAvatarSize {
			return Profile{}, invalidInput(msgAvatarTooLarge)
		}
	}

	user, err := s.repo.GetByID(ctx, current.ID)
	if err != nil {
		return Profile{}, err
	}
	previousAvatar := user.Avatar
	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	user.ReadingGoal = update.ReadingGoal
	if err := user.Validate(); err != nil {
		return Profile{}, err
	}

	switch {
	case update.Avatar != nil:
		key := AvatarKey(user.ID, s.now(), ext)
		body := io.LimitReader(update.Avatar.Body, MaxAvatarSize+1)
		if err := s.avatars.Put(ctx, key, body, update.Avatar.Size, update.Avatar.ContentType); err != nil {
			return Profile{}, fmt.Errorf("store avatar: %w", err)
		}
		user.Avatar = avatarURLPrefix + key
	case IsPresetAvatar(update.AvatarPreset):
		user.Avatar = update.AvatarPreset
	}

	updated, err := s.repo.UpdateProfile(ctx, user)
	if err != nil {
		return Profile{}, err
	}
	if previousAvatar != updated.Avatar {
		s.removeUploadedAvatar(ctx, previousAvatar)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.TypeProfileUpdated, updated.ID, events.ProfileUpdated{
			Name:        updated.Name,
			Avatar:      updated.Avatar,
			ReadingGoal: updated.ReadingGoal,
		})
	}
	return NewProfile(updated), nil
}

// removeUploadedAvatar deletes a replaced upload. Presets and the default
// avatar are never stored objects.
func (s *UserService) removeUploadedAvatar(ctx context.Context, avatarURL string) {
	key, ok := strings.CutPrefix(avatarURL, avatarURLPrefix)
	if !ok || !strings.HasPrefix(key, avatarKeyDir+"/") {
		return
	}
	if err := s.avatars.Delete(ctx, key); err != nil {
		s.log.Warn("remove replaced avatar", zap.String("key", key), zap.Error(err))
	}
}

// AvatarKey is the storage key of an uploaded avatar.
func AvatarKey(userID int, at time.Time, ext string) string {
	return path.Join(avatarKeyDir, fmt.Sprintf("avatar-%d-%d.%s", userID, at.UnixMilli(), ext))
}
