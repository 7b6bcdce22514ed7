package types

import (
	"strings"
	"time"
)

const (
	// DefaultAvatar is served for users who never picked or uploaded one.
	DefaultAvatar = "/default-avatar.png"

	// DefaultReadingGoal is the yearly goal assigned at registration.
	DefaultReadingGoal = 50

	// MinPasswordLength applies to the raw password before hashing.
	MinPasswordLength = 6
)

// User represents an account in the system.
// It contains identity, profile, reading statistics and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name" validate:"required,max=50" label:"name"`

	// Email is the unique, lower-cased login address.
	Email string `json:"email" db:"email" validate:"required,email_pattern" label:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses and is only loaded
	// by credential lookups.
	PasswordHash string `json:"-" db:"password_hash"`

	// Avatar is a public path to the user's avatar image.
	Avatar string `json:"avatar" db:"avatar"`

	// Bio is a short free-form profile text.
	Bio string `json:"bio" db:"bio" validate:"max=500" label:"bio"`

	// ReadingGoal is the number of titles the user aims to read.
	ReadingGoal int `json:"readingGoal" db:"reading_goal" validate:"min=0" label:"reading goal"`

	// ReadingStats aggregates progress across the user's library.
	ReadingStats ReadingStats `json:"readingStats" db:"reading_stats"`

	// MangaList references locally cached manga records.
	MangaList []int64 `json:"mangaList" db:"manga_list"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ReadingStats holds the counters shown on the profile page.
type ReadingStats struct {
	TotalRead int `json:"totalRead" db:"total_read" validate:"min=0" label:"total read"`
	Completed int `json:"completed" db:"completed" validate:"min=0" label:"completed manga count"`
}

// Normalize trims free-text fields and lower-cases the email.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = NormalizeEmail(u.Email)
}

// ApplyDefaults fills fields a new account starts with.
func (u *User) ApplyDefaults() {
	if strings.TrimSpace(u.Avatar) == "" {
		u.Avatar = DefaultAvatar
	}
	if u.ReadingGoal == 0 {
		u.ReadingGoal = DefaultReadingGoal
	}
	if u.MangaList == nil {
		u.MangaList = []int64{}
	}
}

// Validate checks the schema constraints of the record.
func (u User) Validate() error {
	return validateStruct(u)
}

// Validate checks the counters are non-negative.
func (s ReadingStats) Validate() error {
	return validateStruct(s)
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
