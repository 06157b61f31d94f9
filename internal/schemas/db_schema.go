// Package schemas defines the data structures
package schemas

import (
	"time"

	"github.com/google/uuid"
)

// User represents the data model for a user in the system.
type User struct {
	ID        *uuid.UUID `json:"id"`         // Unique identifier for the user.
	KakaoID   string     `json:"kakao_id"`   // Identifier assigned by the Kakao identity provider.
	Nickname  string     `json:"nickname"`   // Nickname of the user.
	CreatedAt *time.Time `json:"created_at"` // Timestamp when the user was created.
	UpdatedAt *time.Time `json:"updated_at"` // Timestamp when the user was last updated.
	LastLogin *time.Time `json:"last_login"` // Timestamp of the most recent login.
	DeletedAt *time.Time `json:"deleted_at"` // Timestamp of the soft deletion, nil while the account is live.
}

// ProviderToken represents a Kakao access token held for a user. Rows are
// append-only; the current token is the newest row without an expiry.
type ProviderToken struct {
	ID           *uuid.UUID `json:"id"`            // Unique identifier for the token row.
	UserID       *uuid.UUID `json:"user_id"`       // Identifier of the owning user.
	Token        string     `json:"token"`         // Opaque provider access token.
	RefreshToken string     `json:"refresh_token"` // Provider refresh token, empty when the provider issued none.
	CreatedAt    *time.Time `json:"created_at"`    // Timestamp when the token was stored.
	ExpiresAt    *time.Time `json:"expires_at"`    // Timestamp of revocation, nil while current.
}

// Diary represents a finalized diary entry. At most one non-deleted diary
// exists per user and date.
type Diary struct {
	ID        *uuid.UUID `json:"id"`         // Unique identifier for the diary.
	UserID    *uuid.UUID `json:"user_id"`    // Identifier of the owning user.
	Date      *time.Time `json:"date"`       // Calendar date the entry belongs to.
	Nickname  string     `json:"nickname"`   // Nickname snapshot at write time.
	Mood      Mood       `json:"mood"`       // Mood code.
	Weather   Weather    `json:"weather"`    // Weather code.
	Title     string     `json:"title"`      // Title of the entry.
	Story     string     `json:"story"`      // Story text.
	Liked     bool       `json:"like"`       // Like flag.
	IsDeleted bool       `json:"is_deleted"` // Soft-delete flag.
	CreatedAt *time.Time `json:"created_at"` // Timestamp when the diary was created.
	UpdatedAt *time.Time `json:"updated_at"` // Timestamp when the diary was last updated.
}

// TempDiary represents an in-progress draft. At most one active (status=false)
// draft exists per user and date.
type TempDiary struct {
	ID        *uuid.UUID `json:"id"`         // Unique identifier for the draft.
	DiaryID   *uuid.UUID `json:"diary_id"`   // Back-reference to the diary being edited, nil for new entries.
	UserID    *uuid.UUID `json:"user_id"`    // Identifier of the owning user.
	Date      *time.Time `json:"date"`       // Calendar date the draft belongs to.
	Nickname  string     `json:"nickname"`   // Nickname snapshot at draft creation.
	Mood      *Mood      `json:"mood"`       // Mood code, nil while unset.
	Weather   *Weather   `json:"weather"`    // Weather code, nil while unset.
	Title     *string    `json:"title"`      // Title, nil while unset.
	Story     *string    `json:"story"`      // Story text, nil while unset.
	Status    bool       `json:"status"`     // False while the draft is active, true once finalized or abandoned.
	CreatedAt *time.Time `json:"created_at"` // Timestamp when the draft was created.
	UpdatedAt *time.Time `json:"updated_at"` // Timestamp when the draft was last updated.
}

// Setting represents per-user preference flags.
type Setting struct {
	ID           *uuid.UUID `json:"id"`           // Unique identifier for the settings row.
	UserID       *uuid.UUID `json:"user_id"`      // Identifier of the owning user.
	DarkMode     bool       `json:"dark_mode"`    // Dark-mode preference.
	Notification bool       `json:"notification"` // Notification preference.
	CreatedAt    *time.Time `json:"created_at"`   // Timestamp when the row was created.
	UpdatedAt    *time.Time `json:"updated_at"`   // Timestamp when the row was last updated.
}
