package user

import (
	"time"
)

// User represents a user entity in the system.
type User struct {
	ID           string  `gorm:"primaryKey;type:text"`
	Email        string  `gorm:"uniqueIndex;not null;type:text"`
	Name         string  `gorm:"not null;type:text"`
	PasswordHash string  `gorm:"not null;type:text"`
	Image        *string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Profile returns the outward projection of the user. The password hash is
// never part of it.
func (u *User) Profile() *Profile {
	return &Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Image:     u.Image,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Profile is the user data exposed to clients and attached to authenticated requests.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// RefreshToken is one ledger row: a salted hash of a refresh token issued to a
// user session. The raw token is never stored.
type RefreshToken struct {
	ID        string `gorm:"primaryKey;type:text"`
	UserID    string `gorm:"index;not null;type:text"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	TokenHash string `gorm:"not null;type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

// TableName returns the table name for the RefreshToken entity.
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is the result of a successful sign-in.
type Session struct {
	User   *Profile  `json:"user"`
	Tokens TokenPair `json:"tokens"`
}
