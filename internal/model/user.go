package model

import (
	"time"

	"github.com/google/uuid"
)

// User roles
const (
	RoleSeeker   = "seeker"
	RoleEmployer = "employer"
	RoleAdmin    = "admin"
)

// User is the account record every role shares. Profiles hang off it by user id.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Username  string    `gorm:"type:text;uniqueIndex" json:"username"`
	Email     *string   `gorm:"type:text" json:"email"`
	GoogleID  *string   `gorm:"type:text;uniqueIndex" json:"-"`
	Password  string    `gorm:"type:text" json:"-"`
	Role      string    `gorm:"type:text;not null;check:role IN ('seeker', 'employer', 'admin')" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GoogleUserInfo is the subset of the OpenID userinfo payload used for login.
type GoogleUserInfo struct {
	GID       string `json:"id"`
	FirstName string `json:"given_name"`
	LastName  string `json:"family_name"`
	Email     string `json:"email"`
}

// FullName joins the given and family names.
func (g GoogleUserInfo) FullName() string {
	switch {
	case g.FirstName == "":
		return g.LastName
	case g.LastName == "":
		return g.FirstName
	}
	return g.FirstName + " " + g.LastName
}
