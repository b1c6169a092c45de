package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is created on first OAuth sign-in and completed during onboarding.
// Username stays NULL until onboarding so the unique index does not collide.
type User struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	Email        string                      `gorm:"uniqueIndex;size:255;not null" json:"email,omitempty"`
	Name         string                      `gorm:"size:100" json:"name"`
	Username     *string                     `gorm:"uniqueIndex;size:50" json:"username"`
	Image        string                      `gorm:"size:500" json:"image"`
	GoogleID     *string                     `gorm:"uniqueIndex;size:100" json:"-"`
	Bio          string                      `gorm:"size:500" json:"bio"`
	Skills       datatypes.JSONSlice[string] `json:"skills"`
	Interests    datatypes.JSONSlice[string] `json:"interests"`
	GithubURL    string                      `gorm:"size:500" json:"githubUrl"`
	LinkedinURL  string                      `gorm:"size:500" json:"linkedinUrl"`
	PortfolioURL string                      `gorm:"size:500" json:"portfolioUrl"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// HandleOrEmpty returns the username, or an empty string before onboarding.
func (u *User) HandleOrEmpty() string {
	if u.Username == nil {
		return ""
	}
	return *u.Username
}

// Onboarded reports whether the user has picked a username.
func (u *User) Onboarded() bool {
	return u.Username != nil && *u.Username != ""
}

// userSummaryColumns is the public projection of a user embedded in project payloads.
var userSummaryColumns = []string{
	"id", "name", "username", "image", "bio", "skills", "github_url", "linkedin_url",
}

// SelectUserSummary limits a preloaded user association to its public columns.
func SelectUserSummary(db *gorm.DB) *gorm.DB {
	return db.Select(userSummaryColumns)
}
