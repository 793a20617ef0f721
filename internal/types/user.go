package types

import "time"

// User is a portal account. Users created by the Identity Resolver start
// inactive with no usable password until an admin invites them.
type User struct {
	ID                      string    `json:"id"`
	TenantID                string    `json:"tenant_id"`
	Username                string    `json:"username"`
	Email                   string    `json:"email"`
	FirstName               string    `json:"first_name"`
	LastName                string    `json:"last_name"`
	IsActive                bool      `json:"is_active"`
	IsPlatformAdmin         bool      `json:"is_platform_admin"`
	IsManager               bool      `json:"is_manager"`
	ProfilePicture          string    `json:"profile_picture,omitempty"`
	CustomTitle             string    `json:"custom_title,omitempty"`
	CompetitiveTitle        string    `json:"competitive_title,omitempty"`
	CompetitiveTitleReason  string    `json:"competitive_title_reason,omitempty"`
	HasUsablePassword       bool      `json:"-"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// FullName joins first and last name the same way the Identity Resolver
// splits them back apart when matching on name.
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return ""
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ClearCompetitiveTitle resets the two aggregator-owned fields. Called at
// the start of every aggregation run before titles are re-awarded.
func (u *User) ClearCompetitiveTitle() {
	u.CompetitiveTitle = ""
	u.CompetitiveTitleReason = ""
}

// ExternalIdentity maps a vendor's stable user id to a platform User.
type ExternalIdentity struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	Provider       SourceType `json:"provider"`
	ExternalUserID string    `json:"external_user_id"`
	UserID         string    `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}
