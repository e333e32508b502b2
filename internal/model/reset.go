package model

import "time"

// PasswordReset is a single-use code that lets a user set a new password.
type PasswordReset struct {
	Code      string
	UserUUID  string
	ExpiresAt time.Time
	Enabled   bool
}

// Usable reports whether the code can still be redeemed at now.
func (r *PasswordReset) Usable(now time.Time) bool {
	return r != nil && r.Enabled && now.Before(r.ExpiresAt)
}
