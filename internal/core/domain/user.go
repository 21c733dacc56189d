package domain

import "time"

// User models an account that can sign in and be assigned work.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         Role      `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// WithoutCredentials returns a copy safe to hand to any caller.
func (u User) WithoutCredentials() User {
	u.PasswordHash = ""
	return u
}

// UserPatch lists the fields an update may change. Nil means unchanged.
type UserPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *Role
	UpdatedAt    time.Time
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.PasswordHash == nil && p.Role == nil
}

// Applied reports whether u reflects every field of the patch.
func (p UserPatch) Applied(u *User) bool {
	if u == nil {
		return false
	}
	if p.Name != nil && u.Name != *p.Name {
		return false
	}
	if p.Email != nil && u.Email != *p.Email {
		return false
	}
	if p.PasswordHash != nil && u.PasswordHash != *p.PasswordHash {
		return false
	}
	if p.Role != nil && u.Role != *p.Role {
		return false
	}
	return true
}
