package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	SchoolID string   `json:"school_id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens. ClassIDs
// carries the classes assigned to a teacher so class-scoping checks
// never need an extra round trip.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	SchoolID string   `json:"school_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
	ClassIDs []string `json:"class_ids,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the explicit identity threaded through service entry
// points in place of ambient auth state.
type Actor struct {
	UserID   string
	SchoolID string
	Role     UserRole
	ClassIDs []string
}

// OwnsClass reports whether the actor may operate on the given class.
// Head teachers and admins see every class in their school; teachers
// only the classes assigned to them.
func (a Actor) OwnsClass(classID string) bool {
	if a.Role.CanEditHeadFields() {
		return true
	}
	for _, id := range a.ClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// ActorFromClaims builds an Actor from validated JWT claims.
func ActorFromClaims(claims *JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{
		UserID:   claims.UserID,
		SchoolID: claims.SchoolID,
		Role:     claims.Role,
		ClassIDs: claims.ClassIDs,
	}
}
