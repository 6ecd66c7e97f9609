package dto

import (
	"time"

	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

type UserProfile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	Department    string    `json:"department"`
	ContactNumber string    `json:"contactNumber"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AuthResponse struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	return UserProfile{
		ID:            string(user.ID),
		Email:         user.Email,
		Name:          user.Name,
		Role:          string(user.Role),
		Department:    user.Department,
		ContactNumber: user.ContactNumber,
		CreatedAt:     user.CreatedAt,
	}
}

func MapUserProfiles(users []*domainuser.User) []UserProfile {
	out := make([]UserProfile, 0, len(users))
	for _, u := range users {
		out = append(out, MapUserProfile(u))
	}
	return out
}

func NewAuthResponse(user *domainuser.User, token string) AuthResponse {
	return AuthResponse{
		User:  MapUserProfile(user),
		Token: token,
	}
}
