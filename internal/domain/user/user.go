package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrDepartmentRequired  = errors.New("user: department is required")
	ErrContactRequired     = errors.New("user: contact number is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID            ID
	Email         string
	Name          string
	PasswordHash  string
	Role          Role
	Department    string
	ContactNumber string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
	List(ctx context.Context) ([]*User, error)
}

// Profile is the public view of a user shown to other participants.
type Profile struct {
	ID    ID
	Name  string
	Email string
}

// Directory resolves public profiles for a set of users. Unknown ids are omitted.
type Directory interface {
	Profiles(ctx context.Context, ids []ID) (map[ID]Profile, error)
}

type CreateParams struct {
	ID            ID
	Email         string
	Name          string
	PasswordHash  string
	Role          Role
	Department    string
	ContactNumber string
	CreatedAt     time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	department := strings.TrimSpace(params.Department)
	if department == "" {
		return nil, ErrDepartmentRequired
	}
	contact := strings.TrimSpace(params.ContactNumber)
	if contact == "" {
		return nil, ErrContactRequired
	}

	role := RoleStudent
	if params.Role != "" {
		parsed, err := ParseRole(string(params.Role))
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &User{
		ID:            ID(id),
		Email:         email,
		Name:          name,
		PasswordHash:  params.PasswordHash,
		Role:          role,
		Department:    department,
		ContactNumber: contact,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (u *User) SetPasswordHash(hash string, now time.Time) error {
	if strings.TrimSpace(hash) == "" {
		return ErrPasswordHashMissing
	}
	u.PasswordHash = hash
	u.touch(now)
	return nil
}

func (u *User) AssignRole(role Role, now time.Time) error {
	parsed, err := ParseRole(string(role))
	if err != nil {
		return err
	}
	u.Role = parsed
	u.touch(now)
	return nil
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

// ParseRole accepts any casing and surrounding whitespace.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleStaff:
		return RoleStaff, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
