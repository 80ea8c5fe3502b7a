/*
Package session handles student registration and the logged-in user.

PURPOSE:
  The checkout engine only needs "who is logged in". This package owns the
  user list and the current-user slot behind a small Store interface.

SECURITY NOTE:
  Passwords are stored and compared in plaintext. This mirrors the portal's
  local-only storage model; there is no credential protection here.

USAGE:
  mgr := session.NewManager(store)
  err := mgr.Register(ctx, session.User{...})
  user, err := mgr.Login(ctx, "EN2024001", "secret1")
  current, err := mgr.CurrentUser(ctx) // nil when logged out
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUserExists         = errors.New("user already registered")
	ErrInvalidCredentials = errors.New("invalid enrollment number or password")
)

// User is a registered student. IDCard holds the uploaded card as an
// embedded image string.
type User struct {
	Name             string `json:"name" validate:"required"`
	EnrollmentNumber string `json:"enrollmentNumber" validate:"required"`
	Department       string `json:"department" validate:"required"`
	Semester         string `json:"semester" validate:"required"`
	Section          string `json:"section" validate:"required"`
	Password         string `json:"password" validate:"required,min=6"`
	IDCard           string `json:"idCard,omitempty" validate:"required"`
}

// Store persists users and the current-user slot.
type Store interface {
	LoadUsers(ctx context.Context) ([]User, error)
	SaveUsers(ctx context.Context, users []User) error
	LoadCurrentUser(ctx context.Context) (*User, error)
	SaveCurrentUser(ctx context.Context, user *User) error
	ClearCurrentUser(ctx context.Context) error
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	sort.Strings(parts)
	return "invalid user: " + strings.Join(parts, "; ")
}

type Manager struct {
	store    Store
	validate *validator.Validate
}

func NewManager(store Store) *Manager {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return jsonName(f.Tag.Get("json"))
	})
	return &Manager{store: store, validate: v}
}

// Register adds a user. Enrollment numbers are unique.
func (m *Manager) Register(ctx context.Context, u User) error {
	u.EnrollmentNumber = strings.TrimSpace(u.EnrollmentNumber)
	if err := m.validateUser(u); err != nil {
		return err
	}

	users, err := m.store.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	for _, existing := range users {
		if existing.EnrollmentNumber == u.EnrollmentNumber {
			return ErrUserExists
		}
	}

	if err := m.store.SaveUsers(ctx, append(users, u)); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

// Login checks credentials and makes the user current.
func (m *Manager) Login(ctx context.Context, enrollmentNumber, password string) (*User, error) {
	users, err := m.store.LoadUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	enrollmentNumber = strings.TrimSpace(enrollmentNumber)
	for i := range users {
		u := users[i]
		if u.EnrollmentNumber == enrollmentNumber && u.Password == password {
			if err := m.store.SaveCurrentUser(ctx, &u); err != nil {
				return nil, fmt.Errorf("save current user: %w", err)
			}
			return &u, nil
		}
	}
	return nil, ErrInvalidCredentials
}

func (m *Manager) Logout(ctx context.Context) error {
	return m.store.ClearCurrentUser(ctx)
}

// CurrentUser returns the logged-in user, or nil.
func (m *Manager) CurrentUser(ctx context.Context) (*User, error) {
	return m.store.LoadCurrentUser(ctx)
}

func (m *Manager) validateUser(u User) error {
	err := m.validate.Struct(u)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "min":
			fields[fe.Field()] = "must be at least " + fe.Param() + " characters"
		default:
			fields[fe.Field()] = "is invalid"
		}
	}
	return &ValidationError{Fields: fields}
}

func jsonName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}
