// Package users implements account signup, login, and profile lookup.
package users

import (
	"context"
	"errors"
	"net/mail"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatherhall/events-api/internal/domain"
	clockport "github.com/gatherhall/events-api/internal/ports/out/clock"
	"github.com/gatherhall/events-api/internal/ports/out/userrepo"
)

const minPasswordLength = 8

type SignupInput struct {
	Email       string
	DisplayName string
	Password    string
}

type Service struct {
	repo userrepo.Repository
	clk  clockport.Clock

	newUserID func() domain.UserID
}

func NewService(repo userrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		newUserID: func() domain.UserID {
			return domain.UserID(uuid.NewString())
		},
	}
}

// SetNewUserIDForTest overrides user ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewUserIDForTest(fn func() domain.UserID) {
	if fn != nil {
		s.newUserID = fn
	}
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return domain.User{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid email", Details: map[string]any{"email": "must be a valid email address"}}
	}
	displayName := domain.NormalizeText(in.DisplayName)
	if displayName == "" {
		return domain.User{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid displayName", Details: map[string]any{"displayName": "must be non-empty"}}
	}
	if len(in.Password) < minPasswordLength {
		return domain.User{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid password", Details: map[string]any{"password": "must be at least 8 characters"}}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	now := s.clk.Now().UTC()
	u := userrepo.User{
		ID:           s.newUserID(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return domain.User{}, &Error{Status: 409, Code: "EMAIL_TAKEN", Message: "email already in use"}
		}
		return domain.User{}, err
	}
	return toDomain(u), nil
}

// Login checks credentials and returns the account. Unknown email and wrong
// password produce the same error so the response does not reveal which
// emails have accounts.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, error) {
	invalid := &Error{Status: 401, Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}

	u, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, invalid
		}
		return domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, invalid
	}
	return toDomain(u), nil
}

func (s *Service) GetMyProfile(ctx context.Context, id domain.UserID) (domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, &Error{Status: 404, Code: "USER_NOT_FOUND", Message: "no account exists for the authenticated subject"}
		}
		return domain.User{}, err
	}
	return toDomain(u), nil
}

func toDomain(u userrepo.User) domain.User {
	return domain.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
