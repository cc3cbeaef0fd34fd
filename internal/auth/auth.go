// Package auth covers account registration, password login and resolving a
// request's session cookie to a user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/inkwell-blog/inkwell/internal/model"
	"github.com/inkwell-blog/inkwell/internal/store"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrUnknownUser   = errors.New("unknown user")
	ErrWrongPassword = errors.New("wrong password")
)

// bcrypt ignores input past this length, so longer passwords are refused.
const maxPasswordBytes = 72

type Service struct {
	users      store.UserStore
	codec      *Codec
	bcryptCost int
	cookieName string
	now        func() time.Time
}

func NewService(users store.UserStore, codec *Codec, bcryptCost int, cookieName string) *Service {
	if cookieName == "" {
		cookieName = "token"
	}
	return &Service{
		users:      users,
		codec:      codec,
		bcryptCost: bcryptCost,
		cookieName: cookieName,
		now:        time.Now,
	}
}

func (s *Service) CookieName() string { return s.cookieName }

func (s *Service) Register(ctx context.Context, userID, pw, pw2, username string) (model.User, error) {
	userID = strings.TrimSpace(userID)
	username = strings.TrimSpace(username)
	switch {
	case userID == "":
		return model.User{}, fmt.Errorf("%w: userid is required", ErrValidation)
	case username == "":
		return model.User{}, fmt.Errorf("%w: username is required", ErrValidation)
	case pw == "":
		return model.User{}, fmt.Errorf("%w: pw is required", ErrValidation)
	case pw != pw2:
		return model.User{}, fmt.Errorf("%w: passwords do not match", ErrValidation)
	case len(pw) > maxPasswordBytes:
		return model.User{}, fmt.Errorf("%w: pw is longer than %d bytes", ErrValidation, maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pw), s.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := model.User{
		UserID:       userID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Login checks the password and returns a fresh session token.
func (s *Service) Login(ctx context.Context, userID, pw string) (string, model.User, error) {
	user, err := s.users.GetUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", model.User{}, ErrUnknownUser
		}
		return "", model.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(pw)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", model.User{}, ErrWrongPassword
		}
		return "", model.User{}, fmt.Errorf("compare password: %w", err)
	}
	token, err := s.codec.Sign(user.UserID)
	if err != nil {
		return "", model.User{}, fmt.Errorf("sign token: %w", err)
	}
	return token, user, nil
}

// Resolve maps a token to its user. Any failure yields nil (anonymous); it
// never fails the request.
func (s *Service) Resolve(ctx context.Context, token string) *model.User {
	if token == "" {
		return nil
	}
	userID, err := s.codec.Verify(token)
	if err != nil {
		log.Printf("auth: %v", err)
		return nil
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("auth: lookup %q: %v", userID, err)
		}
		return nil
	}
	return &user
}

// Attach resolves the session cookie and returns r carrying the user, or r
// unchanged when the request is anonymous.
func (s *Service) Attach(r *http.Request) *http.Request {
	c, err := r.Cookie(s.cookieName)
	if err != nil {
		return r
	}
	user := s.Resolve(r.Context(), c.Value)
	if user == nil {
		return r
	}
	return r.WithContext(WithUser(r.Context(), user))
}

func (s *Service) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Service) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
