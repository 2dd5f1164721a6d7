package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type AuthStore interface {
	FindUser(username string) (*User, error)
	AddUser(u *User) error
}

type TokenSigner func(username string, role Role, ttl time.Duration) (string, error)

type AuthService struct {
	store     AuthStore
	now       func() time.Time
	signToken TokenSigner
	tokenTTL  time.Duration
}

type AuthResult struct {
	Token    string
	Username string
	Role     Role
}

func NewAuthService(store AuthStore, signer TokenSigner) *AuthService {
	return &AuthService{
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		signToken: signer,
		tokenTTL:  24 * time.Hour,
	}
}

// Login resolves a credential to a role. Unknown usernames and wrong
// passwords produce the same unauthorized error so the response does not
// leak which accounts exist. Comparison is always against a bcrypt hash;
// plaintext secrets are never stored.
func (s *AuthService) Login(username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("username/password required")
	}
	u, err := s.store.FindUser(username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(u.Username, u.Role, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Username: u.Username, Role: u.Role}, nil
}

// Register creates an account. Only admins may add users; the public role is
// otherwise read-only.
func (s *AuthService) Register(session Session, username, password string, role Role) (*User, error) {
	if !session.IsAdmin() {
		return nil, NewForbiddenError("admin privileges required")
	}
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("username/password required")
	}
	if _, ok := ParseRole(string(role)); !ok {
		return nil, NewInvalidError("unknown role")
	}
	existing, err := s.store.FindUser(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("username exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &User{Username: username, PasswordHash: hash, Role: role, CreatedAt: s.now()}
	if err := s.store.AddUser(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
