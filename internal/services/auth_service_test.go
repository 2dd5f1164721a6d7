package services

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type authStubStore struct {
	users map[string]*User
}

func newAuthStubStore() *authStubStore {
	return &authStubStore{users: map[string]*User{}}
}

func (s *authStubStore) FindUser(username string) (*User, error) {
	if u, ok := s.users[username]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, nil
}

func (s *authStubStore) AddUser(u *User) error {
	copy := *u
	s.users[u.Username] = &copy
	return nil
}

func testSigner(username string, role Role, ttl time.Duration) (string, error) {
	return "token:" + username + ":" + string(role), nil
}

func adminSession() Session  { return Session{Username: "root", Role: RoleAdmin} }
func publicSession() Session { return Session{Username: "viewer", Role: RolePublic} }

func TestAuthRegisterAndLogin(t *testing.T) {
	store := newAuthStubStore()
	svc := NewAuthService(store, testSigner)

	u, err := svc.Register(adminSession(), "alice", "Secret123", RoleAdmin)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte("Secret123")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}

	if _, err := svc.Register(adminSession(), "alice", "Secret123", RoleAdmin); err == nil {
		t.Fatalf("expected conflict on duplicate username")
	}

	res, err := svc.Login("alice", "Secret123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.Token != "token:alice:admin" || res.Role != RoleAdmin {
		t.Fatalf("unexpected login result: %+v", res)
	}
}

func TestAuthLoginRejections(t *testing.T) {
	store := newAuthStubStore()
	svc := NewAuthService(store, testSigner)
	if _, err := svc.Register(adminSession(), "bob", "hunter22", RolePublic); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	_, wrongErr := svc.Login("bob", "wrong")
	_, missingErr := svc.Login("nobody", "hunter22")
	for _, err := range []error{wrongErr, missingErr} {
		se, ok := AsServiceError(err)
		if !ok || se.Code != ErrorUnauthorized {
			t.Fatalf("expected unauthorized error, got %v", err)
		}
	}
	// wrong password and unknown user must be indistinguishable
	if wrongErr.Error() != missingErr.Error() {
		t.Fatalf("credential errors leak account existence: %q vs %q", wrongErr, missingErr)
	}

	if _, err := svc.Login("", ""); err == nil {
		t.Fatalf("expected validation error on empty credentials")
	}
}

func TestAuthRegisterRequiresAdmin(t *testing.T) {
	svc := NewAuthService(newAuthStubStore(), testSigner)
	_, err := svc.Register(publicSession(), "eve", "pw123456", RolePublic)
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}
