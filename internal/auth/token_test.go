package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modelvault/modelvault/internal/model"
)

func testUser() *model.User {
	return &model.User{
		ID:    "5c47fa72-6a28-4a1b-9af0-5f1e5e3d2b10",
		Email: "carol@example.com",
		Name:  "Carol",
		Perms: model.PermUser | model.PermAdmin,
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := NewTokenService([]byte("test-secret"), time.Hour)
	user := testUser()

	token, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	id, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if id.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", id.UserID, user.ID)
	}
	if id.Email != user.Email {
		t.Errorf("Email = %q, want %q", id.Email, user.Email)
	}
	if id.Name != user.Name {
		t.Errorf("Name = %q, want %q", id.Name, user.Name)
	}
	if id.Perms != user.Perms {
		t.Errorf("Perms = %d, want %d", id.Perms, user.Perms)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewTokenService([]byte("right-secret"), time.Hour)
	verifier := NewTokenService([]byte("other-secret"), time.Hour)

	token, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify with wrong secret error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenService_Malformed(t *testing.T) {
	t.Parallel()

	svc := NewTokenService([]byte("test-secret"), time.Hour)

	testCases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a token", "garbage"},
		{"two segments", "aaaa.bbbb"},
		{"mangled signature", func() string {
			tok, _ := svc.Issue(testUser())
			return tok[:len(tok)-4] + "XXXX"
		}()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Verify(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", tc.token, err)
			}
		})
	}
}

// Malformed tokens and wrong-key tokens must be indistinguishable to callers.
func TestTokenService_FailuresCollapse(t *testing.T) {
	t.Parallel()

	svc := NewTokenService([]byte("test-secret"), time.Hour)
	forged, err := NewTokenService([]byte("attacker-secret"), time.Hour).Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, errForged := svc.Verify(forged)
	_, errMalformed := svc.Verify("not.a.token")

	if !errors.Is(errForged, ErrInvalidToken) || !errors.Is(errMalformed, ErrInvalidToken) {
		t.Fatalf("expected both failures to be ErrInvalidToken, got %v and %v", errForged, errMalformed)
	}
	if errForged.Error() != errMalformed.Error() {
		t.Errorf("failure messages differ: %q vs %q", errForged, errMalformed)
	}
}

func TestTokenService_Expired(t *testing.T) {
	t.Parallel()

	svc := NewTokenService([]byte("test-secret"), -time.Minute)

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(expired) error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenService_TokenShape(t *testing.T) {
	t.Parallel()

	svc := NewTokenService([]byte("test-secret"), time.Hour)
	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token is not a three-segment JWS: %q", token)
	}
}
