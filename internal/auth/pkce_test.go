package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"regexp"
	"testing"
)

func TestGeneratePKCE(t *testing.T) {
	pkce, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE() failed: %v", err)
	}

	if pkce.CodeVerifier == "" {
		t.Error("CodeVerifier is empty")
	}

	if pkce.CodeChallenge == "" {
		t.Error("CodeChallenge is empty")
	}

	if pkce.CodeChallengeMethod != "S256" {
		t.Errorf("CodeChallengeMethod = %q, want S256", pkce.CodeChallengeMethod)
	}

	// The verifier must sit inside RFC 7636's 43-128 character window and
	// use only unreserved characters.
	if len(pkce.CodeVerifier) < 43 || len(pkce.CodeVerifier) > 128 {
		t.Errorf("CodeVerifier length = %d, want 43..128", len(pkce.CodeVerifier))
	}
	if !regexp.MustCompile(`^[A-Za-z0-9\-._~]+$`).MatchString(pkce.CodeVerifier) {
		t.Errorf("CodeVerifier contains characters outside the unreserved alphabet: %q", pkce.CodeVerifier)
	}

	// The challenge must be the S256 hash of the verifier.
	hash := sha256.Sum256([]byte(pkce.CodeVerifier))
	expectedChallenge := base64.RawURLEncoding.EncodeToString(hash[:])

	if pkce.CodeChallenge != expectedChallenge {
		t.Errorf("CodeChallenge verification failed.\nGot:  %q\nWant: %q", pkce.CodeChallenge, expectedChallenge)
	}
}

func TestGeneratePKCE_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		pkce, err := GeneratePKCE()
		if err != nil {
			t.Fatalf("GeneratePKCE() failed on iteration %d: %v", i, err)
		}

		if seen[pkce.CodeVerifier] {
			t.Errorf("Duplicate code verifier generated on iteration %d", i)
		}
		seen[pkce.CodeVerifier] = true
	}
}

func TestComputeChallenge_Deterministic(t *testing.T) {
	verifiers := []string{
		"dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk",
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"0123456789-._~0123456789-._~0123456789-._~01",
	}

	for _, v := range verifiers {
		first := ComputeChallenge(v)
		for i := 0; i < 5; i++ {
			if got := ComputeChallenge(v); got != first {
				t.Errorf("ComputeChallenge(%q) is not stable: %q != %q", v, got, first)
			}
		}
	}
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() failed: %v", err)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		t.Fatalf("state is not base64url: %v", err)
	}
	if len(decoded) < 16 {
		t.Errorf("state carries %d bytes of entropy, want at least 16", len(decoded))
	}

	other, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() failed: %v", err)
	}
	if state == other {
		t.Error("two generated states are identical")
	}
}
