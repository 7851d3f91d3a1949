package security

import (
	"math/rand"
	"testing"
)

func TestHashRefreshTokenDeterministic(t *testing.T) {
	if HashRefreshToken("secret", "pepper") != HashRefreshToken("secret", "pepper") {
		t.Fatal("same input and pepper must produce the same digest")
	}
	if HashRefreshToken("secret", "pepper") == HashRefreshToken("secret", "other-pepper") {
		t.Fatal("different peppers must produce different digests")
	}
}

func TestHashRefreshTokenCollisionResistance(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seen := make(map[string]string, 2000)
	for i := 0; i < 2000; i++ {
		buf := make([]byte, 32)
		rng.Read(buf)
		secret := string(buf)
		digest := HashRefreshToken(secret, "pepper")
		if prev, ok := seen[digest]; ok && prev != secret {
			t.Fatalf("digest collision between %q and %q", prev, secret)
		}
		seen[digest] = secret
	}
}

func TestRefreshTokenHashMatches(t *testing.T) {
	stored := HashRefreshToken("the-raw-secret", "pepper")
	if !RefreshTokenHashMatches("the-raw-secret", "pepper", stored) {
		t.Fatal("matching secret must verify")
	}
	if RefreshTokenHashMatches("another-secret", "pepper", stored) {
		t.Fatal("non-matching secret must not verify")
	}
	if RefreshTokenHashMatches("the-raw-secret", "wrong-pepper", stored) {
		t.Fatal("matching secret with wrong pepper must not verify")
	}
}

func TestNewRawRefreshTokenEntropy(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		raw, err := NewRawRefreshToken()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		// 32 bytes of entropy encode to 43 url-safe characters.
		if len(raw) != 43 {
			t.Fatalf("unexpected raw token length %d", len(raw))
		}
		if _, ok := seen[raw]; ok {
			t.Fatalf("duplicate raw token generated: %q", raw)
		}
		seen[raw] = struct{}{}
	}
}

func FuzzHashRefreshTokenInvariants(f *testing.F) {
	f.Add("secret", "pepper")
	f.Add("", "")
	f.Add("a", "very-long-pepper-value")

	f.Fuzz(func(t *testing.T, raw, pepper string) {
		first := HashRefreshToken(raw, pepper)
		second := HashRefreshToken(raw, pepper)
		if first != second {
			t.Fatalf("hash must be deterministic: %q vs %q", first, second)
		}
		if !RefreshTokenHashMatches(raw, pepper, first) {
			t.Fatal("digest must verify against its own input")
		}
		if len(first) != 43 {
			t.Fatalf("sha256 digest must encode to 43 characters, got %d", len(first))
		}
	})
}
