package auth

import "testing"

func TestHashAndVerifyAPIKey(t *testing.T) {
	hash, err := HashAPIKey("super-secret-key")
	if err != nil {
		t.Fatalf("hash api key: %v", err)
	}
	if hash == "super-secret-key" {
		t.Fatalf("hash must not equal plaintext")
	}
	if !VerifyAPIKey(hash, "super-secret-key") {
		t.Fatalf("expected matching key to verify")
	}
	if VerifyAPIKey(hash, "wrong-key") {
		t.Fatalf("expected mismatched key to fail")
	}
	if VerifyAPIKey("not-a-hash", "super-secret-key") {
		t.Fatalf("expected malformed hash to fail")
	}
}
