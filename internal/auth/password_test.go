package auth

import "testing"

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "s3cret"); err != nil {
		t.Fatalf("expected password to match: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatal("expected password mismatch")
	}
}

func TestPasswordHashesDiffer(t *testing.T) {
	first, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts to produce distinct hashes")
	}
	if err := VerifyPassword(first, "same-input"); err != nil {
		t.Fatalf("first hash does not verify: %v", err)
	}
	if err := VerifyPassword(second, "same-input"); err != nil {
		t.Fatalf("second hash does not verify: %v", err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	for _, hash := range []string{"", "not-a-bcrypt-hash", "$2a$broken"} {
		if err := VerifyPassword(hash, "anything"); err == nil {
			t.Fatalf("expected mismatch for malformed hash %q", hash)
		}
	}
}

func TestHashEmptyPassword(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}
