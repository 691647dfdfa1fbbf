package service_test

import (
	"testing"

	"github.com/tivity-app/tivity-api/app/service"
)

func TestPasswordRoundTrip(t *testing.T) {
	digest, err := service.HashPassword("Passw0rd")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if digest == "Passw0rd" {
		t.Fatalf("digest must not equal the plaintext")
	}
	if !service.CheckPassword("Passw0rd", digest) {
		t.Fatalf("expected matching password to verify")
	}
	if service.CheckPassword("wrong-password", digest) {
		t.Fatalf("expected mismatched password to fail")
	}
}

func TestHashPasswordSaltsPerCall(t *testing.T) {
	first, err := service.HashPassword("Passw0rd")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	second, err := service.HashPassword("Passw0rd")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct digests for the same input")
	}
}

func TestHashPasswordAcceptsEmptyInput(t *testing.T) {
	digest, err := service.HashPassword("")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !service.CheckPassword("", digest) {
		t.Fatalf("expected empty password to round-trip")
	}
}
