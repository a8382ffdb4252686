package crypto

import (
	"testing"
)

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	if isZeroKey(kp.Private) {
		t.Error("generated private key is all zeros")
	}
	if isZeroKey(kp.Public) {
		t.Error("generated public key is all zeros")
	}

	other, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	if kp.Private == other.Private {
		t.Error("two generated key pairs share a private key")
	}
}

func TestFromSecretKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}

	rederived, err := FromSecretKey(kp.Private)
	if err != nil {
		t.Fatalf("FromSecretKey failed: %v", err)
	}
	if rederived.Public != kp.Public {
		t.Error("public key derivation is not deterministic")
	}

	var zero [KeySize]byte
	if _, err := FromSecretKey(zero); err == nil {
		t.Error("expected error for all-zero secret key")
	}
}

func TestSecureWipe(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	if err := SecureWipe(data); err != nil {
		t.Fatalf("SecureWipe failed: %v", err)
	}
	for i, b := range data {
		if b != 0 {
			t.Errorf("byte %d not wiped: %d", i, b)
		}
	}

	if err := SecureWipe(nil); err == nil {
		t.Error("expected error wiping nil data")
	}
}

func TestWipeKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}

	if err := WipeKeyPair(kp); err != nil {
		t.Fatalf("WipeKeyPair failed: %v", err)
	}
	if !isZeroKey(kp.Private) {
		t.Error("private key not wiped")
	}

	if err := WipeKeyPair(nil); err == nil {
		t.Error("expected error wiping nil KeyPair")
	}
}
