package noise

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func newPair(t *testing.T) (*XXHandshake, *XXHandshake) {
	t.Helper()

	initKey := make([]byte, 32)
	respKey := make([]byte, 32)
	if _, err := rand.Read(initKey); err != nil {
		t.Fatal(err)
	}
	if _, err := rand.Read(respKey); err != nil {
		t.Fatal(err)
	}

	initiator, err := NewXXHandshake(initKey, Initiator)
	if err != nil {
		t.Fatalf("Failed to create initiator: %v", err)
	}
	responder, err := NewXXHandshake(respKey, Responder)
	if err != nil {
		t.Fatalf("Failed to create responder: %v", err)
	}
	return initiator, responder
}

// runHandshake drives both sides through the full 3-message exchange.
func runHandshake(t *testing.T, initiator, responder *XXHandshake) {
	t.Helper()

	a, err := initiator.CreateMessageA()
	if err != nil {
		t.Fatalf("CreateMessageA failed: %v", err)
	}
	b, err := responder.CreateMessageB(a)
	if err != nil {
		t.Fatalf("CreateMessageB failed: %v", err)
	}
	c, err := initiator.CreateMessageC(b)
	if err != nil {
		t.Fatalf("CreateMessageC failed: %v", err)
	}
	if !initiator.IsComplete() {
		t.Fatal("initiator not complete after creating message C")
	}
	if responder.IsComplete() {
		t.Fatal("responder complete before processing message C")
	}
	if err := responder.ProcessMessageC(c); err != nil {
		t.Fatalf("ProcessMessageC failed: %v", err)
	}
	if !responder.IsComplete() {
		t.Fatal("responder not complete after processing message C")
	}
}

func TestNewXXHandshakeValidation(t *testing.T) {
	if _, err := NewXXHandshake(make([]byte, 16), Initiator); err == nil {
		t.Error("expected error for short static key")
	}
	if _, err := NewXXHandshake(make([]byte, 32), Initiator); err == nil {
		t.Error("expected error for all-zero static key")
	}
}

func TestXXHandshakeFlow(t *testing.T) {
	initiator, responder := newPair(t)
	runHandshake(t, initiator, responder)

	// Each side must have learned the other's static key.
	remoteSeen, err := initiator.RemoteStaticKey()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(remoteSeen, responder.LocalStaticKey()) {
		t.Error("initiator learned wrong responder static key")
	}
	remoteSeen, err = responder.RemoteStaticKey()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(remoteSeen, initiator.LocalStaticKey()) {
		t.Error("responder learned wrong initiator static key")
	}
}

func TestTransportRoundTrip(t *testing.T) {
	initiator, responder := newPair(t)
	runHandshake(t, initiator, responder)

	payloads := [][]byte{
		[]byte("hello over the secure channel"),
		{},
		bytes.Repeat([]byte{0x42}, MaxPayloadSize),
	}

	for _, p := range payloads {
		ct, err := initiator.Encrypt(p)
		if err != nil {
			t.Fatalf("Encrypt failed for %d byte payload: %v", len(p), err)
		}
		got, err := responder.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt failed for %d byte payload: %v", len(p), err)
		}
		if !bytes.Equal(got, p) {
			t.Errorf("round trip corrupted %d byte payload", len(p))
		}

		// And the reverse direction.
		ct, err = responder.Encrypt(p)
		if err != nil {
			t.Fatal(err)
		}
		got, err = initiator.Decrypt(ct)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, p) {
			t.Errorf("reverse round trip corrupted %d byte payload", len(p))
		}
	}
}

func TestEncryptOversizedPayload(t *testing.T) {
	initiator, responder := newPair(t)
	runHandshake(t, initiator, responder)

	if _, err := initiator.Encrypt(make([]byte, MaxPayloadSize+1)); err == nil {
		t.Error("expected error for payload over frame limit")
	}
}

func TestDecryptTamperedFrame(t *testing.T) {
	initiator, responder := newPair(t)
	runHandshake(t, initiator, responder)

	ct, err := initiator.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	ct[0] ^= 0x01
	if _, err := responder.Decrypt(ct); err == nil {
		t.Error("expected authentication failure for tampered frame")
	}

	if _, err := responder.Decrypt(ct[:4]); err == nil {
		t.Error("expected failure for truncated frame")
	}
}

func TestRoleEnforcement(t *testing.T) {
	initiator, responder := newPair(t)

	if _, err := responder.CreateMessageA(); err != ErrWrongRole {
		t.Errorf("responder CreateMessageA: expected ErrWrongRole, got %v", err)
	}
	if _, err := initiator.CreateMessageB(nil); err != ErrWrongRole {
		t.Errorf("initiator CreateMessageB: expected ErrWrongRole, got %v", err)
	}
	if err := initiator.ProcessMessageC(nil); err != ErrWrongRole {
		t.Errorf("initiator ProcessMessageC: expected ErrWrongRole, got %v", err)
	}
}

func TestTamperedHandshakeMessagePoisons(t *testing.T) {
	initiator, responder := newPair(t)

	a, err := initiator.CreateMessageA()
	if err != nil {
		t.Fatal(err)
	}
	b, err := responder.CreateMessageB(a)
	if err != nil {
		t.Fatal(err)
	}

	tampered := make([]byte, len(b))
	copy(tampered, b)
	tampered[len(tampered)-1] ^= 0xff
	if _, err := initiator.CreateMessageC(tampered); err == nil {
		t.Fatal("expected failure for tampered message B")
	}

	// The adapter is poisoned after the failure.
	if _, err := initiator.CreateMessageC(b); err != ErrHandshakeFailed {
		t.Errorf("expected ErrHandshakeFailed after poisoning, got %v", err)
	}
}

func TestEmptyMessageCFails(t *testing.T) {
	initiator, responder := newPair(t)

	a, err := initiator.CreateMessageA()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := responder.CreateMessageB(a); err != nil {
		t.Fatal(err)
	}

	if err := responder.ProcessMessageC(nil); err == nil {
		t.Fatal("expected failure for empty message C")
	}
	if err := responder.ProcessMessageC([]byte{}); err != ErrHandshakeFailed {
		t.Errorf("expected ErrHandshakeFailed after poisoning, got %v", err)
	}
}

func TestDestroy(t *testing.T) {
	initiator, responder := newPair(t)
	runHandshake(t, initiator, responder)

	initiator.Destroy()
	initiator.Destroy() // idempotent

	if initiator.IsComplete() {
		t.Error("destroyed handshake still reports complete")
	}
	if _, err := initiator.Encrypt([]byte("x")); err == nil {
		t.Error("expected error encrypting after destroy")
	}
	if _, err := initiator.CreateMessageA(); err != ErrHandshakeDestroyed {
		t.Errorf("expected ErrHandshakeDestroyed, got %v", err)
	}
}

func TestOperationsAfterComplete(t *testing.T) {
	initiator, responder := newPair(t)
	runHandshake(t, initiator, responder)

	if _, err := initiator.CreateMessageA(); err != ErrHandshakeComplete {
		t.Errorf("expected ErrHandshakeComplete, got %v", err)
	}
	if err := responder.ProcessMessageC([]byte("again")); err != ErrHandshakeComplete {
		t.Errorf("expected ErrHandshakeComplete, got %v", err)
	}
}
