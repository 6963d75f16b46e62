package security

import (
	"errors"
	"testing"
)

var testArgon2Params = Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHashAndVerifyPassword(t *testing.T) {
	h := NewPasswordHasher(testArgon2Params)
	hash, err := h.Hash("Passw0rd!")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	ok, err := h.Verify(hash, "Passw0rd!")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification success")
	}
	ok, err = h.Verify(hash, "wrong-pass")
	if err != nil {
		t.Fatalf("verify wrong password errored: %v", err)
	}
	if ok {
		t.Fatal("expected password verification failure")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h := NewPasswordHasher(testArgon2Params)
	for _, encoded := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$AA$AA", "$argon2id$v=19$bad$AA$AA"} {
		if _, err := h.Verify(encoded, "x"); !errors.Is(err, ErrInvalidPasswordHash) {
			t.Fatalf("expected ErrInvalidPasswordHash for %q, got %v", encoded, err)
		}
	}
}

func TestNeedsRehashWhenParamsChange(t *testing.T) {
	light := NewPasswordHasher(testArgon2Params)
	hash, err := light.Hash("Passw0rd!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if light.NeedsRehash(hash) {
		t.Fatal("expected hash with current params to be kept")
	}
	stronger := testArgon2Params
	stronger.Time = 2
	if !NewPasswordHasher(stronger).NeedsRehash(hash) {
		t.Fatal("expected rehash after cost increase")
	}
	ok, err := NewPasswordHasher(stronger).Verify(hash, "Passw0rd!")
	if err != nil || !ok {
		t.Fatalf("expected old hash to verify with new hasher, ok=%v err=%v", ok, err)
	}
}
