package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestVerifyPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	if !VerifyPassword(string(hash), "correct horse") {
		t.Fatal("matching password rejected")
	}
	if VerifyPassword(string(hash), "wrong horse") {
		t.Fatal("wrong password accepted")
	}
	if VerifyPassword("not-a-bcrypt-hash", "correct horse") {
		t.Fatal("malformed hash accepted")
	}
	if VerifyPassword("", "") {
		t.Fatal("empty hash accepted")
	}
}
