package utils

import "golang.org/x/crypto/bcrypt"

// VerifyPassword reports whether plain matches the stored bcrypt hash. Any
// comparison failure, a malformed hash included, counts as a mismatch.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
