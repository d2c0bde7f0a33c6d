package auth

import "github.com/matthewhartstonge/argon2"

var hashConfig = argon2.DefaultConfig()

// HashPassword returns an encoded argon2id hash with its salt embedded.
func HashPassword(password string) (string, error) {
	encoded, err := hashConfig.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// VerifyPassword checks password against an encoded hash.
func VerifyPassword(password, encoded string) bool {
	ok, err := argon2.VerifyEncoded([]byte(password), []byte(encoded))
	return err == nil && ok
}
