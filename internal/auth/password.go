package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes an operator password at the given bcrypt cost. A cost
// outside bcrypt's supported range falls back to the library default, so a
// misconfigured AUTH_BCRYPT_COST never weakens stored credentials.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword checks a login attempt against the stored operator hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
