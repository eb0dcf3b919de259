package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch 密碼不符
var ErrMismatch = errors.New("password mismatch")

// Hasher bcrypt 密碼雜湊
type Hasher struct {
	cost int
}

// NewHasher cost 為 0 時使用 bcrypt.DefaultCost
func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash 產生雜湊
func (h *Hasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare 比對明文與雜湊
func (h *Hasher) Compare(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
