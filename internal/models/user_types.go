package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Subscription tiers. Each tier carries a monthly API call ceiling.
const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// User Model with Pointers for Nullable Fields
type User struct {
	ID           string `json:"id" db:"id"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"hashed_password"`

	Name  *string `json:"name,omitempty" db:"name"`
	Image *string `json:"image,omitempty" db:"image"`

	IsActive     bool   `json:"isActive" db:"is_active"`
	Subscription string `json:"subscription" db:"subscription"`

	// APIUsage counts completed chat turns. It only ever goes up
	// (one increment per finished turn); an admin reset is the sole
	// exception. A turn is refused once APIUsage reaches APILimit.
	APIUsage int `json:"apiUsage" db:"api_usage"`
	APILimit int `json:"apiLimit" db:"api_limit"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// APILimitForTier returns the default call ceiling for a subscription tier.
func APILimitForTier(tier string) int {
	switch tier {
	case TierPro:
		return 1000
	case TierEnterprise:
		return 10000
	default:
		return 100
	}
}

// Password Helper (Standard)
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
