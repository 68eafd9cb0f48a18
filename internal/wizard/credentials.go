package wizard

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"
)

// ErrCredentialsExhausted is returned when no free tracking code was found
var ErrCredentialsExhausted = errors.New("could not generate an unused tracking code")

const maxCredentialAttempts = 20

// Credentials is a generated tracking code and PIN pair
type Credentials struct {
	NoComtab string `json:"noComtab"`
	Pin      string `json:"pin"`
}

// CredentialGenerator produces "<4digit>/IKP/<MM>/<YYYY>" tracking codes and 4-digit PINs
type CredentialGenerator struct {
	Rand io.Reader
	Now  func() time.Time
}

// NewCredentialGenerator returns a generator backed by crypto/rand
func NewCredentialGenerator() *CredentialGenerator {
	return &CredentialGenerator{Rand: rand.Reader, Now: time.Now}
}

// Generate returns a fresh pair whose tracking code is not reported as taken
func (g *CredentialGenerator) Generate(taken func(string) bool) (Credentials, error) {
	now := g.Now()
	for i := 0; i < maxCredentialAttempts; i++ {
		seq, err := g.fourDigits()
		if err != nil {
			return Credentials{}, err
		}
		code := fmt.Sprintf("%s/IKP/%02d/%04d", seq, int(now.Month()), now.Year())
		if taken != nil && taken(code) {
			continue
		}
		pin, err := g.fourDigits()
		if err != nil {
			return Credentials{}, err
		}
		return Credentials{NoComtab: code, Pin: pin}, nil
	}
	return Credentials{}, ErrCredentialsExhausted
}

// fourDigits returns a number in [1000, 9999]
func (g *CredentialGenerator) fourDigits() (string, error) {
	n, err := rand.Int(g.Rand, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("failed to read random number: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+1000), nil
}

// GenerateCredentials fills in the draft's tracking code and PIN. Codes already known
// to the draft's validator are skipped.
func (d *Draft) GenerateCredentials(g *CredentialGenerator) (Credentials, error) {
	if g == nil {
		g = NewCredentialGenerator()
	}
	creds, err := g.Generate(d.validator.NoComtabTaken)
	if err != nil {
		return Credentials{}, err
	}
	d.Submission.NoComtab = creds.NoComtab
	d.Submission.Pin = creds.Pin
	return creds, nil
}
