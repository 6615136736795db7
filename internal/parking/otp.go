package parking

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// One-time codes are six decimal digits.
const (
	otpMin = 100000
	otpMax = 999999
)

// OTPGenerator returns a fresh one-time code.
type OTPGenerator func() (string, error)

// RandomOTP draws a code uniformly from [100000, 999999] using crypto/rand.
func RandomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("generating one-time code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
