package security

import (
	"fmt"

	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret creates a new TOTP secret for an admin account.
func GenerateTOTPSecret(issuer, account string) (secret, url string, err error) {
	key, errGenerate := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if errGenerate != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", errGenerate)
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTOTP reports whether the code matches the secret for the current
// time step.
func ValidateTOTP(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}
