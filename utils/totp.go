package utils

import (
	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret creates a new TOTP secret for the given account.
// Returns the secret and the otpauth:// provisioning URL.
func GenerateTOTPSecret(email string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Expense Tracker",
		AccountName: email,
	})
	if err != nil {
		return "", "", err
	}

	return key.Secret(), key.URL(), nil
}

// VerifyTOTP checks a 6-digit code against the stored secret.
func VerifyTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}
