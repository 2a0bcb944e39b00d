package auth

import (
	"encoding/hex"

	"github.com/dmitrijs2005/useradmin/internal/common"
)

// NewOpaqueToken returns a fresh 256-bit hex token for email verification or
// password reset.
func NewOpaqueToken() (string, error) {
	return common.MakeRandHexString(common.OpaqueTokenSize)
}

// NewTemporaryPassword returns a random password that satisfies the password
// policy: lower and upper case letters, a digit and a special character.
func NewTemporaryPassword() (string, error) {
	s, err := common.MakeRandHexString(8)
	if err != nil {
		return "", err
	}
	return "Tmp" + s + "!9a", nil
}

func dummySecret() []byte {
	return []byte(hex.EncodeToString(common.GenerateRandByteArray(16)))
}
