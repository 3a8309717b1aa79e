package util

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

const signerKeySize = 32

// ValidateSignerKeyBytes checks that keyBytes is a usable secp256k1 private
// key: 32 bytes, not zero and below the curve order.
func ValidateSignerKeyBytes(keyBytes []byte) error {
	if len(keyBytes) != signerKeySize {
		return fmt.Errorf("private key must be %d bytes, got %d", signerKeySize, len(keyBytes))
	}

	var keyInt btcec.ModNScalar
	if overflow := keyInt.SetByteSlice(keyBytes); overflow {
		return fmt.Errorf("private key is greater than or equal to the secp256k1 curve order")
	}
	if keyInt.IsZero() {
		return fmt.Errorf("private key cannot be zero")
	}

	return nil
}
