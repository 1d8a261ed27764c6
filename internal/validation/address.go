// Package validation checks account addresses for the target chain.
package validation

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidAddress reports whether candidate is a 0x-prefixed, 40 hex digit
// account address. Letter case is ignored, so checksum casing is not checked.
func IsValidAddress(candidate string) bool {
	// common.IsHexAddress also accepts the bare 40 hex digit form
	if !strings.HasPrefix(candidate, "0x") && !strings.HasPrefix(candidate, "0X") {
		return false
	}
	return common.IsHexAddress(candidate)
}

// NormalizeAddress returns the key an address is stored under.
// Casing variants of one address share a single claim record.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// ChecksumAddress returns the EIP-55 form of a valid address
func ChecksumAddress(address string) string {
	return common.HexToAddress(address).Hex()
}
