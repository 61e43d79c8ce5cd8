package curve

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// seedBondingCurve is the PDA seed prefix the launch program uses for its
// per-mint bonding curve account.
const seedBondingCurve = "bonding_curve"

// BondingCurveAddress derives the bonding curve PDA for a mint under the
// given program: sha256(seed || mint || bump || programID ||
// "ProgramDerivedAddress") for the highest bump yielding an off-curve point.
func BondingCurveAddress(mint, programID string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	programBytes, err := base58.Decode(programID)
	if err != nil {
		return "", fmt.Errorf("decode program id: %w", err)
	}
	if len(mintBytes) != 32 || len(programBytes) != 32 {
		return "", fmt.Errorf("mint and program id must be 32 bytes")
	}

	seeds := [][]byte{[]byte(seedBondingCurve), mintBytes}
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 96)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programBytes...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), nil
		}
	}

	return "", fmt.Errorf("no valid bump for mint %s", mint)
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
