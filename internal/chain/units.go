package chain

import "math/big"

// BaseUnits converts a micro-USDC amount (6 decimal places) into token base
// units for a token with the given decimals.
func BaseUnits(micros int64, decimals int) *big.Int {
	amount := big.NewInt(micros)
	switch {
	case decimals == 6:
		return amount
	case decimals > 6:
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-6)), nil)
		return amount.Mul(amount, scale)
	default:
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(6-decimals)), nil)
		return amount.Div(amount, scale)
	}
}

// MicrosFromBaseUnits converts token base units back to micro-USDC. Reports
// false when the value overflows int64.
func MicrosFromBaseUnits(value *big.Int, decimals int) (int64, bool) {
	scaled := new(big.Int).Set(value)
	switch {
	case decimals > 6:
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-6)), nil)
		scaled.Div(scaled, scale)
	case decimals < 6:
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(6-decimals)), nil)
		scaled.Mul(scaled, scale)
	}
	if !scaled.IsInt64() {
		return 0, false
	}
	return scaled.Int64(), true
}
