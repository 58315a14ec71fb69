package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// USDToVNDRate is the fixed conversion rate used for display prices.
const USDToVNDRate = 25000

// USDToVND converts a USD price to VND.
func USDToVND(usd float64) float64 {
	return usd * USDToVNDRate
}

// VNDToUSD converts a VND amount to USD.
func VNDToUSD(vnd float64) float64 {
	return vnd / USDToVNDRate
}

// FormatVND formats an amount the Vietnamese way: dot thousands separators,
// no decimals, trailing "đ". 12500000 becomes "12.500.000đ".
func FormatVND(vnd float64) string {
	n := int64(math.Round(vnd))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return sign + b.String() + "đ"
}

// ParseVND parses a price written as "12.500.000đ", "12.500.000 VND" or "₫1.000".
func ParseVND(s string) (float64, error) {
	clean := strings.NewReplacer("đ", "", "₫", "", "VND", "", "vnd", "", ".", "", " ", "").Replace(s)
	if clean == "" {
		return 0, fmt.Errorf("parse VND price %q: empty", s)
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("parse VND price %q: %w", s, err)
	}
	return v, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
