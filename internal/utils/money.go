package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Amounts are stored as int64 paise to keep refund math exact.

// FormatRupees renders a paise amount as "Rs 1,234.50".
func FormatRupees(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	whole := paise / 100
	frac := paise % 100
	return fmt.Sprintf("%sRs %s.%02d", sign, formatThousand(whole), frac)
}

// PercentOf computes pct% of a paise amount, truncating fractions of a paisa.
func PercentOf(paise int64, pct int) int64 {
	if pct <= 0 || paise <= 0 {
		return 0
	}
	if pct >= 100 {
		return paise
	}
	return paise * int64(pct) / 100
}

func formatThousand(n int64) string {
	if n == 0 {
		return "0"
	}
	str := strconv.FormatInt(n, 10)
	var out strings.Builder
	for i, c := range str {
		if i != 0 && (len(str)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	return out.String()
}
