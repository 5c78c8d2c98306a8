package services

import (
	"time"

	intconfig "railbook/internal/config"
	"railbook/internal/utils"
)

// RefundFor applies the configured band table as a step function over lead
// time: the first band whose threshold the lead time exceeds wins; below every
// band the refund is zero.
func RefundFor(bands []intconfig.RefundBand, amount int64, lead time.Duration) int64 {
	if amount <= 0 || lead <= 0 {
		return 0
	}
	for _, b := range bands {
		if lead > b.MinLead {
			return utils.PercentOf(amount, b.Percent)
		}
	}
	return 0
}

// CancellationOpen reports whether a confirmed booking may still be cancelled
// given the minimum-lead-time policy.
func CancellationOpen(cutoff time.Duration, lead time.Duration) bool {
	return lead > cutoff
}
