package payment

import (
	"log"

	"railbook/internal/utils"
)

// Gateway is the engine's view of the external payment rail. Calls are
// fire-and-forget: outcomes are reconciled out-of-band and never block or
// roll back a seat decision.
type Gateway interface {
	Charge(bookingRef string, paise int64)
	Refund(bookingRef string, paise int64)
}

// LogGateway records payment hand-offs in the log. Stands in for the real
// rail, which lives outside this service.
type LogGateway struct{}

func (LogGateway) Charge(bookingRef string, paise int64) {
	log.Printf("[PAYMENT] action=charge booking=%s amount=%s", bookingRef, utils.FormatRupees(paise))
}

func (LogGateway) Refund(bookingRef string, paise int64) {
	log.Printf("[PAYMENT] action=refund booking=%s amount=%s", bookingRef, utils.FormatRupees(paise))
}

// Dispatch helpers keep services nil-safe.
func Charge(g Gateway, ref string, paise int64) {
	if g == nil {
		return
	}
	g.Charge(ref, paise)
}

func Refund(g Gateway, ref string, paise int64) {
	if g == nil {
		return
	}
	g.Refund(ref, paise)
}
