package utils

import (
	"log"
	"strings"
)

// LogEvent prints one standardized line per engine event
// (allocation, promotion, cancellation, ticket render). Contexts without a
// request, like the post-commit promotion scan, log "-" for the request id.
// Keep messages summarized; never log passenger details.
func LogEvent(requestID, module, action, message string) {
	req := strings.TrimSpace(requestID)
	if req == "" {
		req = "-"
	}
	log.Printf("[%s] action=%s request_id=%s msg=%s", strings.ToUpper(module), action, req, message)
}
