package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Env struct {
	AppAddr string
	GinMode string
	DBDSN   string

	// Allocation policy.
	MaxGroupSize int
	SeniorAge    int

	// Cancellation policy.
	CancelCutoff time.Duration
	RefundBands  []RefundBand

	// Partition lock behaviour.
	LockWaitSec int
	LockRetries int

	// Notifier (disabled when SMTPHost is empty).
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string
}

// RefundBand grants Percent refund when lead time before departure exceeds MinLead.
type RefundBand struct {
	MinLead time.Duration
	Percent int
}

func LoadEnv() Env {
	appAddr := strings.TrimSpace(os.Getenv("APP_ADDR"))
	if appAddr == "" {
		appAddr = ":8080"
	}

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = "root:@tcp(127.0.0.1:3306)/railbook?parseTime=true&loc=UTC&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"
	}

	return Env{
		AppAddr:      appAddr,
		GinMode:      strings.TrimSpace(os.Getenv("GIN_MODE")),
		DBDSN:        dsn,
		MaxGroupSize: envInt("MAX_GROUP_SIZE", 6),
		SeniorAge:    envInt("SENIOR_AGE", 60),
		CancelCutoff: time.Duration(envInt("CANCEL_CUTOFF_MIN", 30)) * time.Minute,
		RefundBands:  parseRefundBands(os.Getenv("REFUND_BANDS")),
		LockWaitSec:  envInt("LOCK_WAIT_SEC", 3),
		LockRetries:  envInt("LOCK_RETRIES", 3),
		SMTPHost:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort:     envInt("SMTP_PORT", 587),
		SMTPUser:     strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
		SMTPPass:     os.Getenv("SMTP_PASSWORD"),
		MailFrom:     strings.TrimSpace(os.Getenv("MAIL_FROM")),
	}
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// parseRefundBands reads "24h:100,2h:50" (lead-time threshold : refund percent).
// Bands apply longest lead first; anything below the last threshold refunds 0.
func parseRefundBands(raw string) []RefundBand {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultRefundBands()
	}
	out := []RefundBand{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		lead, err := time.ParseDuration(strings.TrimSpace(kv[0]))
		if err != nil {
			continue
		}
		pct, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil || pct < 0 || pct > 100 {
			continue
		}
		out = append(out, RefundBand{MinLead: lead, Percent: pct})
	}
	if len(out) == 0 {
		return DefaultRefundBands()
	}
	sortBandsDesc(out)
	return out
}

// DefaultRefundBands mirrors the published cancellation table:
// full refund beyond 24h, half beyond 2h, nothing after that.
func DefaultRefundBands() []RefundBand {
	return []RefundBand{
		{MinLead: 24 * time.Hour, Percent: 100},
		{MinLead: 2 * time.Hour, Percent: 50},
	}
}

func sortBandsDesc(bands []RefundBand) {
	for i := 1; i < len(bands); i++ {
		for j := i; j > 0 && bands[j].MinLead > bands[j-1].MinLead; j-- {
			bands[j], bands[j-1] = bands[j-1], bands[j]
		}
	}
}
