package notify

import (
	"fmt"
	"log"

	"github.com/wneessen/go-mail"

	intconfig "railbook/internal/config"
)

// Mailer delivers booking events over SMTP. Disabled (no-op) when the host is
// not configured or the booking has no contact address; send failures are
// logged and swallowed.
type Mailer struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func NewMailer(env intconfig.Env) Mailer {
	return Mailer{
		Host: env.SMTPHost,
		Port: env.SMTPPort,
		User: env.SMTPUser,
		Pass: env.SMTPPass,
		From: env.MailFrom,
	}
}

func (m Mailer) Notify(ev Event) {
	if m.Host == "" || ev.Email == "" {
		return
	}
	go m.send(ev)
}

func (m Mailer) send(ev Event) {
	client, err := mail.NewClient(m.Host,
		mail.WithPort(m.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.User),
		mail.WithPassword(m.Pass),
	)
	if err != nil {
		log.Printf("[NOTIFY] smtp client init failed: %v", err)
		return
	}

	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		log.Printf("[NOTIFY] invalid sender %q: %v", m.From, err)
		return
	}
	if err := msg.To(ev.Email); err != nil {
		log.Printf("[NOTIFY] invalid recipient for booking %s: %v", ev.Reference, err)
		return
	}
	msg.Subject(subjectFor(ev))
	msg.SetBodyString(mail.TypeTextPlain, bodyFor(ev))

	if err := client.DialAndSend(msg); err != nil {
		log.Printf("[NOTIFY] send failed for booking %s: %v", ev.Reference, err)
	}
}

func subjectFor(ev Event) string {
	switch ev.Kind {
	case EventConfirmed:
		return fmt.Sprintf("Booking %s confirmed", ev.Reference)
	case EventWaitlisted:
		return fmt.Sprintf("Booking %s waitlisted", ev.Reference)
	case EventPromoted:
		return fmt.Sprintf("Booking %s confirmed from waitlist", ev.Reference)
	case EventCancelled:
		return fmt.Sprintf("Booking %s cancelled", ev.Reference)
	}
	return fmt.Sprintf("Booking %s update", ev.Reference)
}

func bodyFor(ev Event) string {
	return fmt.Sprintf("Booking %s (%s, %s): %s\n", ev.Reference, ev.TrainName, ev.TravelDate, ev.Detail)
}
