package notify

// Event describes one booking lifecycle change worth telling the passenger
// about. Delivery is best-effort and must never touch engine state.
type Event struct {
	Kind       string // "confirmed", "promoted", "cancelled", "waitlisted"
	Reference  string
	Email      string
	TrainName  string
	TravelDate string
	Detail     string
}

const (
	EventConfirmed  = "confirmed"
	EventWaitlisted = "waitlisted"
	EventPromoted   = "promoted"
	EventCancelled  = "cancelled"
)

type Notifier interface {
	Notify(ev Event)
}

// Dispatch is a nil-safe helper so services never branch on a missing
// notifier.
func Dispatch(n Notifier, ev Event) {
	if n == nil {
		return
	}
	n.Notify(ev)
}
