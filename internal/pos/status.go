package pos

type Status string

const (
	StatusPending Status = "Pending"
	StatusPaid    Status = "Paid"
	StatusPrinted Status = "Printed"
)

// Forward-only: an order never moves back toward Pending. Paid->Paid
// is allowed so a till can correct the tip before printing, and
// Printed->Printed makes reprints a no-op instead of an error.
var validNext = map[Status]map[Status]bool{
	StatusPending: {StatusPaid: true, StatusPrinted: true},
	StatusPaid:    {StatusPaid: true, StatusPrinted: true},
	StatusPrinted: {StatusPrinted: true},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
