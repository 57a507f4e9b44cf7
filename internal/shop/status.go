package shop

type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCanceled   Status = "canceled"
)

// Statuses only move forward; delivered and canceled are terminal.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusPaid: true, StatusProcessing: true, StatusCanceled: true},
	StatusPaid:       {StatusProcessing: true, StatusShipped: true, StatusDelivered: true},
	StatusProcessing: {StatusShipped: true, StatusCanceled: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCanceled:   {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
