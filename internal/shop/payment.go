package shop

type PaymentMethod string

const (
	PaymentCOD   PaymentMethod = "cod"
	PaymentClick PaymentMethod = "click"
	PaymentPayme PaymentMethod = "payme"
	PaymentCard  PaymentMethod = "card"
	PaymentNone  PaymentMethod = "none"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentClick, PaymentPayme, PaymentCard, PaymentNone:
		return true
	}
	return false
}
