package pos

import "errors"

var (
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidTableNumber   = errors.New("invalid table number")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrItemNotFound         = errors.New("item not found")
	ErrCartLineNotFound     = errors.New("cart line not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrNoSalesInWindow      = errors.New("no sales in window")
)
