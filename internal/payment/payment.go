package payment

import "context"

// PayableOrder is the collaborator's handle for a payment awaiting buyer
// approval.
type PayableOrder struct {
	ID          string `json:"id"`
	ApprovalURL string `json:"approval_url"`
}

// Capture is the result of settling an approved payment.
type Capture struct {
	PayerID string `json:"payer_id"`
	Status  string `json:"status"`
}

// Processor is the external payment collaborator. Amounts are integers
// in minor currency units.
type Processor interface {
	CreateOrder(ctx context.Context, amount int64, currency string) (*PayableOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*Capture, error)
}
