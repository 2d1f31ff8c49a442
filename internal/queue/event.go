// Package queue defines message payloads exchanged over the message broker.
package queue

// DeliveryConfirmedEvent is published after a download was delivered and its
// allowance consumption committed. It carries enough for downstream
// consumers to log or run analytics without querying the stores.
type DeliveryConfirmedEvent struct {
	UserID           int64  `json:"user_id"`
	Platform         string `json:"platform"`
	FileName         string `json:"file_name"`
	SizeBytes        int64  `json:"size_bytes"`
	UsedPremium      bool   `json:"used_premium"`
	RemainingFree    int    `json:"remaining_free"`
	RemainingPremium int    `json:"remaining_premium"`
	DeliveredAt      string `json:"delivered_at"`
}

// PaymentProofEvent is published when a user submits a payment reference for
// manual review.
type PaymentProofEvent struct {
	UserID      int64  `json:"user_id"`
	UTR         string `json:"utr"`
	SubmittedAt string `json:"submitted_at"`
}
