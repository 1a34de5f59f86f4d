package models

import "time"

// AuditEvent is one chaincode event as stored in the audit log.
type AuditEvent struct {
	ID        string    `json:"id"`
	EventName string    `json:"event_name"`
	TxID      string    `json:"tx_id"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary aggregates the audit log for the reporting dashboard.
type Summary struct {
	TotalEvents      int64            `json:"total_events"`
	EventsByName     map[string]int64 `json:"events_by_name"`
	AssetsRegistered int64            `json:"assets_registered"`
	CertsIssued      int64            `json:"certs_issued"`
	CertsRevoked     int64            `json:"certs_revoked"`
	WalletsLinked    int64            `json:"wallets_linked"`
	FirstEventAt     *time.Time       `json:"first_event_at,omitempty"`
	LastEventAt      *time.Time       `json:"last_event_at,omitempty"`
}
