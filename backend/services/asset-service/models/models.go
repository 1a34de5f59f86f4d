package models

import "time"

// Asset and Certificate mirror the on-chain records.

type Asset struct {
	AssetID     uint64 `json:"assetId"`
	Owner       string `json:"owner"`
	Active      bool   `json:"active"`
	AssetType   string `json:"assetType"`
	Description string `json:"description"`
}

type Certificate struct {
	CertID    uint64 `json:"certId"`
	AssetID   uint64 `json:"assetId"`
	IssuedAt  int64  `json:"issuedAt"`
	ExpiresAt int64  `json:"expiresAt"`
	Issuer    string `json:"issuer"`
	Revoked   bool   `json:"revoked"`
	CertType  string `json:"certType"`
}

// AssetRecord is the local metadata row kept alongside the chain state so
// dashboards can list and search without hitting the ledger.
type AssetRecord struct {
	ID          string    `json:"id"`
	AssetID     uint64    `json:"asset_id"`
	Owner       string    `json:"owner"`
	AssetType   string    `json:"asset_type"`
	Description string    `json:"description"`
	Status      string    `json:"status"` // Pending, Confirmed, Failed, Inactive
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RegisterAssetRequest struct {
	AssetType   string `json:"asset_type"`
	Description string `json:"description"`
}

type TransferAssetRequest struct {
	NewOwner string `json:"new_owner"`
}

type IssueCertificateRequest struct {
	AssetID   uint64 `json:"asset_id"`
	ExpiresAt int64  `json:"expires_at"`
	CertType  string `json:"cert_type"`
}

type RenewCertificateRequest struct {
	ExpiresAt int64 `json:"expires_at"`
}
