package chaincode

// Valid registry roles. Role tags outside this set are rejected everywhere.
const (
	RoleAdmin        = "ADMIN"
	RoleCertifier    = "CERTIFIER"
	RoleAssetCreator = "ASSET_CREATOR"
	RoleAuditor      = "AUDITOR"
	RoleManufacturer = "MANUFACTURER"
	RoleDistributor  = "DISTRIBUTOR"
)

func isValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCertifier, RoleAssetCreator, RoleAuditor, RoleManufacturer, RoleDistributor:
		return true
	}
	return false
}

// User is a registered platform identity. At most one wallet in Wallets is
// active at any time; ActiveWallet is "" when none is.
type User struct {
	Username     string   `json:"username"`
	Role         string   `json:"role"`
	Active       bool     `json:"active"`
	RegisteredAt int64    `json:"registeredAt"`
	ActiveWallet string   `json:"activeWallet"`
	Wallets      []string `json:"wallets"`
}

// WalletInfo is the per-address side of the user/wallet binding.
// DeactivatedAt stays 0 ("never") when a wallet is merely superseded by a
// newer link; it is stamped only on explicit unlink or user deactivation.
type WalletInfo struct {
	Address       string `json:"address"`
	Username      string `json:"username"`
	Active        bool   `json:"active"`
	LinkedAt      int64  `json:"linkedAt"`
	DeactivatedAt int64  `json:"deactivatedAt"`
}

// Asset is a registered industrial item.
type Asset struct {
	AssetID     uint64 `json:"assetId"`
	Owner       string `json:"owner"`
	Active      bool   `json:"active"`
	AssetType   string `json:"assetType"`
	Description string `json:"description"`
}

// Certificate is a time-bounded attestation attached to one asset.
type Certificate struct {
	CertID    uint64 `json:"certId"`
	AssetID   uint64 `json:"assetId"`
	IssuedAt  int64  `json:"issuedAt"`
	ExpiresAt int64  `json:"expiresAt"`
	Issuer    string `json:"issuer"`
	Revoked   bool   `json:"revoked"`
	CertType  string `json:"certType"`
}

// Event payloads. Names and fields are part of the external interface;
// off-chain indexers key off them.

type AssetRegisteredEvent struct {
	AssetID   uint64 `json:"assetId"`
	Owner     string `json:"owner"`
	AssetType string `json:"assetType"`
}

type AssetDeactivatedEvent struct {
	AssetID uint64 `json:"assetId"`
}

type CertificateIssuedEvent struct {
	CertID    uint64 `json:"certId"`
	AssetID   uint64 `json:"assetId"`
	Issuer    string `json:"issuer"`
	ExpiresAt int64  `json:"expiresAt"`
}

type CertificateRenewedEvent struct {
	CertID    uint64 `json:"certId"`
	AssetID   uint64 `json:"assetId"`
	ExpiresAt int64  `json:"expiresAt"`
}

type CertificateRevokedEvent struct {
	CertID uint64 `json:"certId"`
}

type UserWalletLinkedEvent struct {
	WalletAddress string `json:"walletAddress"`
	Username      string `json:"username"`
	Role          string `json:"role"`
}

const (
	EventAssetRegistered    = "AssetRegistered"
	EventAssetDeactivated   = "AssetDeactivated"
	EventCertificateIssued  = "CertificateIssued"
	EventCertificateRenewed = "CertificateRenewed"
	EventCertificateRevoked = "CertificateRevoked"
	EventUserWalletLinked   = "UserWalletLinked"
)
