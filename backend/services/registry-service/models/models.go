package models

// On-chain records, decoded straight from chaincode responses.

type User struct {
	Username     string   `json:"username"`
	Role         string   `json:"role"`
	Active       bool     `json:"active"`
	RegisteredAt int64    `json:"registeredAt"`
	ActiveWallet string   `json:"activeWallet"`
	Wallets      []string `json:"wallets"`
}

type WalletInfo struct {
	Address       string `json:"address"`
	Username      string `json:"username"`
	Active        bool   `json:"active"`
	LinkedAt      int64  `json:"linkedAt"`
	DeactivatedAt int64  `json:"deactivatedAt"`
}

type RegisterUserRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LinkWalletRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type AssignRoleRequest struct {
	Role string `json:"role"`
}

type GrantRoleRequest struct {
	Role    string `json:"role"`
	Address string `json:"address"`
}
