package chaincode

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

func userKey(username string) string {
	return userKeyPrefix + username
}

func walletKey(address string) string {
	return walletKeyPrefix + address
}

func readUser(ctx contractapi.TransactionContextInterface, username string) (*User, error) {
	raw, err := ctx.GetStub().GetState(userKey(username))
	if err != nil {
		return nil, fmt.Errorf("failed to read user %s: %v", username, err)
	}
	if raw == nil {
		return nil, nil
	}
	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func readWallet(ctx contractapi.TransactionContextInterface, address string) (*WalletInfo, error) {
	raw, err := ctx.GetStub().GetState(walletKey(address))
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet %s: %v", address, err)
	}
	if raw == nil {
		return nil, nil
	}
	var wallet WalletInfo
	if err := json.Unmarshal(raw, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// RegisterUser creates a user with no wallet. Admin-only. The username is
// immutable and must be unique across active and inactive users.
func (t *TraceabilityContract) RegisterUser(ctx contractapi.TransactionContextInterface, username, role string) error {
	if _, err := t.requireRole(ctx, RoleAdmin); err != nil {
		return err
	}
	if username == "" {
		return errors.New("Invalid username")
	}
	if !isValidRole(role) {
		return errors.New("Invalid role")
	}
	existing, err := readUser(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New("User already exists")
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}
	user := User{
		Username:     username,
		Role:         role,
		Active:       true,
		RegisteredAt: now,
		ActiveWallet: "",
		Wallets:      []string{},
	}
	return putJSON(ctx, userKey(username), user)
}

// LinkWalletToUser links the caller's wallet to a username as its active
// wallet. If the username does not exist yet, the user is created in the
// same transaction and the caller additionally receives the ASSET_CREATOR
// capability (legacy bootstrap path, so freshly self-registered users can
// register assets without an admin round-trip).
//
// The previously active wallet, if any, is superseded: marked inactive but
// not stamped as deactivated, so it stays eligible for auto-promotion.
func (t *TraceabilityContract) LinkWalletToUser(ctx contractapi.TransactionContextInterface, username, role string) error {
	caller, err := clientAddress(ctx)
	if err != nil {
		return err
	}
	if username == "" {
		return errors.New("Invalid username")
	}
	if !isValidRole(role) {
		return errors.New("Invalid role")
	}

	wallet, err := readWallet(ctx, caller)
	if err != nil {
		return err
	}
	if wallet != nil && wallet.Active {
		// One address may be the active wallet of at most one username.
		return errors.New("Wallet already linked")
	}

	user, err := readUser(ctx, username)
	if err != nil {
		return err
	}
	now, err := txTime(ctx)
	if err != nil {
		return err
	}

	if user == nil {
		user = &User{
			Username:     username,
			Role:         role,
			Active:       true,
			RegisteredAt: now,
			Wallets:      []string{},
		}
		if err := ctx.GetStub().PutState(roleKey(RoleAssetCreator, caller), []byte{0x01}); err != nil {
			return err
		}
	} else if !user.Active {
		return errors.New("User is inactive")
	}

	if user.ActiveWallet != "" {
		prev, err := readWallet(ctx, user.ActiveWallet)
		if err != nil {
			return err
		}
		if prev != nil {
			prev.Active = false
			if err := putJSON(ctx, walletKey(prev.Address), prev); err != nil {
				return err
			}
		}
	}

	if wallet == nil || wallet.Username != username {
		wallet = &WalletInfo{Address: caller, Username: username}
	}
	wallet.Active = true
	wallet.LinkedAt = now
	wallet.DeactivatedAt = 0
	if err := putJSON(ctx, walletKey(caller), wallet); err != nil {
		return err
	}

	if !containsAddress(user.Wallets, caller) {
		user.Wallets = append(user.Wallets, caller)
	}
	user.ActiveWallet = caller
	if err := putJSON(ctx, userKey(username), user); err != nil {
		return err
	}

	return emitEvent(ctx, EventUserWalletLinked, UserWalletLinkedEvent{
		WalletAddress: caller,
		Username:      username,
		Role:          role,
	})
}

// UnlinkWallet deactivates the caller's wallet for a username. The caller
// must be the username's currently active wallet.
func (t *TraceabilityContract) UnlinkWallet(ctx contractapi.TransactionContextInterface, username string) error {
	caller, err := clientAddress(ctx)
	if err != nil {
		return err
	}
	return t.unlinkActiveWallet(ctx, username, caller)
}

// AdminUnlinkWallet deactivates a username's active wallet on behalf of an
// admin, with the same promotion behavior as a self-service unlink.
func (t *TraceabilityContract) AdminUnlinkWallet(ctx contractapi.TransactionContextInterface, username string) error {
	if _, err := t.requireRole(ctx, RoleAdmin); err != nil {
		return err
	}
	user, err := readUser(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("User not found")
	}
	if user.ActiveWallet == "" {
		return errors.New("No active wallet")
	}
	return t.unlinkActiveWallet(ctx, username, user.ActiveWallet)
}

// unlinkActiveWallet stamps the wallet as explicitly deactivated and then
// promotes the most-recently-linked still-eligible wallet, if any. Eligible
// means: bound to this username, currently inactive, and never explicitly
// deactivated. Having no successor is not an error; the username is simply
// left without an active wallet.
func (t *TraceabilityContract) unlinkActiveWallet(ctx contractapi.TransactionContextInterface, username, address string) error {
	user, err := readUser(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("User not found")
	}
	if user.ActiveWallet == "" || user.ActiveWallet != address {
		return errors.New("Not the active wallet")
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}
	wallet, err := readWallet(ctx, address)
	if err != nil {
		return err
	}
	if wallet == nil {
		return errors.New("Wallet not found")
	}
	wallet.Active = false
	wallet.DeactivatedAt = now
	if err := putJSON(ctx, walletKey(address), wallet); err != nil {
		return err
	}
	user.ActiveWallet = ""

	var successor *WalletInfo
	for _, addr := range user.Wallets {
		if addr == address {
			continue
		}
		candidate, err := readWallet(ctx, addr)
		if err != nil {
			return err
		}
		if candidate == nil || candidate.Username != username || candidate.Active || candidate.DeactivatedAt != 0 {
			continue
		}
		if successor == nil || candidate.LinkedAt > successor.LinkedAt {
			successor = candidate
		}
	}
	if successor != nil {
		successor.Active = true
		if err := putJSON(ctx, walletKey(successor.Address), successor); err != nil {
			return err
		}
		user.ActiveWallet = successor.Address
	}

	return putJSON(ctx, userKey(username), user)
}

// AssignRole overwrites a user's registry role. Admin-only. The contract
// does not block an admin from reassigning their own username; that guard
// lives in the UI.
func (t *TraceabilityContract) AssignRole(ctx contractapi.TransactionContextInterface, username, newRole string) error {
	if _, err := t.requireRole(ctx, RoleAdmin); err != nil {
		return err
	}
	if !isValidRole(newRole) {
		return errors.New("Invalid role")
	}
	user, err := readUser(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("User not found")
	}
	if !user.Active {
		return errors.New("User is inactive")
	}
	user.Role = newRole
	return putJSON(ctx, userKey(username), user)
}

// DeactivateUser soft-deletes a user and explicitly deactivates every wallet
// currently active for it. No auto-promotion applies; deactivation is
// terminal until an admin reactivates the user.
func (t *TraceabilityContract) DeactivateUser(ctx contractapi.TransactionContextInterface, username string) error {
	if _, err := t.requireRole(ctx, RoleAdmin); err != nil {
		return err
	}
	user, err := readUser(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("User not found")
	}
	if !user.Active {
		return errors.New("User is inactive")
	}

	now, err := txTime(ctx)
	if err != nil {
		return err
	}
	for _, addr := range user.Wallets {
		wallet, err := readWallet(ctx, addr)
		if err != nil {
			return err
		}
		// A wallet from this user's history may have rebound to another
		// username since; it is no longer ours to touch.
		if wallet == nil || wallet.Username != username || !wallet.Active {
			continue
		}
		wallet.Active = false
		wallet.DeactivatedAt = now
		if err := putJSON(ctx, walletKey(addr), wallet); err != nil {
			return err
		}
	}
	user.Active = false
	user.ActiveWallet = ""
	return putJSON(ctx, userKey(username), user)
}

// ReactivateUser re-enables a deactivated user. Previously linked wallets
// are not restored; the user must relink one.
func (t *TraceabilityContract) ReactivateUser(ctx contractapi.TransactionContextInterface, username string) error {
	if _, err := t.requireRole(ctx, RoleAdmin); err != nil {
		return err
	}
	user, err := readUser(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("User not found")
	}
	if user.Active {
		return errors.New("User already active")
	}
	user.Active = true
	return putJSON(ctx, userKey(username), user)
}

// GetUserByUsername returns the full user record, including the active
// wallet ("" when none) and the historical wallet list.
func (t *TraceabilityContract) GetUserByUsername(ctx contractapi.TransactionContextInterface, username string) (*User, error) {
	user, err := readUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("User not found")
	}
	return user, nil
}

// GetAllWallets returns every address ever linked to a username, in link
// order.
func (t *TraceabilityContract) GetAllWallets(ctx contractapi.TransactionContextInterface, username string) ([]string, error) {
	user, err := readUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("User not found")
	}
	return user.Wallets, nil
}

// GetActiveWallet returns the username's active wallet, or "" when none.
func (t *TraceabilityContract) GetActiveWallet(ctx contractapi.TransactionContextInterface, username string) (string, error) {
	user, err := readUser(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", errors.New("User not found")
	}
	return user.ActiveWallet, nil
}

// GetWalletInfo returns the binding record for a wallet address.
func (t *TraceabilityContract) GetWalletInfo(ctx contractapi.TransactionContextInterface, address string) (*WalletInfo, error) {
	wallet, err := readWallet(ctx, address)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, errors.New("Wallet not found")
	}
	return wallet, nil
}

// GetUsernameByWallet resolves a wallet address to a username through the
// active binding only; superseded or unlinked wallets do not resolve.
func (t *TraceabilityContract) GetUsernameByWallet(ctx contractapi.TransactionContextInterface, address string) (string, error) {
	wallet, err := readWallet(ctx, address)
	if err != nil {
		return "", err
	}
	if wallet == nil || !wallet.Active {
		return "", errors.New("Wallet not linked")
	}
	return wallet.Username, nil
}

// IsUserActive reports whether a username exists and is active.
func (t *TraceabilityContract) IsUserActive(ctx contractapi.TransactionContextInterface, username string) (bool, error) {
	user, err := readUser(ctx, username)
	if err != nil {
		return false, err
	}
	return user != nil && user.Active, nil
}

func containsAddress(addrs []string, address string) bool {
	for _, a := range addrs {
		if a == address {
			return true
		}
	}
	return false
}
