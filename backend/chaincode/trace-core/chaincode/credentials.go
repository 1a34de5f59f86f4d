package chaincode

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Credential side table for the offline demo login. It is deliberately a
// plain digest comparison: chaincode must be deterministic across endorsers,
// which rules out salted hashes, and the table is isolated from the wallet
// state machine so it can be removed without touching it.

func passwordKey(username string) string {
	return passwordKeyPrefix + username
}

func passwordDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// SetPassword stores the credential digest for a username. Allowed for an
// admin or for the username's own active wallet.
func (t *TraceabilityContract) SetPassword(ctx contractapi.TransactionContextInterface, username, password string) error {
	caller, err := clientAddress(ctx)
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("Invalid password")
	}
	user, err := readUser(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("User not found")
	}

	isAdmin, err := t.roleHeld(ctx, RoleAdmin, caller)
	if err != nil {
		return err
	}
	if !isAdmin && user.ActiveWallet != caller {
		return fmt.Errorf("unauthorized: account %s is missing role %s", caller, RoleAdmin)
	}
	return ctx.GetStub().PutState(passwordKey(username), []byte(passwordDigest(password)))
}

// VerifyPassword checks a credential against the stored digest. A username
// with no stored credential verifies as false, not as an error, so the login
// flow can fall through to its other paths.
func (t *TraceabilityContract) VerifyPassword(ctx contractapi.TransactionContextInterface, username, password string) (bool, error) {
	stored, err := ctx.GetStub().GetState(passwordKey(username))
	if err != nil {
		return false, fmt.Errorf("failed to read credential for %s: %v", username, err)
	}
	if stored == nil {
		return false, nil
	}
	return subtle.ConstantTimeCompare(stored, []byte(passwordDigest(password))) == 1, nil
}
