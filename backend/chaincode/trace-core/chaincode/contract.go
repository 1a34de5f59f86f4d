package chaincode

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// TraceabilityContract manages users, wallets, assets and quality
// certificates for the industrial traceability platform.
type TraceabilityContract struct {
	contractapi.Contract
}

// World-state key prefixes. All registries live in the same world state;
// mutation only happens through the transaction functions in this package.
const (
	userKeyPrefix     = "user:"
	walletKeyPrefix   = "wallet:"
	assetKeyPrefix    = "asset:"
	certKeyPrefix     = "cert:"
	roleKeyPrefix     = "role:"
	passwordKeyPrefix = "pwd:"
	ownerIndexPrefix  = "ownerassets:"
	certIndexPrefix   = "assetcerts:"

	assetCounterKey = "counter:assets"
	certCounterKey  = "counter:certs"
)

// InitLedger bootstraps the access-control tables by granting ADMIN to the
// deploying identity. Subsequent admin operations authorize against this.
func (t *TraceabilityContract) InitLedger(ctx contractapi.TransactionContextInterface) error {
	caller, err := clientAddress(ctx)
	if err != nil {
		return err
	}
	return ctx.GetStub().PutState(roleKey(RoleAdmin, caller), []byte{0x01})
}

// clientAddress returns the caller's wallet address: the Fabric client
// identity ID string. The empty string is the "no wallet" sentinel.
func clientAddress(ctx contractapi.TransactionContextInterface) (string, error) {
	id, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity: %v", err)
	}
	return id, nil
}

// txTime returns the transaction timestamp in Unix seconds. The tx
// timestamp, not the wall clock, keeps endorsers deterministic.
func txTime(ctx contractapi.TransactionContextInterface) (int64, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return 0, fmt.Errorf("failed to get tx timestamp: %v", err)
	}
	return ts.AsTime().Unix(), nil
}

// requireRole authorizes the caller against a capability table and returns
// the caller address on success.
func (t *TraceabilityContract) requireRole(ctx contractapi.TransactionContextInterface, role string) (string, error) {
	caller, err := clientAddress(ctx)
	if err != nil {
		return "", err
	}
	held, err := t.roleHeld(ctx, role, caller)
	if err != nil {
		return "", err
	}
	if !held {
		return "", fmt.Errorf("unauthorized: account %s is missing role %s", caller, role)
	}
	return caller, nil
}

// nextID allocates the next auto-incrementing id for a counter key.
// The first allocated id is 1.
func nextID(ctx contractapi.TransactionContextInterface, counterKey string) (uint64, error) {
	raw, err := ctx.GetStub().GetState(counterKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %v", counterKey, err)
	}
	var current uint64
	if raw != nil {
		current = binary.BigEndian.Uint64(raw)
	}
	next := current + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := ctx.GetStub().PutState(counterKey, buf); err != nil {
		return 0, fmt.Errorf("failed to update counter %s: %v", counterKey, err)
	}
	return next, nil
}

func putJSON(ctx contractapi.TransactionContextInterface, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return ctx.GetStub().PutState(key, raw)
}

func emitEvent(ctx contractapi.TransactionContextInterface, name string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return ctx.GetStub().SetEvent(name, raw)
}

func idKey(prefix string, id uint64) string {
	return prefix + strconv.FormatUint(id, 10)
}
