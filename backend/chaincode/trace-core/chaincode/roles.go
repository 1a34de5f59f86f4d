package chaincode

import (
	"errors"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// The capability tables are a legacy authority source kept separate from the
// registry's per-user role field. Certifier and asset-creator checks consult
// these tables only, never the User record.

func roleKey(role, address string) string {
	return roleKeyPrefix + role + ":" + address
}

func (t *TraceabilityContract) roleHeld(ctx contractapi.TransactionContextInterface, role, address string) (bool, error) {
	raw, err := ctx.GetStub().GetState(roleKey(role, address))
	if err != nil {
		return false, fmt.Errorf("failed to read role table: %v", err)
	}
	return raw != nil, nil
}

// GrantRole grants a role to an address. Admin-only. Granting an
// already-held role is a no-op.
func (t *TraceabilityContract) GrantRole(ctx contractapi.TransactionContextInterface, role, address string) error {
	if _, err := t.requireRole(ctx, RoleAdmin); err != nil {
		return err
	}
	if !isValidRole(role) {
		return errors.New("Invalid role")
	}
	if address == "" {
		return errors.New("Invalid address")
	}
	return ctx.GetStub().PutState(roleKey(role, address), []byte{0x01})
}

// RevokeRole revokes a role from an address. Admin-only. Revoking a role
// the address does not hold is a no-op.
func (t *TraceabilityContract) RevokeRole(ctx contractapi.TransactionContextInterface, role, address string) error {
	if _, err := t.requireRole(ctx, RoleAdmin); err != nil {
		return err
	}
	if !isValidRole(role) {
		return errors.New("Invalid role")
	}
	return ctx.GetStub().DelState(roleKey(role, address))
}

// GrantCertifierRole is the legacy bootstrap path for certifiers.
func (t *TraceabilityContract) GrantCertifierRole(ctx contractapi.TransactionContextInterface, address string) error {
	return t.GrantRole(ctx, RoleCertifier, address)
}

func (t *TraceabilityContract) RevokeCertifierRole(ctx contractapi.TransactionContextInterface, address string) error {
	return t.RevokeRole(ctx, RoleCertifier, address)
}

// GrantAssetCreatorRole is the legacy bootstrap path for asset creators.
func (t *TraceabilityContract) GrantAssetCreatorRole(ctx contractapi.TransactionContextInterface, address string) error {
	return t.GrantRole(ctx, RoleAssetCreator, address)
}

func (t *TraceabilityContract) RevokeAssetCreatorRole(ctx contractapi.TransactionContextInterface, address string) error {
	return t.RevokeRole(ctx, RoleAssetCreator, address)
}

// HasRole reports whether an address holds a role. Unknown role tags simply
// report false; this view never fails on bad input.
func (t *TraceabilityContract) HasRole(ctx contractapi.TransactionContextInterface, role, address string) (bool, error) {
	if !isValidRole(role) {
		return false, nil
	}
	return t.roleHeld(ctx, role, address)
}
