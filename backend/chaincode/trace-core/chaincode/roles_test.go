package chaincode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabanchio/industrial-traceability-blockchain/backend/chaincode/trace-core/chaincode"
)

func TestGrantAndRevokeCertifierRole(t *testing.T) {
	contract, _, admin := newLedger(t)

	require.NoError(t, contract.GrantCertifierRole(admin, walletOne))

	held, err := contract.HasRole(admin, chaincode.RoleCertifier, walletOne)
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, contract.RevokeCertifierRole(admin, walletOne))

	held, err = contract.HasRole(admin, chaincode.RoleCertifier, walletOne)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestGrantAndRevokeAssetCreatorRole(t *testing.T) {
	contract, _, admin := newLedger(t)

	require.NoError(t, contract.GrantAssetCreatorRole(admin, walletOne))

	held, err := contract.HasRole(admin, chaincode.RoleAssetCreator, walletOne)
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, contract.RevokeAssetCreatorRole(admin, walletOne))

	held, err = contract.HasRole(admin, chaincode.RoleAssetCreator, walletOne)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestGrantAndRevokeAreIdempotent(t *testing.T) {
	contract, _, admin := newLedger(t)

	require.NoError(t, contract.GrantCertifierRole(admin, walletOne))
	require.NoError(t, contract.GrantCertifierRole(admin, walletOne))

	// Revoking a role that is not held is tolerated too.
	require.NoError(t, contract.RevokeAssetCreatorRole(admin, walletOne))
}

func TestGrantRoleRequiresAdmin(t *testing.T) {
	contract, stub, _ := newLedger(t)

	err := contract.GrantCertifierRole(asWallet(stub, walletOne), walletTwo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
	assert.Contains(t, err.Error(), chaincode.RoleAdmin)
	assert.Contains(t, err.Error(), walletOne)
}

func TestGrantRoleRejectsUnknownTag(t *testing.T) {
	contract, _, admin := newLedger(t)

	err := contract.GrantRole(admin, "SUPERUSER", walletOne)
	require.EqualError(t, err, "Invalid role")

	err = contract.GrantRole(admin, chaincode.RoleAuditor, "")
	require.EqualError(t, err, "Invalid address")
}

func TestHasRoleNeverFails(t *testing.T) {
	contract, _, admin := newLedger(t)

	held, err := contract.HasRole(admin, "SUPERUSER", walletOne)
	require.NoError(t, err)
	assert.False(t, held)

	held, err = contract.HasRole(admin, chaincode.RoleDistributor, "unknown-wallet")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestInitLedgerGrantsAdminToDeployer(t *testing.T) {
	contract, _, admin := newLedger(t)

	held, err := contract.HasRole(admin, chaincode.RoleAdmin, adminWallet)
	require.NoError(t, err)
	assert.True(t, held)
}
