package chaincode_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabanchio/industrial-traceability-blockchain/backend/chaincode/trace-core/chaincode"
)

func TestRegisterAssetRoundTrip(t *testing.T) {
	contract, stub, admin := newLedger(t)
	require.NoError(t, contract.GrantAssetCreatorRole(admin, walletOne))

	creator := asWallet(stub, walletOne)
	id, err := contract.RegisterAsset(creator, "Metal", "High grade steel")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	asset, err := contract.GetAsset(admin, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), asset.AssetID)
	assert.Equal(t, walletOne, asset.Owner)
	assert.True(t, asset.Active)
	assert.Equal(t, "Metal", asset.AssetType)
	assert.Equal(t, "High grade steel", asset.Description)

	event := stub.LastEvent()
	require.NotNil(t, event)
	assert.Equal(t, "AssetRegistered", event.Name)
	var payload chaincode.AssetRegisteredEvent
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, uint64(1), payload.AssetID)
	assert.Equal(t, walletOne, payload.Owner)
	assert.Equal(t, "Metal", payload.AssetType)
}

func TestRegisterAssetRequiresCreatorRole(t *testing.T) {
	contract, stub, _ := newLedger(t)

	_, err := contract.RegisterAsset(asWallet(stub, walletOne), "Metal", "Steel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
	assert.Contains(t, err.Error(), chaincode.RoleAssetCreator)
}

func TestAssetIDsIncrementAndIndexByOwner(t *testing.T) {
	contract, stub, admin := newLedger(t)
	require.NoError(t, contract.GrantAssetCreatorRole(admin, walletOne))
	creator := asWallet(stub, walletOne)

	id1, err := contract.RegisterAsset(creator, "Metal", "Steel")
	require.NoError(t, err)
	id2, err := contract.RegisterAsset(creator, "Wood", "Pine")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), id2)

	ids, err := contract.GetUserAssets(admin, walletOne)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)
}

func TestDeactivateAsset(t *testing.T) {
	contract, stub, admin := newLedger(t)
	require.NoError(t, contract.GrantAssetCreatorRole(admin, walletOne))
	creator := asWallet(stub, walletOne)

	_, err := contract.RegisterAsset(creator, "Metal", "Steel")
	require.NoError(t, err)

	err = contract.DeactivateAsset(asWallet(stub, walletTwo), 1)
	require.EqualError(t, err, "Only owner")

	require.NoError(t, contract.DeactivateAsset(creator, 1))

	asset, err := contract.GetAsset(admin, 1)
	require.NoError(t, err)
	assert.False(t, asset.Active)

	event := stub.LastEvent()
	require.NotNil(t, event)
	assert.Equal(t, "AssetDeactivated", event.Name)

	err = contract.DeactivateAsset(creator, 1)
	require.EqualError(t, err, "Already inactive")

	err = contract.DeactivateAsset(creator, 99)
	require.EqualError(t, err, "Asset not found")
}

func TestTransferAsset(t *testing.T) {
	contract, stub, admin := newLedger(t)
	require.NoError(t, contract.GrantAssetCreatorRole(admin, walletOne))
	creator := asWallet(stub, walletOne)

	_, err := contract.RegisterAsset(creator, "Metal", "Steel")
	require.NoError(t, err)
	_, err = contract.RegisterAsset(creator, "Wood", "Pine")
	require.NoError(t, err)

	err = contract.TransferAsset(creator, 1, "")
	require.EqualError(t, err, "Invalid transfer target")

	err = contract.TransferAsset(asWallet(stub, walletTwo), 1, walletThree)
	require.EqualError(t, err, "Only owner")

	require.NoError(t, contract.TransferAsset(creator, 1, walletTwo))

	asset, err := contract.GetAsset(admin, 1)
	require.NoError(t, err)
	assert.Equal(t, walletTwo, asset.Owner)

	oldOwner, err := contract.GetUserAssets(admin, walletOne)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, oldOwner)

	newOwner, err := contract.GetUserAssets(admin, walletTwo)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, newOwner)

	// An inactive asset cannot change hands.
	require.NoError(t, contract.DeactivateAsset(asWallet(stub, walletTwo), 1))
	err = contract.TransferAsset(asWallet(stub, walletTwo), 1, walletThree)
	require.EqualError(t, err, "Asset not active")
}

func TestGetAssetUnknownID(t *testing.T) {
	contract, _, admin := newLedger(t)

	_, err := contract.GetAsset(admin, 1)
	require.EqualError(t, err, "Asset not found")
}
