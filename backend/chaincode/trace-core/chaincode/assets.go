package chaincode

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

func readAsset(ctx contractapi.TransactionContextInterface, assetID uint64) (*Asset, error) {
	raw, err := ctx.GetStub().GetState(idKey(assetKeyPrefix, assetID))
	if err != nil {
		return nil, fmt.Errorf("failed to read asset %d: %v", assetID, err)
	}
	if raw == nil {
		return nil, nil
	}
	var asset Asset
	if err := json.Unmarshal(raw, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

func readIDIndex(ctx contractapi.TransactionContextInterface, key string) ([]uint64, error) {
	raw, err := ctx.GetStub().GetState(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %v", key, err)
	}
	if raw == nil {
		return []uint64{}, nil
	}
	var ids []uint64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func appendIDIndex(ctx contractapi.TransactionContextInterface, key string, id uint64) error {
	ids, err := readIDIndex(ctx, key)
	if err != nil {
		return err
	}
	return putJSON(ctx, key, append(ids, id))
}

// RegisterAsset records a new industrial asset owned by the caller and
// returns its id. Requires the ASSET_CREATOR capability.
func (t *TraceabilityContract) RegisterAsset(ctx contractapi.TransactionContextInterface, assetType, description string) (uint64, error) {
	caller, err := t.requireRole(ctx, RoleAssetCreator)
	if err != nil {
		return 0, err
	}
	id, err := nextID(ctx, assetCounterKey)
	if err != nil {
		return 0, err
	}
	asset := Asset{
		AssetID:     id,
		Owner:       caller,
		Active:      true,
		AssetType:   assetType,
		Description: description,
	}
	if err := putJSON(ctx, idKey(assetKeyPrefix, id), asset); err != nil {
		return 0, err
	}
	if err := appendIDIndex(ctx, ownerIndexPrefix+caller, id); err != nil {
		return 0, err
	}
	if err := emitEvent(ctx, EventAssetRegistered, AssetRegisteredEvent{
		AssetID:   id,
		Owner:     caller,
		AssetType: assetType,
	}); err != nil {
		return 0, err
	}
	return id, nil
}

// DeactivateAsset marks an asset inactive. Owner-only.
func (t *TraceabilityContract) DeactivateAsset(ctx contractapi.TransactionContextInterface, assetID uint64) error {
	caller, err := clientAddress(ctx)
	if err != nil {
		return err
	}
	asset, err := readAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if asset == nil {
		return errors.New("Asset not found")
	}
	if asset.Owner != caller {
		return errors.New("Only owner")
	}
	if !asset.Active {
		return errors.New("Already inactive")
	}
	asset.Active = false
	if err := putJSON(ctx, idKey(assetKeyPrefix, assetID), asset); err != nil {
		return err
	}
	return emitEvent(ctx, EventAssetDeactivated, AssetDeactivatedEvent{AssetID: assetID})
}

// TransferAsset moves ownership of an active asset to another wallet and
// reindexes both owners' asset lists. Owner-only.
func (t *TraceabilityContract) TransferAsset(ctx contractapi.TransactionContextInterface, assetID uint64, newOwner string) error {
	caller, err := clientAddress(ctx)
	if err != nil {
		return err
	}
	asset, err := readAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if asset == nil {
		return errors.New("Asset not found")
	}
	if asset.Owner != caller {
		return errors.New("Only owner")
	}
	if newOwner == "" {
		return errors.New("Invalid transfer target")
	}
	if !asset.Active {
		return errors.New("Asset not active")
	}

	oldIDs, err := readIDIndex(ctx, ownerIndexPrefix+caller)
	if err != nil {
		return err
	}
	kept := make([]uint64, 0, len(oldIDs))
	for _, id := range oldIDs {
		if id != assetID {
			kept = append(kept, id)
		}
	}
	if err := putJSON(ctx, ownerIndexPrefix+caller, kept); err != nil {
		return err
	}
	if err := appendIDIndex(ctx, ownerIndexPrefix+newOwner, assetID); err != nil {
		return err
	}

	asset.Owner = newOwner
	return putJSON(ctx, idKey(assetKeyPrefix, assetID), asset)
}

// GetAsset returns an asset by id.
func (t *TraceabilityContract) GetAsset(ctx contractapi.TransactionContextInterface, assetID uint64) (*Asset, error) {
	asset, err := readAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, errors.New("Asset not found")
	}
	return asset, nil
}

// GetUserAssets returns the asset ids currently owned by a wallet.
func (t *TraceabilityContract) GetUserAssets(ctx contractapi.TransactionContextInterface, owner string) ([]uint64, error) {
	return readIDIndex(ctx, ownerIndexPrefix+owner)
}
