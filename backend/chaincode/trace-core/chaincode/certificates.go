package chaincode

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

func readCertificate(ctx contractapi.TransactionContextInterface, certID uint64) (*Certificate, error) {
	raw, err := ctx.GetStub().GetState(idKey(certKeyPrefix, certID))
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate %d: %v", certID, err)
	}
	if raw == nil {
		return nil, nil
	}
	var cert Certificate
	if err := json.Unmarshal(raw, &cert); err != nil {
		return nil, err
	}
	return &cert, nil
}

// IssueCertificate issues a quality certificate against an active asset and
// returns the certificate id. Requires the CERTIFIER capability; the
// expiration must be strictly in the future.
func (t *TraceabilityContract) IssueCertificate(ctx contractapi.TransactionContextInterface, assetID uint64, expiresAt int64, certType string) (uint64, error) {
	caller, err := t.requireRole(ctx, RoleCertifier)
	if err != nil {
		return 0, err
	}
	asset, err := readAsset(ctx, assetID)
	if err != nil {
		return 0, err
	}
	if asset == nil {
		return 0, errors.New("Asset not found")
	}
	if !asset.Active {
		return 0, errors.New("Asset not active")
	}
	now, err := txTime(ctx)
	if err != nil {
		return 0, err
	}
	if expiresAt <= now {
		return 0, errors.New("Invalid expiration")
	}

	id, err := nextID(ctx, certCounterKey)
	if err != nil {
		return 0, err
	}
	cert := Certificate{
		CertID:    id,
		AssetID:   assetID,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
		Issuer:    caller,
		Revoked:   false,
		CertType:  certType,
	}
	if err := putJSON(ctx, idKey(certKeyPrefix, id), cert); err != nil {
		return 0, err
	}
	if err := appendIDIndex(ctx, certIndexPrefix+idKey("", assetID), id); err != nil {
		return 0, err
	}
	if err := emitEvent(ctx, EventCertificateIssued, CertificateIssuedEvent{
		CertID:    id,
		AssetID:   assetID,
		Issuer:    caller,
		ExpiresAt: expiresAt,
	}); err != nil {
		return 0, err
	}
	return id, nil
}

// RenewCertificate extends a certificate's expiration. Requires the
// CERTIFIER capability. Revoked certificates cannot be renewed.
func (t *TraceabilityContract) RenewCertificate(ctx contractapi.TransactionContextInterface, certID uint64, newExpiration int64) error {
	if _, err := t.requireRole(ctx, RoleCertifier); err != nil {
		return err
	}
	cert, err := readCertificate(ctx, certID)
	if err != nil {
		return err
	}
	if cert == nil {
		return errors.New("Certificate not found")
	}
	if cert.Revoked {
		return errors.New("Revoked certificate")
	}
	now, err := txTime(ctx)
	if err != nil {
		return err
	}
	if newExpiration <= now {
		return errors.New("Invalid expiration")
	}
	cert.ExpiresAt = newExpiration
	if err := putJSON(ctx, idKey(certKeyPrefix, certID), cert); err != nil {
		return err
	}
	return emitEvent(ctx, EventCertificateRenewed, CertificateRenewedEvent{
		CertID:    certID,
		AssetID:   cert.AssetID,
		ExpiresAt: newExpiration,
	})
}

// RevokeCertificate permanently revokes a certificate. Requires the
// CERTIFIER capability. One-way; a second revoke fails.
func (t *TraceabilityContract) RevokeCertificate(ctx contractapi.TransactionContextInterface, certID uint64) error {
	if _, err := t.requireRole(ctx, RoleCertifier); err != nil {
		return err
	}
	cert, err := readCertificate(ctx, certID)
	if err != nil {
		return err
	}
	if cert == nil {
		return errors.New("Certificate not found")
	}
	if cert.Revoked {
		return errors.New("Already revoked")
	}
	cert.Revoked = true
	if err := putJSON(ctx, idKey(certKeyPrefix, certID), cert); err != nil {
		return err
	}
	return emitEvent(ctx, EventCertificateRevoked, CertificateRevokedEvent{CertID: certID})
}

// GetCertificate returns a certificate by id.
func (t *TraceabilityContract) GetCertificate(ctx contractapi.TransactionContextInterface, certID uint64) (*Certificate, error) {
	cert, err := readCertificate(ctx, certID)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, errors.New("Certificate not found")
	}
	return cert, nil
}

// GetCertificatesByAsset returns the certificate ids issued against an
// asset, in issuance order.
func (t *TraceabilityContract) GetCertificatesByAsset(ctx contractapi.TransactionContextInterface, assetID uint64) ([]uint64, error) {
	return readIDIndex(ctx, certIndexPrefix+idKey("", assetID))
}

// IsCertificateValid derives validity: not revoked and not yet expired.
func (t *TraceabilityContract) IsCertificateValid(ctx contractapi.TransactionContextInterface, certID uint64) (bool, error) {
	cert, err := readCertificate(ctx, certID)
	if err != nil {
		return false, err
	}
	if cert == nil {
		return false, errors.New("Certificate not found")
	}
	now, err := txTime(ctx)
	if err != nil {
		return false, err
	}
	return !cert.Revoked && cert.ExpiresAt > now, nil
}
