package chaincode_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabanchio/industrial-traceability-blockchain/backend/chaincode/trace-core/chaincode"
)

// certFixture sets up an active asset owned by walletOne and a certifier
// capability on walletTwo.
func certFixture(t *testing.T) (*chaincode.TraceabilityContract, *stubFixture) {
	t.Helper()
	contract, stub, admin := newLedger(t)
	require.NoError(t, contract.GrantAssetCreatorRole(admin, walletOne))
	require.NoError(t, contract.GrantCertifierRole(admin, walletTwo))

	_, err := contract.RegisterAsset(asWallet(stub, walletOne), "Metal", "High grade steel")
	require.NoError(t, err)

	return contract, &stubFixture{stub: stub, admin: admin}
}

func TestIssueCertificateLifecycle(t *testing.T) {
	contract, f := certFixture(t)
	certifier := asWallet(f.stub, walletTwo)
	expiresAt := f.stub.Timestamp.Add(30 * 24 * time.Hour).Unix()

	id, err := contract.IssueCertificate(certifier, 1, expiresAt, "ISO-9001")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	cert, err := contract.GetCertificate(f.admin, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cert.CertID)
	assert.Equal(t, uint64(1), cert.AssetID)
	assert.Equal(t, walletTwo, cert.Issuer)
	assert.Equal(t, expiresAt, cert.ExpiresAt)
	assert.Equal(t, "ISO-9001", cert.CertType)
	assert.False(t, cert.Revoked)

	event := f.stub.LastEvent()
	require.NotNil(t, event)
	assert.Equal(t, "CertificateIssued", event.Name)
	var payload chaincode.CertificateIssuedEvent
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, uint64(1), payload.CertID)
	assert.Equal(t, uint64(1), payload.AssetID)
	assert.Equal(t, walletTwo, payload.Issuer)
	assert.Equal(t, expiresAt, payload.ExpiresAt)

	valid, err := contract.IsCertificateValid(f.admin, 1)
	require.NoError(t, err)
	assert.True(t, valid)

	require.NoError(t, contract.RevokeCertificate(certifier, 1))

	valid, err = contract.IsCertificateValid(f.admin, 1)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestIssueCertificateGuards(t *testing.T) {
	contract, f := certFixture(t)
	certifier := asWallet(f.stub, walletTwo)
	future := f.stub.Timestamp.Add(24 * time.Hour).Unix()

	_, err := contract.IssueCertificate(asWallet(f.stub, walletThree), 1, future, "ISO-9001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
	assert.Contains(t, err.Error(), chaincode.RoleCertifier)

	_, err = contract.IssueCertificate(certifier, 99, future, "ISO-9001")
	require.EqualError(t, err, "Asset not found")

	past := f.stub.Timestamp.Add(-time.Hour).Unix()
	_, err = contract.IssueCertificate(certifier, 1, past, "ISO-9001")
	require.EqualError(t, err, "Invalid expiration")

	_, err = contract.IssueCertificate(certifier, 1, f.stub.Timestamp.Unix(), "ISO-9001")
	require.EqualError(t, err, "Invalid expiration")

	require.NoError(t, contract.DeactivateAsset(asWallet(f.stub, walletOne), 1))
	_, err = contract.IssueCertificate(certifier, 1, future, "ISO-9001")
	require.EqualError(t, err, "Asset not active")
}

func TestCertificateIDsIncrementAndIndexByAsset(t *testing.T) {
	contract, f := certFixture(t)
	certifier := asWallet(f.stub, walletTwo)
	future := f.stub.Timestamp.Add(24 * time.Hour).Unix()

	id1, err := contract.IssueCertificate(certifier, 1, future, "ISO-9001")
	require.NoError(t, err)
	id2, err := contract.IssueCertificate(certifier, 1, future, "FSC")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), id2)

	ids, err := contract.GetCertificatesByAsset(f.admin, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)
}

func TestRenewCertificate(t *testing.T) {
	contract, f := certFixture(t)
	certifier := asWallet(f.stub, walletTwo)
	future := f.stub.Timestamp.Add(24 * time.Hour).Unix()

	_, err := contract.IssueCertificate(certifier, 1, future, "ISO-9001")
	require.NoError(t, err)

	renewed := f.stub.Timestamp.Add(48 * time.Hour).Unix()
	require.NoError(t, contract.RenewCertificate(certifier, 1, renewed))

	cert, err := contract.GetCertificate(f.admin, 1)
	require.NoError(t, err)
	assert.Equal(t, renewed, cert.ExpiresAt)

	event := f.stub.LastEvent()
	require.NotNil(t, event)
	assert.Equal(t, "CertificateRenewed", event.Name)
	var payload chaincode.CertificateRenewedEvent
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, uint64(1), payload.CertID)
	assert.Equal(t, uint64(1), payload.AssetID)
	assert.Equal(t, renewed, payload.ExpiresAt)

	err = contract.RenewCertificate(certifier, 1, f.stub.Timestamp.Add(-time.Hour).Unix())
	require.EqualError(t, err, "Invalid expiration")

	err = contract.RenewCertificate(certifier, 99, renewed)
	require.EqualError(t, err, "Certificate not found")

	require.NoError(t, contract.RevokeCertificate(certifier, 1))
	err = contract.RenewCertificate(certifier, 1, renewed)
	require.EqualError(t, err, "Revoked certificate")
}

func TestRevokeCertificateIsOneWay(t *testing.T) {
	contract, f := certFixture(t)
	certifier := asWallet(f.stub, walletTwo)
	future := f.stub.Timestamp.Add(24 * time.Hour).Unix()

	_, err := contract.IssueCertificate(certifier, 1, future, "ISO-9001")
	require.NoError(t, err)

	err = contract.RevokeCertificate(asWallet(f.stub, walletThree), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")

	require.NoError(t, contract.RevokeCertificate(certifier, 1))

	event := f.stub.LastEvent()
	require.NotNil(t, event)
	assert.Equal(t, "CertificateRevoked", event.Name)

	err = contract.RevokeCertificate(certifier, 1)
	require.EqualError(t, err, "Already revoked")
}

func TestExpiredCertificateIsInvalid(t *testing.T) {
	contract, f := certFixture(t)
	certifier := asWallet(f.stub, walletTwo)

	_, err := contract.IssueCertificate(certifier, 1, f.stub.Timestamp.Add(time.Second).Unix(), "ISO-9001")
	require.NoError(t, err)

	f.stub.AdvanceTime(2 * time.Second)

	valid, err := contract.IsCertificateValid(f.admin, 1)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestIsCertificateValidUnknownID(t *testing.T) {
	contract, _, admin := newLedger(t)

	_, err := contract.IsCertificateValid(admin, 7)
	require.EqualError(t, err, "Certificate not found")
}
