package chaincode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mabanchio/industrial-traceability-blockchain/backend/chaincode/trace-core/chaincode"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/chaincode/trace-core/chaincode/mocks"
)

const (
	adminWallet = "x509::CN=admin::OU=ops"
	walletOne   = "x509::CN=w1::OU=client"
	walletTwo   = "x509::CN=w2::OU=client"
	walletThree = "x509::CN=w3::OU=client"
)

// newLedger returns a contract over a fresh world state with adminWallet
// holding ADMIN via InitLedger.
func newLedger(t *testing.T) (*chaincode.TraceabilityContract, *mocks.Stub, *mocks.TransactionContext) {
	t.Helper()
	contract := &chaincode.TraceabilityContract{}
	stub := mocks.NewStub()
	admin := mocks.NewTransactionContext(stub, adminWallet)
	require.NoError(t, contract.InitLedger(admin))
	return contract, stub, admin
}

func asWallet(stub *mocks.Stub, address string) *mocks.TransactionContext {
	return mocks.NewTransactionContext(stub, address)
}

// stubFixture bundles the shared ledger handles fixtures hand to subtests.
type stubFixture struct {
	stub  *mocks.Stub
	admin *mocks.TransactionContext
}
