// Package mocks provides in-memory doubles for the Fabric stub and client
// identity, so the contract's transaction functions can be exercised without
// a peer.
package mocks

import (
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ChaincodeEvent is one captured SetEvent call.
type ChaincodeEvent struct {
	Name    string
	Payload []byte
}

// Stub is an in-memory world state. All transactions applied through it
// write immediately; tests model atomicity by asserting on returned errors
// before relying on state.
type Stub struct {
	State     map[string][]byte
	Events    []ChaincodeEvent
	TxID      string
	Timestamp time.Time
}

func NewStub() *Stub {
	return &Stub{
		State:     map[string][]byte{},
		TxID:      "mock-tx-1",
		Timestamp: time.Unix(1700000000, 0),
	}
}

// LastEvent returns the most recent emitted event, or nil.
func (s *Stub) LastEvent() *ChaincodeEvent {
	if len(s.Events) == 0 {
		return nil
	}
	return &s.Events[len(s.Events)-1]
}

// AdvanceTime moves the mock transaction clock forward.
func (s *Stub) AdvanceTime(d time.Duration) {
	s.Timestamp = s.Timestamp.Add(d)
}

func (s *Stub) GetState(key string) ([]byte, error) {
	return s.State[key], nil
}

func (s *Stub) PutState(key string, value []byte) error {
	s.State[key] = value
	return nil
}

func (s *Stub) DelState(key string) error {
	delete(s.State, key)
	return nil
}

func (s *Stub) GetTxID() string {
	return s.TxID
}

func (s *Stub) GetChannelID() string {
	return "trace-main-channel"
}

func (s *Stub) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return timestamppb.New(s.Timestamp), nil
}

func (s *Stub) SetEvent(name string, payload []byte) error {
	if name == "" {
		return errors.New("event name can not be empty")
	}
	s.Events = append(s.Events, ChaincodeEvent{Name: name, Payload: payload})
	return nil
}

func (s *Stub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	key := objectType
	for _, attr := range attributes {
		key += string(rune(0)) + attr
	}
	return key, nil
}

func (s *Stub) SplitCompositeKey(compositeKey string) (string, []string, error) {
	return compositeKey, nil, nil
}

// The contract does not use the remaining stub surface; the methods exist
// only to satisfy shim.ChaincodeStubInterface.

func (s *Stub) GetArgs() [][]byte                 { return nil }
func (s *Stub) GetStringArgs() []string           { return nil }
func (s *Stub) GetArgsSlice() ([]byte, error)     { return nil, nil }
func (s *Stub) GetDecorations() map[string][]byte { return nil }

func (s *Stub) GetFunctionAndParameters() (string, []string) { return "", nil }

func (s *Stub) InvokeChaincode(chaincodeName string, args [][]byte, channel string) pb.Response {
	return pb.Response{Status: shim.ERROR, Message: "not implemented in mock"}
}

func (s *Stub) SetStateValidationParameter(key string, ep []byte) error { return nil }

func (s *Stub) GetStateValidationParameter(key string) ([]byte, error) { return nil, nil }

func (s *Stub) GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	return nil, errors.New("not implemented in mock")
}

func (s *Stub) GetStateByRangeWithPagination(startKey, endKey string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return nil, nil, errors.New("not implemented in mock")
}

func (s *Stub) GetStateByPartialCompositeKey(objectType string, keys []string) (shim.StateQueryIteratorInterface, error) {
	return nil, errors.New("not implemented in mock")
}

func (s *Stub) GetStateByPartialCompositeKeyWithPagination(objectType string, keys []string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return nil, nil, errors.New("not implemented in mock")
}

func (s *Stub) GetQueryResult(query string) (shim.StateQueryIteratorInterface, error) {
	return nil, errors.New("not implemented in mock")
}

func (s *Stub) GetQueryResultWithPagination(query string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return nil, nil, errors.New("not implemented in mock")
}

func (s *Stub) GetHistoryForKey(key string) (shim.HistoryQueryIteratorInterface, error) {
	return nil, errors.New("not implemented in mock")
}

func (s *Stub) GetPrivateData(collection, key string) ([]byte, error) { return nil, nil }

func (s *Stub) GetPrivateDataHash(collection, key string) ([]byte, error) { return nil, nil }

func (s *Stub) PutPrivateData(collection string, key string, value []byte) error { return nil }

func (s *Stub) DelPrivateData(collection, key string) error { return nil }

func (s *Stub) PurgePrivateData(collection, key string) error { return nil }

func (s *Stub) SetPrivateDataValidationParameter(collection, key string, ep []byte) error {
	return nil
}

func (s *Stub) GetPrivateDataValidationParameter(collection, key string) ([]byte, error) {
	return nil, nil
}

func (s *Stub) GetPrivateDataByRange(collection, startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	return nil, errors.New("not implemented in mock")
}

func (s *Stub) GetPrivateDataByPartialCompositeKey(collection, objectType string, keys []string) (shim.StateQueryIteratorInterface, error) {
	return nil, errors.New("not implemented in mock")
}

func (s *Stub) GetPrivateDataQueryResult(collection, query string) (shim.StateQueryIteratorInterface, error) {
	return nil, errors.New("not implemented in mock")
}

func (s *Stub) GetCreator() ([]byte, error) { return nil, nil }

func (s *Stub) GetTransient() (map[string][]byte, error) { return nil, nil }

func (s *Stub) GetBinding() ([]byte, error) { return nil, nil }

func (s *Stub) GetSignedProposal() (*pb.SignedProposal, error) { return nil, nil }

// ClientIdentity is a fixed caller identity. ID doubles as the wallet
// address in the contract's model.
type ClientIdentity struct {
	ID    string
	MSP   string
	Attrs map[string]string
}

func (c *ClientIdentity) GetID() (string, error) {
	return c.ID, nil
}

func (c *ClientIdentity) GetMSPID() (string, error) {
	return c.MSP, nil
}

func (c *ClientIdentity) GetAttributeValue(attrName string) (string, bool, error) {
	v, ok := c.Attrs[attrName]
	return v, ok, nil
}

func (c *ClientIdentity) AssertAttributeValue(attrName, attrValue string) error {
	v, ok := c.Attrs[attrName]
	if !ok || v != attrValue {
		return fmt.Errorf("attribute %s does not have value %s", attrName, attrValue)
	}
	return nil
}

func (c *ClientIdentity) GetX509Certificate() (*x509.Certificate, error) {
	return nil, nil
}

// TransactionContext pairs a stub with a caller identity. Several contexts
// sharing one Stub model different wallets acting on the same ledger.
type TransactionContext struct {
	Stub     *Stub
	Identity *ClientIdentity
}

func NewTransactionContext(stub *Stub, walletAddress string) *TransactionContext {
	return &TransactionContext{
		Stub:     stub,
		Identity: &ClientIdentity{ID: walletAddress, MSP: "TraceOrgMSP", Attrs: map[string]string{}},
	}
}

func (c *TransactionContext) GetStub() shim.ChaincodeStubInterface {
	return c.Stub
}

func (c *TransactionContext) GetClientIdentity() cid.ClientIdentity {
	return c.Identity
}
