package fabricclient

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
)

const identityLabel = "traceUser"

// Client wraps a Fabric gateway connection to the traceability chaincode.
// Every off-chain service talks to the ledger through this wrapper.
type Client struct {
	gw       *gateway.Gateway
	network  *gateway.Network
	contract *gateway.Contract
}

func NewClient(configPath, channelName, contractName, mspID, certPath, keyPath string) (*Client, error) {
	wallet, err := gateway.NewFileSystemWallet("wallet")
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %v", err)
	}

	if !wallet.Exists(identityLabel) {
		err = populateWallet(wallet, mspID, certPath, keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to populate wallet: %v", err)
		}
	}

	gw, err := gateway.Connect(
		gateway.WithConfig(config.FromFile(filepath.Clean(configPath))),
		gateway.WithIdentity(wallet, identityLabel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gateway: %v", err)
	}

	network, err := gw.GetNetwork(channelName)
	if err != nil {
		return nil, fmt.Errorf("failed to get network: %v", err)
	}

	contract := network.GetContract(contractName)

	return &Client{
		gw:       gw,
		network:  network,
		contract: contract,
	}, nil
}

// SubmitTransaction invokes a chaincode function that writes to the ledger.
func (c *Client) SubmitTransaction(name string, args ...string) ([]byte, error) {
	return c.contract.SubmitTransaction(name, args...)
}

// EvaluateTransaction invokes a read-only chaincode function.
func (c *Client) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	return c.contract.EvaluateTransaction(name, args...)
}

// RegisterChaincodeEventListener subscribes to chaincode events matching
// eventFilter (a name or regex). The returned cancel function unregisters
// the listener.
func (c *Client) RegisterChaincodeEventListener(eventFilter string) (<-chan *fab.CCEvent, func(), error) {
	reg, notifier, err := c.contract.RegisterEvent(eventFilter)
	if err != nil {
		return nil, nil, err
	}
	cancel := func() { c.contract.Unregister(reg) }
	return notifier, cancel, nil
}

func (c *Client) Close() {
	c.gw.Close()
}

func populateWallet(wallet *gateway.Wallet, mspID, certPath, keyPath string) error {
	cert, err := os.ReadFile(filepath.Clean(certPath))
	if err != nil {
		return err
	}

	key, err := os.ReadFile(filepath.Clean(keyPath))
	if err != nil {
		return err
	}

	identity := gateway.NewX509Identity(mspID, string(cert), string(key))

	return wallet.Put(identityLabel, identity)
}
