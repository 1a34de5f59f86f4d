package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/mabanchio/industrial-traceability-blockchain/backend/chaincode/trace-core/chaincode"
)

func main() {
	traceChaincode, err := contractapi.NewChaincode(&chaincode.TraceabilityContract{})
	if err != nil {
		log.Panicf("Error creating traceability chaincode: %v", err)
	}

	if err := traceChaincode.Start(); err != nil {
		log.Panicf("Error starting traceability chaincode: %v", err)
	}
}
