package types

import (
	"encoding/json"
	"errors"
)

var errMissingProgramData = errors.New("contract program has no data section")

// ContractDefinition is a compiled contract: its ABI, entry points and program
type ContractDefinition struct {
	Abi               json.RawMessage `json:"abi"`
	EntryPointsByType json.RawMessage `json:"entry_points_by_type"`
	Program           json.RawMessage `json:"program"`
}

// EmptyContractDefinition is the definition reported for unknown contracts
func EmptyContractDefinition() *ContractDefinition {
	return &ContractDefinition{
		Abi:               json.RawMessage("{}"),
		EntryPointsByType: json.RawMessage("{}"),
		Program:           json.RawMessage("{}"),
	}
}

// Bytecode returns the data section of the program
func (d *ContractDefinition) Bytecode() ([]string, error) {
	var program struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(d.Program, &program); err != nil {
		return nil, err
	}
	if program.Data == nil {
		return nil, errMissingProgramData
	}
	return program.Data, nil
}

// Code is the ABI and bytecode of a deployed contract
type Code struct {
	Abi      json.RawMessage `json:"abi"`
	Bytecode []string        `json:"bytecode"`
}

// EmptyCode is the code reported for unknown contracts
func EmptyCode() *Code {
	return &Code{Abi: json.RawMessage("{}"), Bytecode: []string{}}
}

// ConsumedMessages lists the messages exchanged by one postman flush
type ConsumedMessages struct {
	FromL1 []L1ToL2Message `json:"from_l1"`
	FromL2 []L2ToL1Message `json:"from_l2"`
}

// FlushResult is the report of a postman flush
type FlushResult struct {
	L1Provider       string           `json:"l1_provider,omitempty"`
	ConsumedMessages ConsumedMessages `json:"consumed_messages"`
}
