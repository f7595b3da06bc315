package calldata

import (
	"encoding/json"
	"fmt"
)

const (
	entryFunction    = "function"
	entryConstructor = "constructor"
	entryL1Handler   = "l1_handler"
	entryStruct      = "struct"
)

// Member is a named, typed slot of a function signature or a struct
type Member struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TypeTable maps a struct name to its ordered members
type TypeTable map[string][]Member

// Function is a callable entry of a contract ABI
type Function struct {
	Name    string
	Type    string
	Inputs  []Member
	Outputs []Member
}

type abiEntry struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Inputs  []Member `json:"inputs"`
	Outputs []Member `json:"outputs"`
	Members []Member `json:"members"`
}

// ABI is the parsed interface description of a contract
type ABI struct {
	types     TypeTable
	functions []Function
}

// ParseABI parses a JSON ABI. An empty ABI ("{}" or "[]") yields no entries.
func ParseABI(raw []byte) (*ABI, error) {
	abi := &ABI{types: make(TypeTable)}
	if len(raw) == 0 || string(raw) == "{}" {
		return abi, nil
	}
	var entries []abiEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("error decoding abi: %w", err)
	}
	for _, entry := range entries {
		switch entry.Type {
		case entryStruct:
			if _, ok := abi.types[entry.Name]; ok {
				return nil, fmt.Errorf("duplicate struct %s in abi", entry.Name)
			}
			abi.types[entry.Name] = entry.Members
		case entryFunction, entryConstructor, entryL1Handler:
			abi.functions = append(abi.functions, Function{
				Name:    entry.Name,
				Type:    entry.Type,
				Inputs:  entry.Inputs,
				Outputs: entry.Outputs,
			})
		}
	}
	return abi, nil
}

// Types returns the struct type table of the ABI
func (a *ABI) Types() TypeTable {
	return a.types
}

// Functions returns the external functions of the ABI
func (a *ABI) Functions() []Function {
	var fns []Function
	for _, fn := range a.functions {
		if fn.Type == entryFunction {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Constructor returns the constructor entry, if the ABI declares one
func (a *ABI) Constructor() (Function, bool) {
	for _, fn := range a.functions {
		if fn.Type == entryConstructor {
			return fn, true
		}
	}
	return Function{}, false
}
