package app

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/plugins/bank"
)

// GenesisState is the app_state abcikitd init writes for the default services. Each
// service reads the top level field named after its route.
type GenesisState struct {
	Bank bank.GenesisState `json:"bank"`
}

// NewGenesisState funds every address with balance.
func NewGenesisState(balance uint64, addrs ...types.AccountID) GenesisState {
	state := GenesisState{Bank: bank.DefaultGenesisState()}
	for _, addr := range addrs {
		state.Bank.Accounts = append(state.Bank.Accounts, bank.GenesisAccount{Address: addr, Balance: balance})
	}
	return state
}

func (state GenesisState) AppStateJSON() (json.RawMessage, error) {
	return json.MarshalIndent(state, "", "  ")
}

// genesisSections looks up the section of a route in appState. An empty app state
// gives every service a nil section.
func genesisSections(appState []byte) (func(route string) json.RawMessage, error) {
	if len(appState) == 0 {
		return func(string) json.RawMessage { return nil }, nil
	}
	if !gjson.ValidBytes(appState) {
		return nil, errors.New("app_state is not valid json")
	}
	root := gjson.ParseBytes(appState)
	if !root.IsObject() {
		return nil, errors.New("app_state must be a json object")
	}
	return func(route string) json.RawMessage {
		section := root.Get(route)
		if !section.Exists() || section.Type == gjson.Null {
			return nil
		}
		return json.RawMessage(section.Raw)
	}, nil
}
