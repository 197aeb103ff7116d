package bank

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/bnb-chain/abcikit/app/router"
	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/types"
)

type GenesisAccount struct {
	Address types.AccountID `json:"address"`
	Balance uint64          `json:"balance"`
}

type GenesisState struct {
	Accounts []GenesisAccount `json:"accounts"`
}

func DefaultGenesisState() GenesisState {
	return GenesisState{Accounts: []GenesisAccount{}}
}

// InitGenesis opens the accounts listed in the bank section of app_state.
func (s Service) InitGenesis(ctx router.Context, kv store.KVStore, state json.RawMessage) error {
	if len(state) == 0 {
		return nil
	}
	var genesis GenesisState
	if err := json.Unmarshal(state, &genesis); err != nil {
		return errors.Wrap(err, "invalid bank genesis")
	}
	for _, gacc := range genesis.Accounts {
		if len(gacc.Address) != types.AccountIDLen {
			return errors.Errorf("invalid genesis account address %s", gacc.Address)
		}
		if kv.Has(gacc.Address) {
			return errors.Errorf("duplicate genesis account %s", gacc.Address)
		}
		SetAccount(kv, Account{Address: gacc.Address, Balance: gacc.Balance})
	}
	ctx.Logger.Info("bank genesis loaded", "accounts", len(genesis.Accounts))
	return nil
}
