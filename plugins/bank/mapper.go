package bank

import (
	"fmt"

	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/wire"
)

// Account is the stored balance of one account id.
type Account struct {
	Address types.AccountID `json:"address"`
	Balance uint64          `json:"balance"`
}

func (acc Account) String() string {
	return fmt.Sprintf("Account{%v: %d}", acc.Address, acc.Balance)
}

func GetAccount(kv store.KVReader, addr types.AccountID) (Account, bool) {
	bz := kv.Get(addr)
	if bz == nil {
		return Account{}, false
	}
	acc, err := DecodeAccount(bz)
	if err != nil {
		// only this package writes the namespace
		panic(err)
	}
	return acc, true
}

func SetAccount(kv store.KVStore, acc Account) {
	kv.Set(acc.Address, wire.MustEncode(msgCdc, acc))
}

// GetAccounts lists every account in address order.
func GetAccounts(kv store.KVReader) []Account {
	var accounts []Account
	kv.Iterate(nil, nil, func(_, value []byte) bool {
		acc, err := DecodeAccount(value)
		if err != nil {
			panic(err)
		}
		accounts = append(accounts, acc)
		return false
	})
	return accounts
}
