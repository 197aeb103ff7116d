package bank

import (
	"encoding/hex"
	"math"
	"reflect"
	"strconv"

	"github.com/bnb-chain/abcikit/app/router"
	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/wire"
)

const (
	EventTypeTransfer = "transfer"
	EventTypeDeposit  = "deposit"
)

// Service keeps account balances in the bank namespace.
type Service struct{}

var (
	_ router.Handler = Service{}
	_ router.Genesis = Service{}
	_ router.Querier = Service{}
	_ router.Checker = Service{}
)

func NewService() Service {
	return Service{}
}

func (s Service) Execute(ctx router.Context, sender types.AccountID, payload []byte, kv store.KVStore) error {
	msg, err := DecodeMsg(payload)
	if err != nil {
		return err
	}
	switch msg := msg.(type) {
	case CreateAccountMsg:
		return handleCreateAccount(ctx, kv, sender)
	case DepositMsg:
		return handleDeposit(ctx, kv, sender, msg)
	case TransferMsg:
		return handleTransfer(ctx, kv, sender, msg)
	default:
		return types.NewExecutionError(CodeInvalidMsg, "Unrecognized msg type: %s", reflect.TypeOf(msg).Name())
	}
}

func handleCreateAccount(ctx router.Context, kv store.KVStore, sender types.AccountID) error {
	if kv.Has(sender) {
		return types.NewExecutionError(CodeAccountExists, "account %s already exists", sender)
	}
	SetAccount(kv, Account{Address: sender})
	ctx.Logger.Debug("account created", "account", sender)
	return nil
}

func handleDeposit(ctx router.Context, kv store.KVStore, sender types.AccountID, msg DepositMsg) error {
	acc, ok := GetAccount(kv, sender)
	if !ok {
		return types.NewExecutionError(CodeUnknownAccount, "account %s doesn't exist", sender)
	}
	if acc.Balance > math.MaxUint64-msg.Amount {
		return types.NewExecutionError(CodeBalanceOverflow, "deposit of %d overflows balance of %s", msg.Amount, sender)
	}
	acc.Balance += msg.Amount
	SetAccount(kv, acc)
	ctx.EmitEvent(EventTypeDeposit,
		router.Attr("account", sender.String()),
		router.Attr("amount", strconv.FormatUint(msg.Amount, 10)))
	return nil
}

func handleTransfer(ctx router.Context, kv store.KVStore, sender types.AccountID, msg TransferMsg) error {
	from, ok := GetAccount(kv, sender)
	if !ok {
		return types.NewExecutionError(CodeUnknownAccount, "account %s doesn't exist", sender)
	}
	to, ok := GetAccount(kv, msg.To)
	if !ok {
		return types.NewExecutionError(CodeUnknownAccount, "account %s doesn't exist", msg.To)
	}
	if from.Balance < msg.Amount {
		return types.NewExecutionError(CodeInsufficientFunds, "insufficient funds: %d < %d", from.Balance, msg.Amount)
	}
	if !sender.Equals(msg.To) {
		if to.Balance > math.MaxUint64-msg.Amount {
			return types.NewExecutionError(CodeBalanceOverflow, "transfer of %d overflows balance of %s", msg.Amount, msg.To)
		}
		from.Balance -= msg.Amount
		to.Balance += msg.Amount
		SetAccount(kv, from)
		SetAccount(kv, to)
	}
	ctx.EmitEvent(EventTypeTransfer,
		router.Attr("from", sender.String()),
		router.Attr("to", msg.To.String()),
		router.Attr("amount", strconv.FormatUint(msg.Amount, 10)))
	return nil
}

// Check rejects payloads that cannot decode or fail ValidateBasic. Account existence
// and balances are left to DeliverTx: a CreateAccountMsg or DepositMsg earlier in the
// same block can make a transfer valid that committed state would refuse.
func (s Service) Check(sender types.AccountID, payload []byte, _ store.KVReader) error {
	_, err := DecodeMsg(payload)
	return err
}

// Query serves "balance/<hex>", or "balance" with the account id as data, and
// "accounts".
func (s Service) Query(kv store.KVReader, path []string, data []byte) ([]byte, error) {
	if len(path) == 0 {
		return nil, types.NewValidationError(types.CodeUnknownRequest, "empty bank query path")
	}
	switch path[0] {
	case "balance":
		addr := types.AccountID(data)
		if len(path) > 1 {
			bz, err := hex.DecodeString(path[1])
			if err != nil {
				return nil, types.NewValidationError(types.CodeUnknownRequest, "invalid account %s", path[1])
			}
			addr = bz
		}
		acc, ok := GetAccount(kv, addr)
		if !ok {
			return nil, types.NewValidationError(CodeUnknownAccount, "account %s doesn't exist", addr)
		}
		return wire.Encode(msgCdc, acc)
	case "accounts":
		return wire.MarshalJSONIndent(msgCdc, GetAccounts(kv))
	default:
		return nil, types.NewValidationError(types.CodeUnknownRequest, "unknown bank query %v", path)
	}
}
