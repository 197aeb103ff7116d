package counter

import (
	"math"
	"strconv"

	abci "github.com/tendermint/tendermint/abci/types"

	"github.com/bnb-chain/abcikit/app/router"
	"github.com/bnb-chain/abcikit/common/store"
	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/wire"
)

var (
	countPrefix = []byte("count:")
	// updates applied by the block in progress
	blockUpdatesKey = []byte("block:updates")
	// updates applied by the last block that ran EndBlock
	lastBlockUpdatesKey = []byte("block:last")
)

func countKey(addr types.AccountID) []byte {
	return append(append([]byte{}, countPrefix...), addr...)
}

func getUint64(kv store.KVReader, key []byte) uint64 {
	bz := kv.Get(key)
	if bz == nil {
		return 0
	}
	n, err := wire.ParseUint64Key(bz)
	if err != nil {
		panic(err)
	}
	return n
}

// Service keeps one counter per sender.
type Service struct{}

var (
	_ router.Handler    = Service{}
	_ router.EndBlocker = Service{}
	_ router.Querier    = Service{}
)

func NewService() Service {
	return Service{}
}

func (s Service) Execute(ctx router.Context, sender types.AccountID, payload []byte, kv store.KVStore) error {
	msg, err := DecodeMsg(payload)
	if err != nil {
		return err
	}
	count := getUint64(kv, countKey(sender))
	switch msg := msg.(type) {
	case IncrementMsg:
		if count > math.MaxUint64-msg.By {
			return types.NewExecutionError(CodeOverflow, "counter of %s would overflow", sender)
		}
		count += msg.By
	case DecrementMsg:
		if msg.By > count {
			return types.NewExecutionError(CodeUnderflow, "can't have negative results from a decrement: %d > %d", msg.By, count)
		}
		count -= msg.By
	default:
		return types.NewExecutionError(CodeInvalidMsg, "unknown counter msg %s", msg.String())
	}
	kv.Set(countKey(sender), wire.Uint64Key(count))
	kv.Set(blockUpdatesKey, wire.Uint64Key(getUint64(kv, blockUpdatesKey)+1))
	ctx.EmitEvent("counter", router.Attr("account", sender.String()), router.Attr("count", strconv.FormatUint(count, 10)))
	return nil
}

// EndBlock records how many counters the block changed.
func (s Service) EndBlock(ctx router.Context, kv store.KVStore) []abci.ValidatorUpdate {
	updates := getUint64(kv, blockUpdatesKey)
	kv.Set(lastBlockUpdatesKey, wire.Uint64Key(updates))
	kv.Delete(blockUpdatesKey)
	if updates > 0 {
		ctx.Logger.Debug("counter updates", "height", ctx.Height, "updates", updates)
	}
	return nil
}

// Query serves "count" with the account id as data and "lastblock". Both return
// 8 byte big-endian numbers.
func (s Service) Query(kv store.KVReader, path []string, data []byte) ([]byte, error) {
	if len(path) != 1 {
		return nil, types.NewValidationError(types.CodeUnknownRequest, "unknown counter query %v", path)
	}
	switch path[0] {
	case "count":
		bz := kv.Get(countKey(data))
		if bz == nil {
			return nil, types.NewValidationError(CodeNotFound, "no count found for %X", data)
		}
		return bz, nil
	case "lastblock":
		return wire.Uint64Key(getUint64(kv, lastBlockUpdatesKey)), nil
	default:
		return nil, types.NewValidationError(types.CodeUnknownRequest, "unknown counter query %v", path)
	}
}
