package bank

import (
	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/wire"
)

var msgCdc = MakeCodec()

// Register concrete types on wire codec
func RegisterWire(cdc *wire.Codec) {
	cdc.RegisterInterface((*Msg)(nil), nil)
	cdc.RegisterConcrete(CreateAccountMsg{}, "bank/CreateAccountMsg", nil)
	cdc.RegisterConcrete(DepositMsg{}, "bank/DepositMsg", nil)
	cdc.RegisterConcrete(TransferMsg{}, "bank/TransferMsg", nil)
	cdc.RegisterConcrete(Account{}, "bank/Account", nil)
}

func MakeCodec() *wire.Codec {
	cdc := wire.NewCodec()
	RegisterWire(cdc)
	return cdc.Seal()
}

// EncodeMsg builds the payload of a bank transaction.
func EncodeMsg(msg Msg) ([]byte, error) {
	return wire.Encode(msgCdc, msg)
}

// DecodeMsg parses and statelessly validates a bank payload.
func DecodeMsg(payload []byte) (Msg, error) {
	var msg Msg
	if err := wire.Decode(msgCdc, payload, &msg); err != nil {
		return nil, types.NewValidationError(CodeInvalidMsg, "%s", err)
	}
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	return msg, nil
}

func DecodeAccount(bz []byte) (Account, error) {
	var acc Account
	err := wire.Decode(msgCdc, bz, &acc)
	return acc, err
}
