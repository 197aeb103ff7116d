package counter

import (
	"fmt"

	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/wire"
)

const Route = "counter"

const (
	CodeInvalidMsg types.CodeType = types.CodeFirstApp + 11
	CodeUnderflow  types.CodeType = types.CodeFirstApp + 12
	CodeOverflow   types.CodeType = types.CodeFirstApp + 13
	CodeNotFound   types.CodeType = types.CodeFirstApp + 14
)

type Msg interface {
	ValidateBasic() error
	String() string
}

type IncrementMsg struct {
	By uint64 `json:"by"`
}

func (msg IncrementMsg) ValidateBasic() error {
	if msg.By == 0 {
		return types.NewValidationError(CodeInvalidMsg, "increment should be more than 0")
	}
	return nil
}

func (msg IncrementMsg) String() string { return fmt.Sprintf("IncrementMsg{%d}", msg.By) }

type DecrementMsg struct {
	By uint64 `json:"by"`
}

func (msg DecrementMsg) ValidateBasic() error {
	if msg.By == 0 {
		return types.NewValidationError(CodeInvalidMsg, "decrement should be more than 0")
	}
	return nil
}

func (msg DecrementMsg) String() string { return fmt.Sprintf("DecrementMsg{%d}", msg.By) }

var msgCdc = func() *wire.Codec {
	cdc := wire.NewCodec()
	cdc.RegisterInterface((*Msg)(nil), nil)
	cdc.RegisterConcrete(IncrementMsg{}, "counter/IncrementMsg", nil)
	cdc.RegisterConcrete(DecrementMsg{}, "counter/DecrementMsg", nil)
	return cdc.Seal()
}()

func EncodeMsg(msg Msg) ([]byte, error) {
	return wire.Encode(msgCdc, msg)
}

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
