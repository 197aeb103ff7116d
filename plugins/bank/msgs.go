package bank

import (
	"fmt"

	"github.com/bnb-chain/abcikit/common/types"
)

const Route = "bank"

// Msg is the payload of a bank transaction.
type Msg interface {
	ValidateBasic() error
	String() string
}

var (
	_ Msg = CreateAccountMsg{}
	_ Msg = DepositMsg{}
	_ Msg = TransferMsg{}
)

// CreateAccountMsg opens an empty account for the sender.
type CreateAccountMsg struct{}

func (msg CreateAccountMsg) ValidateBasic() error { return nil }
func (msg CreateAccountMsg) String() string        { return "CreateAccountMsg{}" }

// DepositMsg credits the sender's own account.
type DepositMsg struct {
	Amount uint64 `json:"amount"`
}

func NewDepositMsg(amount uint64) DepositMsg {
	return DepositMsg{Amount: amount}
}

func (msg DepositMsg) ValidateBasic() error {
	if msg.Amount == 0 {
		return types.NewValidationError(CodeInvalidMsg, "amount should be more than 0")
	}
	return nil
}

func (msg DepositMsg) String() string {
	return fmt.Sprintf("DepositMsg{%d}", msg.Amount)
}

// TransferMsg moves Amount from the sender to To.
type TransferMsg struct {
	To     types.AccountID `json:"to"`
	Amount uint64          `json:"amount"`
}

func NewTransferMsg(to types.AccountID, amount uint64) TransferMsg {
	return TransferMsg{To: to, Amount: amount}
}

func (msg TransferMsg) ValidateBasic() error {
	if len(msg.To) != types.AccountIDLen {
		return types.NewValidationError(CodeInvalidMsg, "invalid recipient %s", msg.To)
	}
	if msg.Amount == 0 {
		return types.NewValidationError(CodeInvalidMsg, "amount should be more than 0")
	}
	return nil
}

func (msg TransferMsg) String() string {
	return fmt.Sprintf("TransferMsg{%v#%d}", msg.To, msg.Amount)
}
