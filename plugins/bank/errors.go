package bank

import "github.com/bnb-chain/abcikit/common/types"

const (
	CodeInvalidMsg        types.CodeType = types.CodeFirstApp + 1
	CodeAccountExists     types.CodeType = types.CodeFirstApp + 2
	CodeUnknownAccount    types.CodeType = types.CodeFirstApp + 3
	CodeInsufficientFunds types.CodeType = types.CodeFirstApp + 4
	CodeBalanceOverflow   types.CodeType = types.CodeFirstApp + 5
)
