package types

import (
	"fmt"

	"github.com/pkg/errors"
	abci "github.com/tendermint/tendermint/abci/types"
)

// CodeType is the numeric result code surfaced through ABCI responses.
type CodeType = uint32

// Framework result codes. Services use codes from CodeFirstApp upwards.
const (
	CodeOK               CodeType = abci.CodeTypeOK
	CodeInternal         CodeType = 1
	CodeTxDecode         CodeType = 2
	CodeInvalidTx        CodeType = 3
	CodeInvalidSignature CodeType = 4
	CodeUnknownRoute     CodeType = 5
	CodeInvalidNonce     CodeType = 6
	CodeUnknownRequest   CodeType = 7
	CodeExecution        CodeType = 8

	CodeFirstApp CodeType = 100
)

// ABCIError is implemented by errors that carry their own result code.
type ABCIError interface {
	error
	ABCICode() CodeType
}

// ValidationError rejects a transaction before it runs: malformed bytes, bad
// signature, unknown route or wrong nonce. Local to the transaction.
type ValidationError struct {
	Code CodeType
	Msg  string
}

func NewValidationError(code CodeType, format string, args ...interface{}) ValidationError {
	return ValidationError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func (e ValidationError) Error() string      { return e.Msg }
func (e ValidationError) ABCICode() CodeType { return e.Code }

// ExecutionError is a business-rule failure reported by a service handler.
type ExecutionError struct {
	Code CodeType
	Msg  string
}

func NewExecutionError(code CodeType, format string, args ...interface{}) ExecutionError {
	return ExecutionError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func (e ExecutionError) Error() string      { return e.Msg }
func (e ExecutionError) ABCICode() CodeType { return e.Code }

// ProtocolSequencingError means the consensus engine and the application are out of
// step. It is never returned, only panicked with.
type ProtocolSequencingError struct {
	Call     string
	State    string
	Expected []string
}

func (e ProtocolSequencingError) Error() string {
	return fmt.Sprintf("%s called in state %s (expected %v)", e.Call, e.State, e.Expected)
}

// StoreIOError wraps a failure while making a version durable.
type StoreIOError struct {
	Op  string
	Err error
}

func NewStoreIOError(op string, err error) StoreIOError {
	return StoreIOError{Op: op, Err: err}
}

func (e StoreIOError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e StoreIOError) Cause() error { return e.Err }

// ABCIInfo maps err to a response code and log. Errors that carry no code are
// reported as internal.
func ABCIInfo(err error) (CodeType, string) {
	if err == nil {
		return CodeOK, ""
	}
	if coded, ok := errors.Cause(err).(ABCIError); ok {
		return coded.ABCICode(), err.Error()
	}
	return CodeInternal, err.Error()
}

func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(ValidationError)
	return ok
}

func IsExecutionError(err error) bool {
	_, ok := errors.Cause(err).(ExecutionError)
	return ok
}
