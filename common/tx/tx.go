package tx

import (
	"fmt"
	"math"

	"github.com/tendermint/tendermint/crypto/ed25519"
	"github.com/tendermint/tendermint/crypto/tmhash"
	cmn "github.com/tendermint/tendermint/libs/common"

	"github.com/bnb-chain/abcikit/common/types"
	"github.com/bnb-chain/abcikit/wire"
)

var txCdc = wire.NewCodec()

// Transaction is the signed envelope carried in every block. Payload is opaque to the
// framework and decoded by the service registered under Route.
type Transaction struct {
	Route     string
	Payload   []byte
	PubKey    []byte
	Signature []byte
	// replay protection is only enforced when HasNonce is set
	HasNonce bool
	Nonce    uint64
}

// signDoc is everything a signature commits to.
type signDoc struct {
	Route    string
	Payload  []byte
	HasNonce bool
	Nonce    uint64
}

func NewTransaction(route string, payload []byte) Transaction {
	return Transaction{Route: route, Payload: payload}
}

// WithNonce returns a copy of tx that carries nonce.
func (tx Transaction) WithNonce(nonce uint64) Transaction {
	tx.HasNonce = true
	tx.Nonce = nonce
	return tx
}

// SignBytes returns the canonical bytes covered by Signature.
func (tx Transaction) SignBytes() []byte {
	return wire.MustEncode(txCdc, signDoc{
		Route:    tx.Route,
		Payload:  tx.Payload,
		HasNonce: tx.HasNonce,
		Nonce:    tx.Nonce,
	})
}

// ValidateBasic checks everything that does not need state.
func (tx Transaction) ValidateBasic() error {
	if err := types.ValidateRoute(tx.Route); err != nil {
		return types.NewValidationError(types.CodeInvalidTx, "%s", err)
	}
	if len(tx.PubKey) != ed25519.PubKeyEd25519Size {
		return types.NewValidationError(types.CodeInvalidTx,
			"public key must be %d bytes, got %d", ed25519.PubKeyEd25519Size, len(tx.PubKey))
	}
	if len(tx.Signature) != ed25519.SignatureSize {
		return types.NewValidationError(types.CodeInvalidTx,
			"signature must be %d bytes, got %d", ed25519.SignatureSize, len(tx.Signature))
	}
	if !tx.HasNonce && tx.Nonce != 0 {
		return types.NewValidationError(types.CodeInvalidTx, "nonce set without HasNonce")
	}
	if tx.Nonce == math.MaxUint64 {
		return types.NewValidationError(types.CodeInvalidNonce, "nonce space exhausted")
	}
	return nil
}

// Sender is the account that signed tx.
func (tx Transaction) Sender() (types.AccountID, error) {
	return types.DeriveAccountID(tx.PubKey)
}

func (tx Transaction) Bytes() ([]byte, error) {
	return wire.Encode(txCdc, tx)
}

// Hash identifies tx by the hash of its canonical encoding.
func (tx Transaction) Hash() cmn.HexBytes {
	return tmhash.Sum(wire.MustEncode(txCdc, tx))
}

func (tx Transaction) String() string {
	nonce := "-"
	if tx.HasNonce {
		nonce = fmt.Sprintf("%d", tx.Nonce)
	}
	return fmt.Sprintf("Transaction{%s payload=%X nonce=%s}", tx.Route, tx.Payload, nonce)
}

// Decode parses canonical transaction bytes. Any other input is a ValidationError
// with CodeTxDecode.
func Decode(txBytes []byte) (Transaction, error) {
	var tx Transaction
	if len(txBytes) == 0 {
		return tx, types.NewValidationError(types.CodeTxDecode, "tx bytes are empty")
	}
	if err := wire.Decode(txCdc, txBytes, &tx); err != nil {
		return Transaction{}, types.NewValidationError(types.CodeTxDecode, "%s", err)
	}
	return tx, nil
}

// Sign fills in the public key and signature of tx. It is a client helper; nodes only
// ever verify.
func Sign(priv ed25519.PrivKeyEd25519, tx Transaction) (Transaction, error) {
	pub := priv.PubKey().(ed25519.PubKeyEd25519)
	tx.PubKey = pub[:]
	sig, err := priv.Sign(tx.SignBytes())
	if err != nil {
		return tx, err
	}
	tx.Signature = sig
	return tx, nil
}

// Verify reports whether sig is a valid ed25519 signature of msg under pubKey.
// Malformed keys or signatures simply fail verification.
func Verify(pubKey, msg, sig []byte) bool {
	if len(pubKey) != ed25519.PubKeyEd25519Size || len(sig) != ed25519.SignatureSize {
		return false
	}
	var pk ed25519.PubKeyEd25519
	copy(pk[:], pubKey)
	return pk.VerifyBytes(msg, sig)
}
