package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tendermint/tendermint/crypto/ed25519"
	"github.com/tendermint/tendermint/crypto/tmhash"
)

// AccountIDLen is the length of an account identifier in bytes.
const AccountIDLen = tmhash.TruncatedSize

// AccountID addresses per-service state. It is the truncated SHA-256 of the signer's
// ed25519 public key.
type AccountID []byte

// DeriveAccountID returns the account identifier owned by pubKey.
func DeriveAccountID(pubKey []byte) (AccountID, error) {
	if len(pubKey) != ed25519.PubKeyEd25519Size {
		return nil, fmt.Errorf("invalid public key length %d", len(pubKey))
	}
	return AccountID(tmhash.SumTruncated(pubKey)), nil
}

func AccountIDFromHex(s string) (AccountID, error) {
	bz, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(bz) != AccountIDLen {
		return nil, fmt.Errorf("invalid account id length %d", len(bz))
	}
	return AccountID(bz), nil
}

func (id AccountID) Bytes() []byte { return id }

func (id AccountID) Empty() bool { return len(id) == 0 }

func (id AccountID) Equals(other AccountID) bool {
	return bytes.Equal(id, other)
}

func (id AccountID) String() string {
	return strings.ToUpper(hex.EncodeToString(id))
}

func (id AccountID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *AccountID) UnmarshalJSON(bz []byte) error {
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		return err
	}
	parsed, err := AccountIDFromHex(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
