package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"reflect"

	amino "github.com/tendermint/go-amino"
	cryptoAmino "github.com/tendermint/tendermint/crypto/encoding/amino"
)

// amino codec to marshal/unmarshal
type Codec = amino.Codec

func NewCodec() *Codec {
	cdc := amino.NewCodec()
	return cdc
}

// Register the go-crypto to the codec
func RegisterCrypto(cdc *Codec) {
	cryptoAmino.RegisterAmino(cdc)
}

// DecodeError is returned for any input that is not the canonical encoding of a value.
type DecodeError struct {
	Type   string
	Reason string
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Type, e.Reason)
}

// Encode returns the canonical binary encoding of v.
func Encode(cdc *Codec, v interface{}) ([]byte, error) {
	return cdc.MarshalBinaryBare(v)
}

func MustEncode(cdc *Codec, v interface{}) []byte {
	bz, err := Encode(cdc, v)
	if err != nil {
		panic(err)
	}
	return bz
}

// Decode fills ptr from bz. Truncated input, trailing bytes, bad length prefixes and
// encodings that do not re-encode to the same bytes all yield a DecodeError.
func Decode(cdc *Codec, bz []byte, ptr interface{}) (err error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return DecodeError{Type: fmt.Sprintf("%T", ptr), Reason: "expected a non-nil pointer"}
	}
	typeName := rv.Elem().Type().String()

	defer func() {
		if r := recover(); r != nil {
			err = DecodeError{Type: typeName, Reason: fmt.Sprintf("%v", r)}
		}
	}()

	if err = cdc.UnmarshalBinaryBare(bz, ptr); err != nil {
		return DecodeError{Type: typeName, Reason: err.Error()}
	}
	canonical, err := cdc.MarshalBinaryBare(rv.Elem().Interface())
	if err != nil {
		return DecodeError{Type: typeName, Reason: err.Error()}
	}
	if !bytes.Equal(canonical, bz) {
		return DecodeError{Type: typeName, Reason: "non-canonical encoding"}
	}
	return nil
}

// EncodeLengthPrefixed is used for values framed inside a stream.
func EncodeLengthPrefixed(cdc *Codec, v interface{}) ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(v)
}

func DecodeLengthPrefixed(cdc *Codec, bz []byte, ptr interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = DecodeError{Type: fmt.Sprintf("%T", ptr), Reason: fmt.Sprintf("%v", r)}
		}
	}()
	if err = cdc.UnmarshalBinaryLengthPrefixed(bz, ptr); err != nil {
		return DecodeError{Type: fmt.Sprintf("%T", ptr), Reason: err.Error()}
	}
	return nil
}

// Uint64Key encodes n big-endian so that byte order matches numeric order.
func Uint64Key(n uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, n)
	return bz
}

func ParseUint64Key(bz []byte) (uint64, error) {
	if len(bz) != 8 {
		return 0, DecodeError{Type: "uint64", Reason: fmt.Sprintf("expected 8 bytes, got %d", len(bz))}
	}
	return binary.BigEndian.Uint64(bz), nil
}

// attempt to make some pretty json
func MarshalJSONIndent(cdc *Codec, obj interface{}) ([]byte, error) {
	bz, err := cdc.MarshalJSON(obj)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	err = json.Indent(&out, bz, "", "  ")
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

//__________________________________________________________________

// generic sealed codec to be used throughout the framework
var Cdc *Codec

func init() {
	cdc := NewCodec()
	RegisterCrypto(cdc)
	Cdc = cdc.Seal()
}
