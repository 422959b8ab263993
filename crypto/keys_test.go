package crypto

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcutil/bech32"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	encoded := addr.String()
	if len(encoded) == 0 {
		t.Fatalf("expected non-empty bech32 address")
	}

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode address: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), addr.Bytes()) {
		t.Fatalf("round trip mismatch: got %x want %x", decoded.Bytes(), addr.Bytes())
	}
}

func TestAddressTextMarshaling(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()

	text, err := addr.MarshalText()
	if err != nil {
		t.Fatalf("marshal text: %v", err)
	}
	var decoded Address
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshal text: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), addr.Bytes()) {
		t.Fatalf("text round trip mismatch: got %x want %x", decoded.Bytes(), addr.Bytes())
	}

	var zero Address
	text, err = zero.MarshalText()
	if err != nil {
		t.Fatalf("marshal zero address: %v", err)
	}
	if len(text) != 0 {
		t.Fatalf("zero address must encode empty, got %q", text)
	}
	if err := decoded.UnmarshalText(nil); err != nil {
		t.Fatalf("unmarshal empty text: %v", err)
	}
	if !decoded.IsZero() {
		t.Fatalf("empty text must restore the zero address")
	}
}

func TestDecodeAddressRejectsForeignPrefix(t *testing.T) {
	conv, err := bech32.ConvertBits(make([]byte, 20), 8, 5, true)
	if err != nil {
		t.Fatalf("convert bits: %v", err)
	}
	foreign, err := bech32.Encode("osmo", conv)
	if err != nil {
		t.Fatalf("encode foreign address: %v", err)
	}
	if _, err := DecodeAddress(foreign); err == nil {
		t.Fatalf("expected foreign prefix to be rejected")
	}
}

func TestPrivateKeySerialization(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore key: %v", err)
	}
	if restored.PubKey().Address().String() != key.PubKey().Address().String() {
		t.Fatalf("restored key derives a different address")
	}
}
