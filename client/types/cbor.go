package types

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Cbor is the deterministic CBOR codec used for everything that gets hashed or signed.
var Cbor = newCborHandler()

type cborHandler struct {
	enc cbor.EncMode
}

func newCborHandler() cborHandler {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("initializing CBOR encoder: " + err.Error())
	}
	return cborHandler{enc: enc}
}

func (c cborHandler) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c cborHandler) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

func (c cborHandler) Encode(w io.Writer, v any) error {
	return c.enc.NewEncoder(w).Encode(v)
}
