package recordio

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// captureEncMode is the CBOR encoder mode for capture streams. Deterministic
// encoding keeps identical captures byte-identical.
var captureEncMode cbor.EncMode

// captureDecMode is the CBOR decoder mode for capture streams.
var captureDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	captureEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create capture CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	captureDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create capture CBOR decoder mode: %v", err))
	}
}

func newEncoder(w io.Writer) *cbor.Encoder {
	return captureEncMode.NewEncoder(w)
}

func newDecoder(r io.Reader) *cbor.Decoder {
	return captureDecMode.NewDecoder(r)
}

// entry is one element of the capture stream: exactly one of Def or Rec is
// set. Definitions precede the first record that references them.
type entry struct {
	Def *statementDef `cbor:"d,omitempty"`
	Rec *recordEntry  `cbor:"r,omitempty"`
}

type statementDef struct {
	ID     uint32  `cbor:"i"`
	Format string  `cbor:"f"`
	Tags   []uint8 `cbor:"t"`
}

type recordEntry struct {
	Def     uint32 `cbor:"i"`
	Payload []byte `cbor:"p"`
}
