package codec

import (
	"fmt"
	"io"
	"sync"
)

// Encoder encodes messages given an io.Writer. Writes are serialized by
// an internal mutex, so one Encoder is safe to share across the channels
// of a session.
type Encoder struct {
	w io.Writer
	sync.Mutex
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (enc *Encoder) Encode(msg Message) error {
	enc.Lock()
	defer enc.Unlock()

	if Debug != nil {
		fmt.Fprintln(Debug, "<<ENC", msg)
	}

	_, err := enc.w.Write(msg.Bytes())
	return err
}
