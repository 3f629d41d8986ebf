package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
)

// Decoder decodes messages given an io.Reader
type Decoder struct {
	r io.Reader
	sync.Mutex
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

func (dec *Decoder) Decode() (Message, error) {
	dec.Lock()
	defer dec.Unlock()

	var msgNum [1]byte
	_, err := io.ReadFull(dec.r, msgNum[:])
	if err != nil {
		var syscallErr *os.SyscallError
		if errors.As(err, &syscallErr) && syscallErr.Err == syscall.ECONNRESET {
			return nil, io.EOF
		}
		return nil, err
	}

	msg, err := messageFrom(msgNum[0])
	if err != nil {
		return nil, err
	}

	// Messages with variable-length fields carry their own decoders;
	// the rest are fixed-layout and read directly.
	switch m := msg.(type) {
	case *OpenMessage:
		err = m.decode(dec.r)
	case *OpenFailureMessage:
		err = m.decode(dec.r)
	case *DataMessage:
		err = m.decode(dec.r)
	case *ExtendedDataMessage:
		err = m.decode(dec.r)
	case *RequestMessage:
		err = m.decode(dec.r)
	default:
		err = binary.Read(dec.r, binary.BigEndian, msg)
	}
	if err != nil {
		return nil, err
	}

	if Debug != nil {
		fmt.Fprintln(Debug, ">>DEC", msg)
	}

	return msg, nil
}

func messageFrom(num byte) (Message, error) {
	switch num {
	case msgChannelOpen:
		return new(OpenMessage), nil
	case msgChannelOpenConfirm:
		return new(OpenConfirmMessage), nil
	case msgChannelOpenFailure:
		return new(OpenFailureMessage), nil
	case msgChannelWindowAdjust:
		return new(WindowAdjustMessage), nil
	case msgChannelData:
		return new(DataMessage), nil
	case msgChannelExtendedData:
		return new(ExtendedDataMessage), nil
	case msgChannelEOF:
		return new(EOFMessage), nil
	case msgChannelClose:
		return new(CloseMessage), nil
	case msgChannelRequest:
		return new(RequestMessage), nil
	case msgChannelSuccess:
		return new(SuccessMessage), nil
	case msgChannelFailure:
		return new(FailureMessage), nil
	default:
		return nil, fmt.Errorf("sshmux: unexpected message type %d", num)
	}
}
