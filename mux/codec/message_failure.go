package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type FailureMessage struct {
	ChannelID uint32
}

func (msg FailureMessage) String() string {
	return fmt.Sprintf("{FailureMessage ChannelID:%d}", msg.ChannelID)
}

func (msg FailureMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg FailureMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(msgChannelFailure)
	binary.Write(buf, binary.BigEndian, msg)
	return buf.Bytes()
}
