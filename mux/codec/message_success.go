package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type SuccessMessage struct {
	ChannelID uint32
}

func (msg SuccessMessage) String() string {
	return fmt.Sprintf("{SuccessMessage ChannelID:%d}", msg.ChannelID)
}

func (msg SuccessMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg SuccessMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(msgChannelSuccess)
	binary.Write(buf, binary.BigEndian, msg)
	return buf.Bytes()
}
