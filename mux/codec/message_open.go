package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

type OpenMessage struct {
	ChannelType   string
	SenderID      uint32
	WindowSize    uint32
	MaxPacketSize uint32
}

func (msg OpenMessage) String() string {
	return fmt.Sprintf("{OpenMessage ChannelType:%q SenderID:%d WindowSize:%d MaxPacketSize:%d}",
		msg.ChannelType, msg.SenderID, msg.WindowSize, msg.MaxPacketSize)
}

func (msg OpenMessage) Channel() (uint32, bool) {
	return 0, false
}

func (msg OpenMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(msgChannelOpen)
	writeString(buf, []byte(msg.ChannelType))
	binary.Write(buf, binary.BigEndian, struct {
		SenderID      uint32
		WindowSize    uint32
		MaxPacketSize uint32
	}{msg.SenderID, msg.WindowSize, msg.MaxPacketSize})
	return buf.Bytes()
}

func (msg *OpenMessage) decode(r io.Reader) error {
	chanType, err := readString(r)
	if err != nil {
		return err
	}
	msg.ChannelType = string(chanType)
	var fixed struct {
		SenderID      uint32
		WindowSize    uint32
		MaxPacketSize uint32
	}
	if err := binary.Read(r, binary.BigEndian, &fixed); err != nil {
		return err
	}
	msg.SenderID = fixed.SenderID
	msg.WindowSize = fixed.WindowSize
	msg.MaxPacketSize = fixed.MaxPacketSize
	return nil
}
