package codec

import (
	"encoding/binary"
	"fmt"
	"io"
)

type DataMessage struct {
	ChannelID uint32
	Length    uint32
	Data      []byte
}

func (msg DataMessage) String() string {
	return fmt.Sprintf("{DataMessage ChannelID:%d Length:%d Data: ... }",
		msg.ChannelID, msg.Length)
}

func (msg DataMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg DataMessage) Bytes() []byte {
	packet := make([]byte, 9)
	packet[0] = msgChannelData
	binary.BigEndian.PutUint32(packet[1:5], msg.ChannelID)
	binary.BigEndian.PutUint32(packet[5:9], msg.Length)
	return append(packet, msg.Data...)
}

func (msg *DataMessage) decode(r io.Reader) error {
	var header struct {
		ChannelID uint32
		Length    uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return err
	}
	if header.Length > maxStringLength {
		return errStringTooLong
	}
	msg.ChannelID = header.ChannelID
	msg.Length = header.Length
	msg.Data = make([]byte, header.Length)
	_, err := io.ReadFull(r, msg.Data)
	return err
}
