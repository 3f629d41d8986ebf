package codec

import (
	"encoding/binary"
	"fmt"
	"io"
)

type ExtendedDataMessage struct {
	ChannelID uint32
	DataType  uint32
	Length    uint32
	Data      []byte
}

func (msg ExtendedDataMessage) String() string {
	return fmt.Sprintf("{ExtendedDataMessage ChannelID:%d DataType:%d Length:%d Data: ... }",
		msg.ChannelID, msg.DataType, msg.Length)
}

func (msg ExtendedDataMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg ExtendedDataMessage) Bytes() []byte {
	packet := make([]byte, 13)
	packet[0] = msgChannelExtendedData
	binary.BigEndian.PutUint32(packet[1:5], msg.ChannelID)
	binary.BigEndian.PutUint32(packet[5:9], msg.DataType)
	binary.BigEndian.PutUint32(packet[9:13], msg.Length)
	return append(packet, msg.Data...)
}

func (msg *ExtendedDataMessage) decode(r io.Reader) error {
	var header struct {
		ChannelID uint32
		DataType  uint32
		Length    uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return err
	}
	if header.Length > maxStringLength {
		return errStringTooLong
	}
	msg.ChannelID = header.ChannelID
	msg.DataType = header.DataType
	msg.Length = header.Length
	msg.Data = make([]byte, header.Length)
	_, err := io.ReadFull(r, msg.Data)
	return err
}
