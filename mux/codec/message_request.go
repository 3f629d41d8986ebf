package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// RequestMessage carries a channel request. The payload encoding is
// specific to the request type; the codec treats it as opaque bytes.
type RequestMessage struct {
	ChannelID   uint32
	RequestType string
	WantReply   bool
	Payload     []byte
}

func (msg RequestMessage) String() string {
	return fmt.Sprintf("{RequestMessage ChannelID:%d RequestType:%q WantReply:%v Payload: ... }",
		msg.ChannelID, msg.RequestType, msg.WantReply)
}

func (msg RequestMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg RequestMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(msgChannelRequest)
	binary.Write(buf, binary.BigEndian, msg.ChannelID)
	writeString(buf, []byte(msg.RequestType))
	writeBool(buf, msg.WantReply)
	writeString(buf, msg.Payload)
	return buf.Bytes()
}

func (msg *RequestMessage) decode(r io.Reader) error {
	if err := binary.Read(r, binary.BigEndian, &msg.ChannelID); err != nil {
		return err
	}
	reqType, err := readString(r)
	if err != nil {
		return err
	}
	msg.RequestType = string(reqType)
	if msg.WantReply, err = readBool(r); err != nil {
		return err
	}
	if msg.Payload, err = readString(r); err != nil {
		return err
	}
	return nil
}
