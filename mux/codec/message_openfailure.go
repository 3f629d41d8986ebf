package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// OpenFailureReason is a channel open failure reason code from
// RFC 4254 section 5.1.
type OpenFailureReason uint32

const (
	OpenAdministrativelyProhibited OpenFailureReason = 1
	OpenConnectFailed              OpenFailureReason = 2
	OpenUnknownChannelType         OpenFailureReason = 3
	OpenResourceShortage           OpenFailureReason = 4
)

func (r OpenFailureReason) String() string {
	switch r {
	case OpenAdministrativelyProhibited:
		return "administratively prohibited"
	case OpenConnectFailed:
		return "connect failed"
	case OpenUnknownChannelType:
		return "unknown channel type"
	case OpenResourceShortage:
		return "resource shortage"
	default:
		return "unknown"
	}
}

type OpenFailureMessage struct {
	ChannelID   uint32
	Reason      OpenFailureReason
	Description string
}

func (msg OpenFailureMessage) String() string {
	return fmt.Sprintf("{OpenFailureMessage ChannelID:%d Reason:%s Description:%q}",
		msg.ChannelID, msg.Reason, msg.Description)
}

func (msg OpenFailureMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg OpenFailureMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(msgChannelOpenFailure)
	binary.Write(buf, binary.BigEndian, msg.ChannelID)
	binary.Write(buf, binary.BigEndian, uint32(msg.Reason))
	writeString(buf, []byte(msg.Description))
	return buf.Bytes()
}

func (msg *OpenFailureMessage) decode(r io.Reader) error {
	var fixed struct {
		ChannelID uint32
		Reason    uint32
	}
	if err := binary.Read(r, binary.BigEndian, &fixed); err != nil {
		return err
	}
	msg.ChannelID = fixed.ChannelID
	msg.Reason = OpenFailureReason(fixed.Reason)
	desc, err := readString(r)
	if err != nil {
		return err
	}
	msg.Description = string(desc)
	return nil
}
