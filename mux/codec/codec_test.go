package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		in Message
		id uint32
		ok bool
	}{
		{
			in: OpenMessage{
				ChannelType:   "session",
				SenderID:      10,
				WindowSize:    1024,
				MaxPacketSize: 1 << 15,
			},
			id: 0,
			ok: false,
		},
		{
			in: OpenConfirmMessage{
				ChannelID:     20,
				SenderID:      10,
				WindowSize:    1024,
				MaxPacketSize: 1 << 15,
			},
			id: 20,
			ok: true,
		},
		{
			in: OpenFailureMessage{
				ChannelID:   20,
				Reason:      OpenUnknownChannelType,
				Description: "x11 is not supported",
			},
			id: 20,
			ok: true,
		},
		{
			in: WindowAdjustMessage{
				ChannelID:       20,
				AdditionalBytes: 1024,
			},
			id: 20,
			ok: true,
		},
		{
			in: DataMessage{
				ChannelID: 10,
				Length:    5,
				Data:      []byte("Hello"),
			},
			id: 10,
			ok: true,
		},
		{
			in: ExtendedDataMessage{
				ChannelID: 10,
				DataType:  ExtendedDataStderr,
				Length:    6,
				Data:      []byte("oh no\n"),
			},
			id: 10,
			ok: true,
		},
		{
			in: EOFMessage{
				ChannelID: 10,
			},
			id: 10,
			ok: true,
		},
		{
			in: CloseMessage{
				ChannelID: 10,
			},
			id: 10,
			ok: true,
		},
		{
			in: RequestMessage{
				ChannelID:   7,
				RequestType: "exec",
				WantReply:   true,
				Payload:     []byte{0, 0, 0, 2, 'l', 's'},
			},
			id: 7,
			ok: true,
		},
		{
			in: SuccessMessage{
				ChannelID: 7,
			},
			id: 7,
			ok: true,
		},
		{
			in: FailureMessage{
				ChannelID: 7,
			},
			id: 7,
			ok: true,
		},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		enc := NewEncoder(&buf)
		require.NoError(t, enc.Encode(test.in))

		dec := NewDecoder(&buf)
		m, err := dec.Decode()
		require.NoError(t, err)

		id, ok := m.Channel()
		require.Equal(t, test.id, id)
		require.Equal(t, test.ok, ok)
		require.NotEmpty(t, m.String())
	}
}

func TestDecodeRoundTripFields(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	in := RequestMessage{
		ChannelID:   3,
		RequestType: "env",
		WantReply:   false,
		Payload:     []byte{0, 0, 0, 1, 'A', 0, 0, 0, 1, 'B'},
	}
	require.NoError(t, enc.Encode(in))

	m, err := NewDecoder(&buf).Decode()
	require.NoError(t, err)

	got, isReq := m.(*RequestMessage)
	require.True(t, isReq)
	require.Equal(t, in.ChannelID, got.ChannelID)
	require.Equal(t, in.RequestType, got.RequestType)
	require.Equal(t, in.WantReply, got.WantReply)
	require.Equal(t, in.Payload, got.Payload)
}

func TestDecodeUnknownMessage(t *testing.T) {
	buf := bytes.NewBuffer([]byte{42, 0, 0, 0, 0})
	_, err := NewDecoder(buf).Decode()
	require.Error(t, err)
}

func TestDecodeTruncatedData(t *testing.T) {
	// A data message header announcing more payload than follows.
	msg := DataMessage{ChannelID: 1, Length: 5, Data: []byte("Hello")}
	full := msg.Bytes()
	buf := bytes.NewBuffer(full[:len(full)-2])
	_, err := NewDecoder(buf).Decode()
	require.Error(t, err)
}

func TestDecodeOversizedString(t *testing.T) {
	msg := DataMessage{ChannelID: 1, Length: maxStringLength + 1}
	buf := bytes.NewBuffer(msg.Bytes())
	_, err := NewDecoder(buf).Decode()
	require.ErrorIs(t, err, errStringTooLong)
}
