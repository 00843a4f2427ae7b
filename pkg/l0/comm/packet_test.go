package comm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacketSeq(t *testing.T) {
	for s := byte(0xff); s >= byte(0xf0); s-- {
		require.False(t, PacketSeq(s).IsValid())
		require.Equal(t, PacketSeq(1), PacketSeq(s).Next())
	}
	for s := byte(1); s < byte(0xf0); s++ {
		require.True(t, PacketSeq(s).IsValid())
		if s+1 < 0xf0 {
			require.Equal(t, PacketSeq(s+1), PacketSeq(s).Next())
		} else {
			require.Equal(t, PacketSeq(1), PacketSeq(s).Next())
		}
	}
	require.False(t, PacketSeq(0).IsValid())
	require.Equal(t, PacketSeq(1), PacketSeq(0).Next())
	require.True(t, NewPacketSeq().IsValid())
}

func TestPacketEncoding(t *testing.T) {
	drive := []byte{1, 0x0f, 0xa0, 0x0f, 0xa0}
	testCases := []struct {
		name   string
		packet Packet
		expect []byte
	}{
		{"stop", Packet{Seq: 1, Code: 6}, []byte{1, 6}},
		{"indicate", Packet{Seq: 1, Code: 8, Data: []byte{3}}, []byte{1, 0x18, 3}},
		{"drive", Packet{Seq: 2, Code: 4, Data: drive}, append([]byte{2, 0x54}, drive...)},
		{"inline limit", Packet{Seq: 1, Code: 2, Data: []byte{1, 2, 3, 4, 5, 6}}, []byte{1, 0x62, 1, 2, 3, 4, 5, 6}},
		{"extended length", Packet{Seq: 1, Code: 2, Data: []byte{1, 2, 3, 4, 5, 6, 7}}, []byte{1, 0x72, 7, 1, 2, 3, 4, 5, 6, 7}},
		{"bump event", Packet{Seq: 3, Code: 0x82, Data: []byte{0x5a}}, []byte{3, 0x92, 0x5a}},
		{"event no data", Packet{Seq: 1, Code: 0x82}, []byte{1, 0x82}},
		{"stray length bits", Packet{Seq: 1, Code: 0x72}, []byte{1, 0x02}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.packet.Bytes())
			var buf bytes.Buffer
			n, err := tc.packet.WriteTo(&buf)
			require.NoError(t, err)
			require.Equal(t, tc.expect, buf.Bytes())
			require.Equal(t, len(tc.expect), n)
			require.Equal(t, tc.packet.Code&CodeEvent != 0, tc.packet.IsEvent())
		})
	}
}

func TestPacketTruncatesPayload(t *testing.T) {
	pkt := Packet{Seq: 1, Code: 2, Data: make([]byte, MaxDataLen+10)}
	b := pkt.Bytes()
	require.Len(t, b, MaxDataLen+3)
	require.Equal(t, byte(MaxDataLen), b[2])
}
