package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteU16(t *testing.T) {
	buf := make([]byte, 4)
	PutU16BE(buf, 0, 0x1234)
	v, err := ReadU16BE(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)

	PutU16LE(buf, 2, 0x1234)
	v, err = ReadU16LE(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)

	_, err = ReadU16BE(buf, 3)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestHexString(t *testing.T) {
	assert.Equal(t, "01 AB", HexString([]byte{0x01, 0xAB}))
	assert.Equal(t, "", HexString(nil))
	assert.Equal(t, "01AB", HexStringCompact([]byte{0x01, 0xAB}))
}

func TestCRC16KnownVector(t *testing.T) {
	// Read Holding Registers request: unit 0x01, FC 0x03, addr 0x006B, qty 0x0003
	data := []byte{0x01, 0x03, 0x00, 0x6B, 0x00, 0x03}
	crc := CRC16(data)
	assert.Equal(t, uint16(0x7687), crc)

	framed := CRC16LE(append([]byte{}, data...), data)
	assert.True(t, VerifyCRC16(framed))
	framed[len(framed)-1] ^= 0xFF
	assert.False(t, VerifyCRC16(framed))
}

func TestLRCRoundTrip(t *testing.T) {
	body := []byte{0x01, 0x03, 0x00, 0x6B, 0x00, 0x03}
	lrc := LRC(body)
	framed := append(append([]byte{}, body...), lrc)
	assert.True(t, VerifyLRC(framed))

	framed[len(framed)-1]++
	assert.False(t, VerifyLRC(framed))
}

func TestMBAPEncodeDecodeRoundTrip(t *testing.T) {
	pdu := []byte{0x03, 0x00, 0x6B, 0x00, 0x03}
	frame := EncodeMBAP(7, 1, pdu)

	var dec MBAPDecoder
	dec.Feed(frame)
	got, ok, err := dec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint16(7), got.TransactionID)
	assert.Equal(t, uint8(1), got.UnitID)
	assert.Equal(t, pdu, got.PDU)

	_, ok, err = dec.Next()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMBAPDecoderFeedByteAtATime(t *testing.T) {
	pdu := []byte{0x03, 0x00, 0x6B, 0x00, 0x03}
	frame := EncodeMBAP(42, 9, pdu)

	var dec MBAPDecoder
	var got MBAPFrame
	var ok bool
	for i := range frame {
		dec.Feed(frame[i : i+1])
		var err error
		got, ok, err = dec.Next()
		require.NoError(t, err)
		if ok {
			break
		}
	}
	require.True(t, ok)
	assert.Equal(t, uint16(42), got.TransactionID)
	assert.Equal(t, uint8(9), got.UnitID)
	assert.Equal(t, pdu, got.PDU)
}

func TestMBAPDecoderBadProtocolID(t *testing.T) {
	frame := EncodeMBAP(1, 1, []byte{0x03, 0x00, 0x00, 0x00, 0x01})
	frame[3] = 0x01 // corrupt protocol id low byte

	var dec MBAPDecoder
	dec.Feed(frame)
	_, _, err := dec.Next()
	assert.ErrorIs(t, err, ErrProtocolID)
}

func TestRTUEncodeDecodeRoundTrip(t *testing.T) {
	pdu := []byte{0x03, 0x00, 0x6B, 0x00, 0x03}
	frame := EncodeRTU(1, pdu)

	got, consumed, err := TryParseRTU(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), consumed)
	assert.Equal(t, uint8(1), got.UnitID)
	assert.Equal(t, pdu, got.PDU)
}

func TestRTUTooShort(t *testing.T) {
	_, _, err := TryParseRTU([]byte{0x01, 0x03})
	assert.ErrorIs(t, err, ErrNeedMore)
}

func TestRTUBadCRC(t *testing.T) {
	frame := EncodeRTU(1, []byte{0x03, 0x00, 0x6B, 0x00, 0x03})
	frame[len(frame)-1] ^= 0xFF
	_, _, err := TryParseRTU(frame)
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestASCIIEncodeDecodeRoundTrip(t *testing.T) {
	pdu := []byte{0x03, 0x00, 0x6B, 0x00, 0x03}
	frame := EncodeASCII(1, pdu)
	assert.Equal(t, byte(':'), frame[0])
	assert.Equal(t, "\r\n", string(frame[len(frame)-2:]))

	var dec ASCIIDecoder
	dec.Feed(frame)
	got, ok := dec.Next()
	require.True(t, ok)
	assert.Equal(t, uint8(1), got.UnitID)
	assert.Equal(t, pdu, got.PDU)
}

func TestASCIIDecoderDropsMalformedAndResyncs(t *testing.T) {
	good := EncodeASCII(1, []byte{0x03, 0x00, 0x6B, 0x00, 0x03})
	// a malformed frame (bad LRC) ahead of a good one must be dropped, not block the good frame
	bad := []byte(":0103006B0003FF\r\n")

	var dec ASCIIDecoder
	dec.Feed(bad)
	dec.Feed(good)

	got, ok := dec.Next()
	require.True(t, ok)
	assert.Equal(t, uint8(1), got.UnitID)
}

func TestWordOrderDecodeUint32(t *testing.T) {
	// ABCD: high word first, high byte first within each word
	hi, lo := uint16(0x0102), uint16(0x0304)
	v, err := DecodeUint32(hi, lo, ABCD)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), v)

	v, err = DecodeUint32(hi, lo, CDAB)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x03040102), v)
}
