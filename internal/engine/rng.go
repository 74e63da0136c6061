package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"
	"strconv"
)

// ByteGenerator streams bytes from HMAC-SHA256(serverSeed, "client:nonce:round"),
// refilling its 32-byte buffer one round at a time.
type ByteGenerator struct {
	mac          hash.Hash
	clientSeed   string
	nonce        uint64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
	msg          []byte
}

// NewByteGenerator creates a byte generator positioned at cursor.
func NewByteGenerator(serverSeed, clientSeed string, nonce uint64, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		mac:          hmac.New(sha256.New, []byte(serverSeed)),
		clientSeed:   clientSeed,
		nonce:        nonce,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
		msg:          make([]byte, 0, len(clientSeed)+42),
	}
	bg.generateRound()
	return bg
}

// Next returns the next byte from the stream.
func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= 32 {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}

	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// NextFloat consumes exactly 4 bytes and returns a float in [0, 1).
func (bg *ByteGenerator) NextFloat() float64 {
	return bytesToFloat([4]byte{bg.Next(), bg.Next(), bg.Next(), bg.Next()})
}

// Cursor reports how many bytes have been consumed since round 0.
func (bg *ByteGenerator) Cursor() uint64 {
	return bg.currentRound*32 + uint64(bg.currentPos)
}

func (bg *ByteGenerator) generateRound() {
	bg.msg = bg.msg[:0]
	bg.msg = append(bg.msg, bg.clientSeed...)
	bg.msg = append(bg.msg, ':')
	bg.msg = strconv.AppendUint(bg.msg, bg.nonce, 10)
	bg.msg = append(bg.msg, ':')
	bg.msg = strconv.AppendUint(bg.msg, bg.currentRound, 10)

	bg.mac.Reset()
	bg.mac.Write(bg.msg)
	bg.mac.Sum(bg.buffer[:0])
}

// bytesToFloat treats the bytes as base-256 digits after the radix point.
func bytesToFloat(b [4]byte) float64 {
	return float64(b[0])/256 +
		float64(b[1])/65536 +
		float64(b[2])/16777216 +
		float64(b[3])/4294967296
}

// Floats generates count floats starting from the given cursor.
func Floats(serverSeed, clientSeed string, nonce uint64, cursor uint64, count int) []float64 {
	return FloatsInto(nil, serverSeed, clientSeed, nonce, cursor, count)
}

// FloatsInto fills dst with floats, allocating only when dst is too small.
func FloatsInto(dst []float64, serverSeed, clientSeed string, nonce uint64, cursor uint64, count int) []float64 {
	if len(dst) < count {
		dst = make([]float64, count)
	}

	bg := NewByteGenerator(serverSeed, clientSeed, nonce, cursor)
	for i := 0; i < count; i++ {
		dst[i] = bg.NextFloat()
	}
	return dst[:count]
}
