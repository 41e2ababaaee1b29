package packfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDeltaCopyOpcode(t *testing.T) {
	base := []byte("Hello World")
	delta := []byte{11, 5, 0x91, 0x00, 0x05}

	got, err := applyDelta(base, delta)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(got))
}

func TestApplyDeltaInsertOpcode(t *testing.T) {
	base := []byte("ignored")
	insert := []byte("xyz")
	delta := append([]byte{7, 3}, append([]byte{byte(len(insert))}, insert...)...)

	got, err := applyDelta(base, delta)
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(got))
}

func TestApplyDeltaMixedCopyAndInsert(t *testing.T) {
	base := []byte("Hello World")
	// copy "Hello" (offset 0, size 5), insert " there ", copy "World" (offset 6, size 5)
	delta := []byte{}
	insert := []byte(" there ")
	delta = append(delta, 11, byte(5+len(insert)+5)) // base size 11, result size
	delta = append(delta, 0x91, 0x00, 0x05)
	delta = append(delta, byte(len(insert)))
	delta = append(delta, insert...)
	delta = append(delta, 0x91, 0x06, 0x05)

	got, err := applyDelta(base, delta)
	require.NoError(t, err)
	assert.Equal(t, "Hello there World", string(got))
}

func TestApplyDeltaRejectsBaseSizeMismatch(t *testing.T) {
	base := []byte("Hello World")
	delta := []byte{50, 5, 0x91, 0x00, 0x05}

	_, err := applyDelta(base, delta)
	assert.Error(t, err)
}

func TestApplyDeltaRejectsOutOfBoundsCopy(t *testing.T) {
	base := []byte("Hello")
	delta := []byte{5, 10, 0x91, 0x00, 0x0a} // copy 10 bytes from offset 0, base is 5
	_, err := applyDelta(base, delta)
	assert.Error(t, err)
}

func TestApplyDeltaZeroCopySizeMeans0x10000(t *testing.T) {
	base := make([]byte, deltaMaxCopySize)
	for i := range base {
		base[i] = byte(i)
	}
	delta := []byte{}
	delta = append(delta, encodeVarintForTest(uint64(len(base)))...)
	delta = append(delta, encodeVarintForTest(uint64(deltaMaxCopySize))...)
	delta = append(delta, 0x80) // copy, no offset/size bytes -> offset 0, size 0x10000

	got, err := applyDelta(base, delta)
	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func encodeVarintForTest(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}
