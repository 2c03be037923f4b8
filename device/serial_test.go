package device

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialRoundTrip(t *testing.T) {
	dev := NewSerialDevice()
	assert.Equal(t, "Serial", dev.Mode())

	src := []float64{1.5, -2.25, 3.0, 4.125}
	bytes := int64(len(src) * 8)

	mem, err := dev.Malloc(bytes, unsafe.Pointer(&src[0]))
	require.NoError(t, err)
	require.Equal(t, bytes, mem.Bytes())

	dst := make([]float64, len(src))
	require.NoError(t, mem.CopyTo(unsafe.Pointer(&dst[0]), bytes))
	assert.Equal(t, src, dst)

	// Overwrite through CopyFrom and read back.
	src2 := []float64{9, 8, 7, 6}
	require.NoError(t, mem.CopyFrom(unsafe.Pointer(&src2[0]), bytes))
	require.NoError(t, mem.CopyTo(unsafe.Pointer(&dst[0]), bytes))
	assert.Equal(t, src2, dst)

	mem.Free()
}

func TestSerialMallocRejectsNonPositive(t *testing.T) {
	dev := NewSerialDevice()

	_, err := dev.Malloc(0, nil)
	require.Error(t, err)
	_, err = dev.Malloc(-8, nil)
	require.Error(t, err)
}

func TestSerialCopyBounds(t *testing.T) {
	dev := NewSerialDevice()
	mem, err := dev.Malloc(16, nil)
	require.NoError(t, err)
	defer mem.Free()

	buf := make([]byte, 32)
	require.Error(t, mem.CopyFrom(unsafe.Pointer(&buf[0]), 32))
	require.Error(t, mem.CopyTo(unsafe.Pointer(&buf[0]), 32))
	require.NoError(t, mem.CopyTo(unsafe.Pointer(&buf[0]), 16))
}

func TestSerialAllocationTracking(t *testing.T) {
	dev := NewSerialDevice()

	a, err := dev.Malloc(8, nil)
	require.NoError(t, err)
	b, err := dev.Malloc(8, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, dev.LiveAllocations())
	assert.Equal(t, 2, dev.TotalAllocations())

	a.Free()
	a.Free() // idempotent
	assert.Equal(t, 1, dev.LiveAllocations())

	b.Free()
	assert.Equal(t, 0, dev.LiveAllocations())
	assert.Equal(t, 2, dev.TotalAllocations())
}

func TestSerialUseAfterFree(t *testing.T) {
	dev := NewSerialDevice()
	mem, err := dev.Malloc(8, nil)
	require.NoError(t, err)
	mem.Free()

	var v int64
	require.Error(t, mem.CopyFrom(unsafe.Pointer(&v), 8))
	require.Error(t, mem.CopyTo(unsafe.Pointer(&v), 8))
}
