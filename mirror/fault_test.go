package mirror

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qsproxy/qsmirror/device"
)

// faultDevice fails the Nth allocation, standing in for target-space
// resource exhaustion at an arbitrary nesting level.
type faultDevice struct {
	*device.SerialDevice
	failAt int
	calls  int
}

func (d *faultDevice) Malloc(bytes int64, src unsafe.Pointer) (device.Memory, error) {
	d.calls++
	if d.calls == d.failAt {
		return nil, fmt.Errorf("injected allocation failure at call %d", d.failAt)
	}
	return d.SerialDevice.Malloc(bytes, src)
}

// copyFaultDevice lets the Nth allocation succeed but fails its first copy.
type copyFaultDevice struct {
	*device.SerialDevice
	failAt int
	calls  int
}

func (d *copyFaultDevice) Malloc(bytes int64, src unsafe.Pointer) (device.Memory, error) {
	mem, err := d.SerialDevice.Malloc(bytes, src)
	if err != nil {
		return nil, err
	}
	d.calls++
	if d.calls == d.failAt {
		return &copyFaultMemory{Memory: mem}, nil
	}
	return mem, nil
}

type copyFaultMemory struct {
	device.Memory
}

func (m *copyFaultMemory) CopyFrom(src unsafe.Pointer, bytes int64) error {
	return fmt.Errorf("injected copy failure")
}

func TestBuildAllocationFailureAborts(t *testing.T) {
	domains := testDomains(t, 2, 5, 4) // two domains: every arena is non-empty

	// Probe how many allocations a clean build makes.
	clean := device.NewSerialDevice()
	m, err := NewBuilder(clean).Build(domains, 4)
	require.NoError(t, err)
	totalAllocs := clean.TotalAllocations()
	m.Free()
	require.Equal(t, int(numArenas)-1, totalAllocs,
		"expected one allocation per arena")

	for failAt := 1; failAt <= totalAllocs; failAt++ {
		dev := &faultDevice{SerialDevice: device.NewSerialDevice(), failAt: failAt}

		m, err := NewBuilder(dev).Build(domains, 4)
		require.Error(t, err, "failAt=%d", failAt)
		require.Nil(t, m, "failAt=%d", failAt)
		assert.Contains(t, err.Error(), "injected allocation failure")

		// Fail-fast: no allocation is attempted after the failing one.
		assert.Equal(t, failAt, dev.calls, "failAt=%d", failAt)

		// Full cleanup: nothing allocated before the failure leaks.
		assert.Equal(t, 0, dev.LiveAllocations(), "failAt=%d", failAt)
	}
}

func TestBuildCopyFailureAborts(t *testing.T) {
	domains := testDomains(t, 2, 5, 4)

	dev := &copyFaultDevice{SerialDevice: device.NewSerialDevice(), failAt: 3}
	m, err := NewBuilder(dev).Build(domains, 4)
	require.Error(t, err)
	require.Nil(t, m)
	assert.Contains(t, err.Error(), "injected copy failure")
	assert.Equal(t, 0, dev.LiveAllocations())
}

func TestBuildFailureBeforeDescriptorUpload(t *testing.T) {
	domains := testDomains(t, 2, 5, 4)

	// The descriptor arena is uploaded last; failing its allocation must
	// not leak any of the child arenas.
	dev := &faultDevice{SerialDevice: device.NewSerialDevice(), failAt: int(numArenas) - 1}
	m, err := NewBuilder(dev).Build(domains, 4)
	require.Error(t, err)
	require.Nil(t, m)
	assert.Contains(t, err.Error(), "stage "+ArenaDomains.String())
	assert.Equal(t, 0, dev.LiveAllocations())
}

// Keep the fault devices honest: they still satisfy the interface the
// builder consumes.
var (
	_ device.Device = (*faultDevice)(nil)
	_ device.Device = (*copyFaultDevice)(nil)
)
