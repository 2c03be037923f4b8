package device

import (
	"fmt"
	"sync"
	"unsafe"
)

// SerialDevice is the host-memory backend. Every "device" allocation is a
// plain byte buffer, so copies are memmoves and the address space is the
// host's own. It also counts live allocations, which the mirror tests use
// to prove that failed builds and teardown do not leak.
type SerialDevice struct {
	mu    sync.Mutex
	live  int
	total int
}

// NewSerialDevice creates a host-memory device.
func NewSerialDevice() *SerialDevice {
	return &SerialDevice{}
}

func (d *SerialDevice) Malloc(bytes int64, src unsafe.Pointer) (Memory, error) {
	if bytes <= 0 {
		return nil, fmt.Errorf("serial malloc: non-positive size %d", bytes)
	}

	buf := make([]byte, bytes)
	if src != nil {
		copy(buf, unsafe.Slice((*byte)(src), bytes))
	}

	d.mu.Lock()
	d.live++
	d.total++
	d.mu.Unlock()

	return &serialMemory{dev: d, buf: buf}, nil
}

func (d *SerialDevice) Mode() string { return "Serial" }

func (d *SerialDevice) Finish() error { return nil }

func (d *SerialDevice) Free() {}

// LiveAllocations reports allocations that have not been freed.
func (d *SerialDevice) LiveAllocations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// TotalAllocations reports all allocations ever made on this device.
func (d *SerialDevice) TotalAllocations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

func (d *SerialDevice) release() {
	d.mu.Lock()
	d.live--
	d.mu.Unlock()
}

type serialMemory struct {
	dev   *SerialDevice
	buf   []byte
	freed bool
}

func (m *serialMemory) CopyFrom(src unsafe.Pointer, bytes int64) error {
	if m.freed {
		return fmt.Errorf("serial memory: copy into freed allocation")
	}
	if bytes < 0 || bytes > int64(len(m.buf)) {
		return fmt.Errorf("serial memory: copy of %d bytes into allocation of %d", bytes, len(m.buf))
	}
	copy(m.buf, unsafe.Slice((*byte)(src), bytes))
	return nil
}

func (m *serialMemory) CopyTo(dst unsafe.Pointer, bytes int64) error {
	if m.freed {
		return fmt.Errorf("serial memory: copy out of freed allocation")
	}
	if bytes < 0 || bytes > int64(len(m.buf)) {
		return fmt.Errorf("serial memory: copy of %d bytes out of allocation of %d", bytes, len(m.buf))
	}
	copy(unsafe.Slice((*byte)(dst), bytes), m.buf[:bytes])
	return nil
}

func (m *serialMemory) Bytes() int64 {
	return int64(len(m.buf))
}

func (m *serialMemory) Free() {
	if m.freed {
		return
	}
	m.freed = true
	m.buf = nil
	m.dev.release()
}
