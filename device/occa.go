package device

import (
	"fmt"
	"unsafe"

	"github.com/notargets/gocca"
)

// OCCADevice adapts a gocca device to the Device interface. gocca's copy
// calls do not report errors; allocation failure surfaces as a nil memory
// object and is translated here.
type OCCADevice struct {
	dev *gocca.OCCADevice
}

// NewOCCADevice creates a device from an OCCA properties JSON string,
// e.g. `{"mode": "CUDA", "device_id": 0}`.
func NewOCCADevice(props string) (*OCCADevice, error) {
	dev, err := gocca.NewDevice(props)
	if err != nil {
		return nil, fmt.Errorf("create OCCA device: %w", err)
	}
	return &OCCADevice{dev: dev}, nil
}

func (d *OCCADevice) Malloc(bytes int64, src unsafe.Pointer) (Memory, error) {
	if bytes <= 0 {
		return nil, fmt.Errorf("occa malloc: non-positive size %d", bytes)
	}
	mem := d.dev.Malloc(bytes, src, nil)
	if mem == nil {
		return nil, fmt.Errorf("occa malloc: allocation of %d bytes failed on %s device", bytes, d.dev.Mode())
	}
	return &occaMemory{mem: mem, bytes: bytes}, nil
}

func (d *OCCADevice) Mode() string { return d.dev.Mode() }

func (d *OCCADevice) Finish() error {
	d.dev.Finish()
	return nil
}

func (d *OCCADevice) Free() {
	d.dev.Free()
}

type occaMemory struct {
	mem   *gocca.OCCAMemory
	bytes int64
	freed bool
}

func (m *occaMemory) CopyFrom(src unsafe.Pointer, bytes int64) error {
	if m.freed {
		return fmt.Errorf("occa memory: copy into freed allocation")
	}
	if bytes < 0 || bytes > m.bytes {
		return fmt.Errorf("occa memory: copy of %d bytes into allocation of %d", bytes, m.bytes)
	}
	m.mem.CopyFrom(src, bytes)
	return nil
}

func (m *occaMemory) CopyTo(dst unsafe.Pointer, bytes int64) error {
	if m.freed {
		return fmt.Errorf("occa memory: copy out of freed allocation")
	}
	if bytes < 0 || bytes > m.bytes {
		return fmt.Errorf("occa memory: copy of %d bytes out of allocation of %d", bytes, m.bytes)
	}
	m.mem.CopyTo(dst, bytes)
	return nil
}

func (m *occaMemory) Bytes() int64 {
	return m.bytes
}

func (m *occaMemory) Free() {
	if m.freed {
		return
	}
	m.freed = true
	m.mem.Free()
}
