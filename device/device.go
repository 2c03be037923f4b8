// Package device abstracts the target address space the mirror builder
// allocates into. Addresses in the target space are not valid on the host
// and vice versa; every transfer is explicit. The OCCA backend covers real
// accelerators, the serial backend keeps everything in host memory so the
// rest of the module is testable without an installed OCCA runtime.
package device

import "unsafe"

// Memory is a single allocation in the target address space. Allocations
// carry no implicit bounds metadata on the device; Bytes is the host-side
// record of the allocation size.
type Memory interface {
	// CopyFrom transfers bytes from host memory at src into the allocation.
	CopyFrom(src unsafe.Pointer, bytes int64) error

	// CopyTo transfers bytes from the allocation into host memory at dst.
	CopyTo(dst unsafe.Pointer, bytes int64) error

	// Bytes reports the allocation size.
	Bytes() int64

	// Free releases the allocation. Free is idempotent.
	Free()
}

// Device is one target address space. All operations are issued in order on
// a single queue; a copy has completed by the time the call returns.
type Device interface {
	// Malloc allocates bytes in the target space. If src is non-nil the
	// allocation is initialized from host memory at src.
	Malloc(bytes int64, src unsafe.Pointer) (Memory, error)

	// Mode names the backend, e.g. "Serial", "OpenMP", "CUDA".
	Mode() string

	// Finish blocks until all queued work has completed.
	Finish() error

	// Free releases the device and its queue.
	Free()
}

// NewBestDevice probes for a usable accelerator backend, preferring
// parallel OCCA modes, and falls back to the host-memory serial backend.
func NewBestDevice() Device {
	backends := []string{
		`{"mode": "OpenMP"}`,
		`{"mode": "CUDA", "device_id": 0}`,
		`{"mode": "Serial"}`,
	}

	for _, props := range backends {
		if dev, err := NewOCCADevice(props); err == nil {
			return dev
		}
	}

	return NewSerialDevice()
}
