package mirror

import (
	"fmt"
	"unsafe"

	"github.com/qsproxy/qsmirror/device"
	"github.com/qsproxy/qsmirror/mesh"
)

// Mirror is the device-resident copy of a host domain set. It owns every
// arena it references; nothing else reclaims them. The read-back accessors
// are the host-side view of the structure a compute kernel would walk on
// the device: resolve a Ref against its arena, checking Count first.
type Mirror struct {
	dev        device.Device
	arenas     [numArenas]device.Memory
	numDomains int
	freed      bool
}

// NumDomains returns the descriptor count of the mirror.
func (m *Mirror) NumDomains() int {
	return m.numDomains
}

// Handle returns the device allocation holding the descriptor array and
// its element count. The memory is nil for a zero-domain mirror.
func (m *Mirror) Handle() (device.Memory, int) {
	return m.arenas[ArenaDomains], m.numDomains
}

// ArenaBytes reports the allocated size of every arena, keyed by name.
// Unallocated (zero-length) arenas are omitted.
func (m *Mirror) ArenaBytes() map[string]int64 {
	sizes := make(map[string]int64)
	for a := ArenaNone + 1; a < numArenas; a++ {
		if mem := m.arenas[a]; mem != nil {
			sizes[a.String()] = mem.Bytes()
		}
	}
	return sizes
}

// Descriptors copies the whole descriptor array back from the device.
func (m *Mirror) Descriptors() ([]DomainDevice, error) {
	if m.numDomains == 0 {
		return []DomainDevice{}, nil
	}
	return readArena[DomainDevice](m, ArenaDomains,
		Ref{Arena: ArenaDomains, Offset: 0, Count: int64(m.numDomains)})
}

// Descriptor copies back the descriptor of domain i.
func (m *Mirror) Descriptor(i int) (DomainDevice, error) {
	if i < 0 || i >= m.numDomains {
		return DomainDevice{}, fmt.Errorf("mirror: domain %d out of range [0,%d)", i, m.numDomains)
	}
	recs, err := readArena[DomainDevice](m, ArenaDomains,
		Ref{Arena: ArenaDomains, Offset: int64(i), Count: 1})
	if err != nil {
		return DomainDevice{}, err
	}
	return recs[0], nil
}

// CrossSections resolves a cell state's energy-group span.
func (m *Mirror) CrossSections(ref Ref) ([]float64, error) {
	return readArena[float64](m, ArenaCrossSections, ref)
}

// CellStates resolves a domain descriptor's cell-state span.
func (m *Mirror) CellStates(ref Ref) ([]CellStateDevice, error) {
	return readArena[CellStateDevice](m, ArenaCellStates, ref)
}

// Points resolves a connectivity cell's point-index span.
func (m *Mirror) Points(ref Ref) ([]int64, error) {
	return readArena[int64](m, ArenaConnPoints, ref)
}

// Facets resolves a connectivity cell's facet-adjacency span.
func (m *Mirror) Facets(ref Ref) ([]mesh.FacetAdjacency, error) {
	return readArena[mesh.FacetAdjacency](m, ArenaConnFacets, ref)
}

// ConnectivityCells resolves a mesh descriptor's connectivity span.
func (m *Mirror) ConnectivityCells(ref Ref) ([]CellConnectivityDevice, error) {
	return readArena[CellConnectivityDevice](m, ArenaConnCells, ref)
}

// Planes resolves a geometry cell's facet-plane span.
func (m *Mirror) Planes(ref Ref) ([]mesh.GeneralPlane, error) {
	return readArena[mesh.GeneralPlane](m, ArenaGeomPlanes, ref)
}

// GeometryCells resolves a mesh descriptor's geometry span.
func (m *Mirror) GeometryCells(ref Ref) ([]CellGeometryDevice, error) {
	return readArena[CellGeometryDevice](m, ArenaGeomCells, ref)
}

// Nodes resolves a mesh descriptor's node span.
func (m *Mirror) Nodes(ref Ref) ([]mesh.Vec3, error) {
	return readArena[mesh.Vec3](m, ArenaNodes, ref)
}

// NbrRanks resolves a mesh descriptor's neighbor-rank span.
func (m *Mirror) NbrRanks(ref Ref) ([]int64, error) {
	return readArena[int64](m, ArenaNbrRanks, ref)
}

// Free releases every arena the mirror owns. Free is idempotent and safe
// on a nil mirror.
func (m *Mirror) Free() {
	if m == nil || m.freed {
		return
	}
	m.freed = true
	for i, mem := range m.arenas {
		if mem != nil {
			mem.Free()
			m.arenas[i] = nil
		}
	}
}

// readArena copies the referenced span back to host memory. A zero-count
// ref resolves to an empty span without touching the device.
func readArena[T any](m *Mirror, arena Arena, ref Ref) ([]T, error) {
	if m.freed {
		return nil, fmt.Errorf("mirror: read after Free")
	}
	if ref.Count == 0 {
		return []T{}, nil
	}
	if ref.Arena != arena {
		return nil, fmt.Errorf("mirror: ref into arena %s resolved against %s", ref.Arena, arena)
	}

	mem := m.arenas[arena]
	if mem == nil {
		return nil, fmt.Errorf("mirror: ref with count %d into unallocated arena %s", ref.Count, arena)
	}

	var zero T
	elemSize := int64(unsafe.Sizeof(zero))
	total := mem.Bytes() / elemSize
	if ref.Offset < 0 || ref.Count < 0 || ref.Offset+ref.Count > total {
		return nil, fmt.Errorf("mirror: ref [%d,%d) out of range for arena %s of %d elements",
			ref.Offset, ref.Offset+ref.Count, arena, total)
	}

	buf := make([]T, total)
	if err := mem.CopyTo(unsafe.Pointer(&buf[0]), mem.Bytes()); err != nil {
		return nil, fmt.Errorf("mirror: read arena %s: %w", arena, err)
	}

	out := make([]T, ref.Count)
	copy(out, buf[ref.Offset:ref.Offset+ref.Count])
	return out, nil
}
