package mirror

import (
	"fmt"
	"unsafe"

	"github.com/qsproxy/qsmirror/device"
	"github.com/qsproxy/qsmirror/mesh"
)

// Builder stages host domains into a device-resident mirror.
//
// The walk is bottom-up: every leaf span is staged and its Ref recorded in
// the parent record before that parent record is itself staged, so by the
// time the descriptor arena is uploaded every embedded Ref resolves to a
// populated span. Host iteration order is preserved exactly; consumers
// assume cell index parity between the cell-state and connectivity/geometry
// arenas.
type Builder struct {
	Device device.Device
}

// NewBuilder creates a builder targeting dev.
func NewBuilder(dev device.Device) *Builder {
	return &Builder{Device: dev}
}

// Build produces the mirror of domains for the given energy-group count.
//
// The first allocation or copy failure aborts the build, releases every
// device buffer allocated so far and returns the error; a partially
// patched mirror is never returned. An empty domain list yields a valid
// zero-domain mirror.
func (b *Builder) Build(domains []mesh.Domain, numEnergyGroups int) (*Mirror, error) {
	if numEnergyGroups <= 0 {
		return nil, fmt.Errorf("mirror build: energy group count must be positive, got %d", numEnergyGroups)
	}
	for i := range domains {
		if err := domains[i].Validate(numEnergyGroups); err != nil {
			return nil, fmt.Errorf("mirror build: domain %d: %w", i, err)
		}
	}

	st := newStaging(domains, numEnergyGroups)
	for i := range domains {
		st.descriptors = append(st.descriptors, st.stageDomain(&domains[i], numEnergyGroups))
	}

	m := &Mirror{dev: b.Device, numDomains: len(domains)}
	for _, u := range st.uploadPlan() {
		if u.bytes == 0 {
			continue // zero-length arena: Refs keep Count 0, nothing to allocate
		}

		mem, err := b.Device.Malloc(u.bytes, nil)
		if err != nil {
			m.Free()
			return nil, fmt.Errorf("mirror build: stage %s: allocate %d bytes: %w", u.name, u.bytes, err)
		}
		m.arenas[u.arena] = mem

		if err := mem.CopyFrom(u.src, u.bytes); err != nil {
			m.Free()
			return nil, fmt.Errorf("mirror build: stage %s: copy %d bytes: %w", u.name, u.bytes, err)
		}
	}

	if err := b.Device.Finish(); err != nil {
		m.Free()
		return nil, fmt.Errorf("mirror build: wait for transfers: %w", err)
	}

	return m, nil
}

// staging is the transient host-side image of every arena. It exists only
// for the duration of one Build call.
type staging struct {
	crossSections []float64
	cellStates    []CellStateDevice
	connPoints    []int64
	connFacets    []mesh.FacetAdjacency
	connCells     []CellConnectivityDevice
	geomPlanes    []mesh.GeneralPlane
	geomCells     []CellGeometryDevice
	nodes         []mesh.Vec3
	nbrRanks      []int64
	descriptors   []DomainDevice
}

func newStaging(domains []mesh.Domain, numEnergyGroups int) *staging {
	var cells, points, facets, planes, nodes, ranks int
	for i := range domains {
		d := &domains[i]
		cells += len(d.CellState)
		for c := range d.Mesh.CellConnectivity {
			points += len(d.Mesh.CellConnectivity[c].Points)
			facets += len(d.Mesh.CellConnectivity[c].Facets)
		}
		for c := range d.Mesh.CellGeometry {
			planes += len(d.Mesh.CellGeometry[c].Facets)
		}
		nodes += len(d.Mesh.Node)
		ranks += len(d.Mesh.NbrRank)
	}

	return &staging{
		crossSections: make([]float64, 0, cells*numEnergyGroups),
		cellStates:    make([]CellStateDevice, 0, cells),
		connPoints:    make([]int64, 0, points),
		connFacets:    make([]mesh.FacetAdjacency, 0, facets),
		connCells:     make([]CellConnectivityDevice, 0, cells),
		geomPlanes:    make([]mesh.GeneralPlane, 0, planes),
		geomCells:     make([]CellGeometryDevice, 0, cells),
		nodes:         make([]mesh.Vec3, 0, nodes),
		nbrRanks:      make([]int64, 0, ranks),
		descriptors:   make([]DomainDevice, 0, len(domains)),
	}
}

// stageDomain flattens one domain into the arena images, children first,
// and returns its fully patched descriptor.
func (s *staging) stageDomain(d *mesh.Domain, numEnergyGroups int) DomainDevice {
	numCells := int64(len(d.CellState))

	// Cell state: per-cell energy-group spans, then the records that
	// reference them.
	cellStateOff := int64(len(s.cellStates))
	for c := range d.CellState {
		off := int64(len(s.crossSections))
		s.crossSections = append(s.crossSections, d.CellState[c].Total...)
		s.cellStates = append(s.cellStates, CellStateDevice{
			Total: Ref{Arena: ArenaCrossSections, Offset: off, Count: int64(numEnergyGroups)},
		})
	}

	// Connectivity: each cell carries its own point and facet spans.
	connCellOff := int64(len(s.connCells))
	for c := range d.Mesh.CellConnectivity {
		cell := &d.Mesh.CellConnectivity[c]

		pointOff := int64(len(s.connPoints))
		s.connPoints = append(s.connPoints, cell.Points...)

		facetOff := int64(len(s.connFacets))
		s.connFacets = append(s.connFacets, cell.Facets...)

		s.connCells = append(s.connCells, CellConnectivityDevice{
			Point: Ref{Arena: ArenaConnPoints, Offset: pointOff, Count: int64(len(cell.Points))},
			Facet: Ref{Arena: ArenaConnFacets, Offset: facetOff, Count: int64(len(cell.Facets))},
		})
	}

	// Geometry: one plane span per cell.
	geomCellOff := int64(len(s.geomCells))
	for c := range d.Mesh.CellGeometry {
		cell := &d.Mesh.CellGeometry[c]

		planeOff := int64(len(s.geomPlanes))
		s.geomPlanes = append(s.geomPlanes, cell.Facets...)

		s.geomCells = append(s.geomCells, CellGeometryDevice{
			Facet: Ref{Arena: ArenaGeomPlanes, Offset: planeOff, Count: int64(len(cell.Facets))},
		})
	}

	// Flat top-level arrays.
	nodeOff := int64(len(s.nodes))
	s.nodes = append(s.nodes, d.Mesh.Node...)

	rankOff := int64(len(s.nbrRanks))
	s.nbrRanks = append(s.nbrRanks, d.Mesh.NbrRank...)

	return DomainDevice{
		DomainIndex:  d.DomainIndex,
		GlobalDomain: d.GlobalDomain,
		CellState:    Ref{Arena: ArenaCellStates, Offset: cellStateOff, Count: numCells},
		Mesh: MeshDomainDevice{
			DomainGid:        d.Mesh.DomainGid,
			NbrRank:          Ref{Arena: ArenaNbrRanks, Offset: rankOff, Count: int64(len(d.Mesh.NbrRank))},
			Node:             Ref{Arena: ArenaNodes, Offset: nodeOff, Count: int64(len(d.Mesh.Node))},
			CellConnectivity: Ref{Arena: ArenaConnCells, Offset: connCellOff, Count: numCells},
			CellGeometry:     Ref{Arena: ArenaGeomCells, Offset: geomCellOff, Count: numCells},
		},
	}
}

// arenaUpload is one step of the dependency-ordered upload plan.
type arenaUpload struct {
	name  string
	arena Arena
	bytes int64
	src   unsafe.Pointer
}

// uploadPlan lists every arena in dependency order: leaf data first,
// record arenas next, the descriptor array last. The ordering constraint
// of the build is carried by this plan, not by call-site convention.
func (s *staging) uploadPlan() []arenaUpload {
	return []arenaUpload{
		upload(ArenaCrossSections, s.crossSections),
		upload(ArenaConnPoints, s.connPoints),
		upload(ArenaConnFacets, s.connFacets),
		upload(ArenaGeomPlanes, s.geomPlanes),
		upload(ArenaNodes, s.nodes),
		upload(ArenaNbrRanks, s.nbrRanks),
		upload(ArenaCellStates, s.cellStates),
		upload(ArenaConnCells, s.connCells),
		upload(ArenaGeomCells, s.geomCells),
		upload(ArenaDomains, s.descriptors),
	}
}

func upload[T any](arena Arena, data []T) arenaUpload {
	u := arenaUpload{name: arena.String(), arena: arena}
	if len(data) > 0 {
		var zero T
		u.bytes = int64(len(data)) * int64(unsafe.Sizeof(zero))
		u.src = unsafe.Pointer(&data[0])
	}
	return u
}
