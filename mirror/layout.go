// Package mirror builds a self-contained copy of the host domain model in
// an accelerator address space. Each nesting level of the host structure
// (cross-section arrays, cell states, connectivity points and facets,
// geometry planes, nodes, neighbor ranks, domain descriptors) becomes one
// pooled device buffer, an arena, owned by the mirror as a whole. Parents
// reference children through Ref triples rather than raw device pointers,
// so a descriptor is meaningful on the device without any host mediation:
// a kernel resolves a Ref against the arena base it was handed.
package mirror

// Arena identifies one nesting level's pooled device buffer.
type Arena int64

const (
	ArenaNone Arena = iota
	ArenaCrossSections // float64 energy-group totals, per cell
	ArenaCellStates    // CellStateDevice records
	ArenaConnPoints    // int64 point indices
	ArenaConnFacets    // mesh.FacetAdjacency records
	ArenaConnCells     // CellConnectivityDevice records
	ArenaGeomPlanes    // mesh.GeneralPlane records
	ArenaGeomCells     // CellGeometryDevice records
	ArenaNodes         // mesh.Vec3 records
	ArenaNbrRanks      // int64 neighbor ranks
	ArenaDomains       // DomainDevice descriptors
	numArenas
)

func (a Arena) String() string {
	switch a {
	case ArenaNone:
		return "none"
	case ArenaCrossSections:
		return "crossSections"
	case ArenaCellStates:
		return "cellStates"
	case ArenaConnPoints:
		return "connectivityPoints"
	case ArenaConnFacets:
		return "connectivityFacets"
	case ArenaConnCells:
		return "connectivityCells"
	case ArenaGeomPlanes:
		return "geometryPlanes"
	case ArenaGeomCells:
		return "geometryCells"
	case ArenaNodes:
		return "nodes"
	case ArenaNbrRanks:
		return "neighborRanks"
	case ArenaDomains:
		return "domainDescriptors"
	}
	return "unknown"
}

// Ref locates a span of elements inside one arena: the (address, length,
// owning-arena) triple of the mirror. A Count of zero marks a span with
// nothing to dereference; readers must check Count before resolving.
//
// Every device record type below is a flat struct of 8-byte fields, so a
// staged slice of records transfers to the device with a single copy and
// matches a C struct of int64/double laid out in declaration order.
type Ref struct {
	Arena  Arena
	Offset int64 // element offset within the arena
	Count  int64 // element count
}

// CellStateDevice is the device counterpart of mesh.CellState.
type CellStateDevice struct {
	Total Ref // float64 span in ArenaCrossSections, one entry per energy group
}

// CellConnectivityDevice is the device counterpart of mesh.CellConnectivity.
type CellConnectivityDevice struct {
	Point Ref // int64 span in ArenaConnPoints
	Facet Ref // mesh.FacetAdjacency span in ArenaConnFacets
}

// CellGeometryDevice is the device counterpart of mesh.CellGeometry.
type CellGeometryDevice struct {
	Facet Ref // mesh.GeneralPlane span in ArenaGeomPlanes
}

// MeshDomainDevice is the device counterpart of mesh.MeshDomain.
type MeshDomainDevice struct {
	DomainGid int64

	NbrRank          Ref // int64 span in ArenaNbrRanks
	Node             Ref // mesh.Vec3 span in ArenaNodes
	CellConnectivity Ref // CellConnectivityDevice span in ArenaConnCells
	CellGeometry     Ref // CellGeometryDevice span in ArenaGeomCells
}

// DomainDevice is the device-resident domain descriptor.
type DomainDevice struct {
	DomainIndex  int64
	GlobalDomain int64

	CellState Ref // CellStateDevice span in ArenaCellStates

	Mesh MeshDomainDevice
}
