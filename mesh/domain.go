// Package mesh holds the host-resident domain model for a Monte Carlo
// particle transport solver: an ordered set of spatial domains, each owning
// a mesh (nodes, per-cell connectivity, per-cell facet geometry) and one
// physical-state record per cell. The model is produced by the domain
// decomposition subsystem and consumed read-only by the device mirror
// builder in package mirror.
package mesh

import "fmt"

// SubfacetEvent classifies what happens to a particle crossing a subfacet.
type SubfacetEvent int64

const (
	AdjacencyUndefined SubfacetEvent = iota
	BoundaryEscape
	BoundaryReflection
	TransitOnProcessor
	TransitOffProcessor
)

// Vec3 is a node position.
type Vec3 struct {
	X, Y, Z float64
}

// Location addresses one facet of one cell of one domain.
type Location struct {
	Domain int64
	Cell   int64
	Facet  int64
}

// FacetAdjacency records which cell/facet lies on the other side of a
// subfacet, and on which rank it lives.
type FacetAdjacency struct {
	Event                SubfacetEvent
	Current              Location
	Adjacent             Location
	NeighborIndex        int64
	NeighborGlobalDomain int64
	NeighborForeman      int64
}

// CellConnectivity is the topology of a single cell. Point and facet counts
// vary per cell.
type CellConnectivity struct {
	Points []int64 // indices into the owning mesh's Node array
	Facets []FacetAdjacency
}

// GeneralPlane holds the coefficients of a facet plane Ax + By + Cz + D = 0.
type GeneralPlane struct {
	A, B, C, D float64
}

// CellGeometry is the facet-plane set of a single cell.
type CellGeometry struct {
	Facets []GeneralPlane
}

// CellState is the physical state of one cell: cached cross-section totals,
// one entry per energy group. The group count is simulation-wide and is not
// stored here; it is supplied at mirror-build time.
type CellState struct {
	Total []float64
}

// MeshDomain is the geometric and topological description of one domain.
// The cell index space is shared by CellConnectivity and CellGeometry.
type MeshDomain struct {
	DomainGid int64

	NbrDomainGid []int64
	NbrRank      []int64

	Node             []Vec3
	CellConnectivity []CellConnectivity
	CellGeometry     []CellGeometry
}

// Domain is one spatial partition of the simulated mesh. CellState is
// indexed by the same cell index space as the mesh's per-cell arrays.
type Domain struct {
	DomainIndex  int64
	GlobalDomain int64

	CellState []CellState

	Mesh MeshDomain
}

// NumCells returns the cell count of the domain.
func (d *Domain) NumCells() int {
	return len(d.CellState)
}

// ClearCrossSectionCache zeroes the cached cross-section totals of every
// cell so they are recomputed on next use.
func (d *Domain) ClearCrossSectionCache(numEnergyGroups int) {
	for i := range d.CellState {
		total := d.CellState[i].Total
		for g := 0; g < numEnergyGroups && g < len(total); g++ {
			total[g] = 0
		}
	}
}

// Validate checks the structural invariants the mirror builder relies on:
// a positive energy-group count matching every cell's cross-section array,
// cell-count parity between state, connectivity and geometry, and parallel
// neighbor arrays.
func (d *Domain) Validate(numEnergyGroups int) error {
	if numEnergyGroups <= 0 {
		return fmt.Errorf("energy group count must be positive, got %d", numEnergyGroups)
	}

	numCells := len(d.CellState)
	if len(d.Mesh.CellConnectivity) != numCells {
		return fmt.Errorf("cell connectivity count %d != cell state count %d",
			len(d.Mesh.CellConnectivity), numCells)
	}
	if len(d.Mesh.CellGeometry) != numCells {
		return fmt.Errorf("cell geometry count %d != cell state count %d",
			len(d.Mesh.CellGeometry), numCells)
	}
	if len(d.Mesh.NbrDomainGid) != len(d.Mesh.NbrRank) {
		return fmt.Errorf("neighbor domain count %d != neighbor rank count %d",
			len(d.Mesh.NbrDomainGid), len(d.Mesh.NbrRank))
	}

	for c := range d.CellState {
		if len(d.CellState[c].Total) != numEnergyGroups {
			return fmt.Errorf("cell %d: cross-section array length %d != energy group count %d",
				c, len(d.CellState[c].Total), numEnergyGroups)
		}
	}

	return nil
}
