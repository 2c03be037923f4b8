package mesh

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// SyntheticConfig sizes a synthetic decomposition. It stands in for the real
// domain decomposition subsystem in tests, benchmarks and the demo command.
type SyntheticConfig struct {
	NumDomains      int
	CellsPerDomain  int
	NumEnergyGroups int
	Seed            int64
}

// SyntheticDomains builds a deterministic set of domains with heterogeneous
// per-cell point, facet and plane counts. The same config always produces
// the same domains.
func SyntheticDomains(cfg SyntheticConfig) []Domain {
	rng := rand.New(rand.NewSource(cfg.Seed))

	domains := make([]Domain, cfg.NumDomains)
	for i := range domains {
		domains[i] = syntheticDomain(cfg, i, rng)
	}
	return domains
}

func syntheticDomain(cfg SyntheticConfig, index int, rng *rand.Rand) Domain {
	d := Domain{
		DomainIndex:  int64(index),
		GlobalDomain: int64(index),
	}
	d.Mesh.DomainGid = int64(index)

	// Ring topology for neighbor exchange.
	if cfg.NumDomains > 1 {
		left := int64((index + cfg.NumDomains - 1) % cfg.NumDomains)
		right := int64((index + 1) % cfg.NumDomains)
		d.Mesh.NbrDomainGid = []int64{left, right}
		d.Mesh.NbrRank = []int64{left, right}
	}

	numCells := cfg.CellsPerDomain
	d.CellState = make([]CellState, numCells)
	d.Mesh.CellConnectivity = make([]CellConnectivity, numCells)
	d.Mesh.CellGeometry = make([]CellGeometry, numCells)

	numNodes := 8 + 4*numCells
	d.Mesh.Node = make([]Vec3, numNodes)
	for n := range d.Mesh.Node {
		d.Mesh.Node[n] = Vec3{
			X: rng.Float64(),
			Y: rng.Float64(),
			Z: rng.Float64(),
		}
	}

	for c := 0; c < numCells; c++ {
		total := make([]float64, cfg.NumEnergyGroups)
		// Distinct values per cell and group so round-trip mismatches are
		// attributable to a specific entry.
		for g := range total {
			total[g] = float64(index*1000+c) + float64(g)/float64(len(total))
		}
		d.CellState[c] = CellState{Total: total}

		// Heterogeneous counts: cells cycle through a few element shapes.
		numPoints := 4 + c%5
		numFacets := 6 + 2*(c%4)

		conn := CellConnectivity{
			Points: make([]int64, numPoints),
			Facets: make([]FacetAdjacency, numFacets),
		}
		for p := range conn.Points {
			conn.Points[p] = int64(rng.Intn(numNodes))
		}
		for f := range conn.Facets {
			conn.Facets[f] = FacetAdjacency{
				Event: TransitOnProcessor,
				Current: Location{
					Domain: int64(index),
					Cell:   int64(c),
					Facet:  int64(f),
				},
				Adjacent: Location{
					Domain: int64(index),
					Cell:   int64((c + 1) % numCells),
					Facet:  int64(f),
				},
				NeighborIndex:        int64(f),
				NeighborGlobalDomain: int64(index),
				NeighborForeman:      0,
			}
		}
		d.Mesh.CellConnectivity[c] = conn

		geom := CellGeometry{Facets: make([]GeneralPlane, numFacets)}
		for f := range geom.Facets {
			normal := []float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
			scale := floats.Norm(normal, 2)
			if scale == 0 {
				scale = 1
			}
			geom.Facets[f] = GeneralPlane{
				A: normal[0] / scale,
				B: normal[1] / scale,
				C: normal[2] / scale,
				D: rng.Float64(),
			}
		}
		d.Mesh.CellGeometry[c] = geom
	}

	return d
}
