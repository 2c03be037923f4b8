package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	base := func() Domain {
		d := SyntheticDomains(SyntheticConfig{
			NumDomains:      1,
			CellsPerDomain:  3,
			NumEnergyGroups: 4,
			Seed:            7,
		})[0]
		return d
	}

	t.Run("valid", func(t *testing.T) {
		d := base()
		require.NoError(t, d.Validate(4))
	})

	t.Run("non-positive groups", func(t *testing.T) {
		d := base()
		require.Error(t, d.Validate(0))
		require.Error(t, d.Validate(-1))
	})

	t.Run("group count mismatch", func(t *testing.T) {
		d := base()
		d.CellState[2].Total = append(d.CellState[2].Total, 0)
		err := d.Validate(4)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cell 2")
	})

	t.Run("connectivity parity", func(t *testing.T) {
		d := base()
		d.Mesh.CellConnectivity = d.Mesh.CellConnectivity[:2]
		require.Error(t, d.Validate(4))
	})

	t.Run("geometry parity", func(t *testing.T) {
		d := base()
		d.Mesh.CellGeometry = d.Mesh.CellGeometry[:2]
		require.Error(t, d.Validate(4))
	})

	t.Run("neighbor arrays parallel", func(t *testing.T) {
		d := base()
		d.Mesh.NbrRank = d.Mesh.NbrRank[:1]
		require.Error(t, d.Validate(4))
	})

	t.Run("empty domain", func(t *testing.T) {
		d := Domain{}
		require.NoError(t, d.Validate(4))
	})
}

func TestClearCrossSectionCache(t *testing.T) {
	d := SyntheticDomains(SyntheticConfig{
		NumDomains:      1,
		CellsPerDomain:  2,
		NumEnergyGroups: 3,
		Seed:            1,
	})[0]

	d.ClearCrossSectionCache(3)

	for c := range d.CellState {
		for g, v := range d.CellState[c].Total {
			assert.Zero(t, v, "cell %d group %d", c, g)
		}
	}
}

func TestSyntheticDeterministic(t *testing.T) {
	cfg := SyntheticConfig{
		NumDomains:      2,
		CellsPerDomain:  5,
		NumEnergyGroups: 4,
		Seed:            99,
	}

	a := SyntheticDomains(cfg)
	b := SyntheticDomains(cfg)
	assert.Equal(t, a, b)
}

func TestSyntheticShape(t *testing.T) {
	domains := SyntheticDomains(SyntheticConfig{
		NumDomains:      3,
		CellsPerDomain:  8,
		NumEnergyGroups: 4,
		Seed:            5,
	})
	require.Len(t, domains, 3)

	for i := range domains {
		d := &domains[i]
		require.NoError(t, d.Validate(4))
		assert.Equal(t, int64(i), d.DomainIndex)
		assert.Len(t, d.Mesh.NbrRank, 2, "ring topology")
	}

	// Per-cell counts must vary so the flattening paths see variable
	// lengths.
	conn := domains[0].Mesh.CellConnectivity
	assert.NotEqual(t, len(conn[0].Points), len(conn[1].Points))
	assert.NotEqual(t, len(conn[0].Facets), len(conn[1].Facets))
}
