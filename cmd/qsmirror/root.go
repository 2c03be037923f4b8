package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/qsproxy/qsmirror/device"
	"github.com/qsproxy/qsmirror/mesh"
	"github.com/qsproxy/qsmirror/mirror"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "qsmirror",
		Short:         "Stage Monte Carlo transport domains into accelerator memory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(stageCmd())
	return root
}

func stageCmd() *cobra.Command {
	var configPath string
	var deviceMode string

	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Build a device mirror of a synthetic decomposition and spot-check it",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()

			cfg := defaultStageConfig()
			if configPath != "" {
				var err error
				if cfg, err = loadStageConfig(configPath); err != nil {
					log.Error().Err(err).Str("path", configPath).Msg("config")
					return err
				}
			}
			if deviceMode != "" {
				cfg.DeviceMode = deviceMode
			}

			dev, err := openDevice(cfg.DeviceMode)
			if err != nil {
				log.Error().Err(err).Str("requested", cfg.DeviceMode).Msg("device")
				return err
			}
			defer dev.Free()
			log.Info().Str("mode", dev.Mode()).Msg("device ready")

			domains := mesh.SyntheticDomains(mesh.SyntheticConfig{
				NumDomains:      cfg.NumDomains,
				CellsPerDomain:  cfg.CellsPerDomain,
				NumEnergyGroups: cfg.NumEnergyGroups,
				Seed:            cfg.Seed,
			})

			start := time.Now()
			m, err := mirror.NewBuilder(dev).Build(domains, cfg.NumEnergyGroups)
			if err != nil {
				log.Error().Err(err).Msg("mirror build failed")
				return err
			}
			defer m.Free()

			log.Info().
				Int("domains", m.NumDomains()).
				Int("cells_per_domain", cfg.CellsPerDomain).
				Int("energy_groups", cfg.NumEnergyGroups).
				Dur("elapsed", time.Since(start)).
				Msg("mirror built")

			sizes := m.ArenaBytes()
			names := make([]string, 0, len(sizes))
			for name := range sizes {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				log.Info().Str("arena", name).Int64("bytes", sizes[name]).Msg("arena")
			}

			if err := spotCheck(m, domains); err != nil {
				log.Error().Err(err).Msg("spot check failed")
				return err
			}
			log.Info().Msg("spot check passed")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config path")
	cmd.Flags().StringVar(&deviceMode, "device", "", "device mode override (auto, serial, occa-serial, openmp, cuda)")
	return cmd
}

// spotCheck reads domain 0 cell 0 back from the device and compares it to
// the host source.
func spotCheck(m *mirror.Mirror, domains []mesh.Domain) error {
	if m.NumDomains() == 0 || len(domains[0].CellState) == 0 {
		return nil
	}

	desc, err := m.Descriptor(0)
	if err != nil {
		return err
	}
	states, err := m.CellStates(desc.CellState)
	if err != nil {
		return err
	}
	total, err := m.CrossSections(states[0].Total)
	if err != nil {
		return err
	}
	if !floats.Equal(total, domains[0].CellState[0].Total) {
		return fmt.Errorf("domain 0 cell 0 cross sections differ from host source")
	}
	return nil
}

func openDevice(mode string) (device.Device, error) {
	switch strings.ToLower(mode) {
	case "", "auto":
		return device.NewBestDevice(), nil
	case "serial":
		return device.NewSerialDevice(), nil
	case "occa-serial":
		return device.NewOCCADevice(`{"mode": "Serial"}`)
	case "openmp":
		return device.NewOCCADevice(`{"mode": "OpenMP"}`)
	case "cuda":
		return device.NewOCCADevice(`{"mode": "CUDA", "device_id": 0}`)
	}
	return nil, fmt.Errorf("unknown device mode %q", mode)
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}
