package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/cgramap/cgra"
)

// ArchSpec is the YAML description of a CGRA.
type ArchSpec struct {
	Rows         int      `yaml:"rows"`
	Columns      int      `yaml:"columns"`
	CtrlMemItems int      `yaml:"ctrl_mem_items"`
	Registers    int      `yaml:"registers"`
	Topology     string   `yaml:"topology"`
	LoadTiles    []Coord  `yaml:"load_tiles"`
	StoreTiles   []Coord  `yaml:"store_tiles"`
	LoadStoreAll bool     `yaml:"load_store_everywhere"`
	Links        [][4]int `yaml:"links"`
}

// LoadArch reads an architecture description from a YAML file.
func LoadArch(path string) (*ArchSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read arch file: %w", err)
	}

	spec, err := ParseArch(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return spec, nil
}

// ParseArch decodes and validates an architecture description. Fields left
// out take the GridBuilder defaults.
func ParseArch(data []byte) (*ArchSpec, error) {
	def := MakeGridBuilder()
	spec := &ArchSpec{
		Rows:         def.height,
		Columns:      def.width,
		CtrlMemItems: def.ctrlMemSize,
		Registers:    def.registerCount,
		Topology:     "mesh",
	}

	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("parse arch: %w", err)
	}

	if err := spec.validate(); err != nil {
		return nil, err
	}

	return spec, nil
}

func (s *ArchSpec) validate() error {
	if s.Rows <= 0 || s.Columns <= 0 {
		return fmt.Errorf("invalid grid size %dx%d", s.Columns, s.Rows)
	}

	if s.CtrlMemItems <= 0 {
		return fmt.Errorf("ctrl_mem_items must be positive, got %d",
			s.CtrlMemItems)
	}

	if s.Registers < 0 {
		return fmt.Errorf("registers must not be negative, got %d", s.Registers)
	}

	switch s.Topology {
	case "mesh", "none":
	default:
		return fmt.Errorf("unknown topology %q", s.Topology)
	}

	inside := func(c Coord) bool {
		return c[0] >= 0 && c[0] < s.Columns && c[1] >= 0 && c[1] < s.Rows
	}

	for _, c := range append(append([]Coord(nil), s.LoadTiles...),
		s.StoreTiles...) {
		if !inside(c) {
			return fmt.Errorf("memory tile (%d, %d) is outside of the grid",
				c[0], c[1])
		}
	}

	for _, l := range s.Links {
		from, to := Coord{l[0], l[1]}, Coord{l[2], l[3]}
		if !inside(from) || !inside(to) {
			return fmt.Errorf("link %v is outside of the grid", l)
		}
		if from == to {
			return fmt.Errorf("link %v loops on a tile", l)
		}
	}

	return nil
}

// Builder turns the description into a GridBuilder.
func (s *ArchSpec) Builder() GridBuilder {
	b := MakeGridBuilder().
		WithWidth(s.Columns).
		WithHeight(s.Rows).
		WithCtrlMemSize(s.CtrlMemItems).
		WithRegisterCount(s.Registers)

	switch {
	case s.LoadStoreAll:
		b = b.WithLoadStoreOnAllTiles()
	case len(s.LoadTiles) > 0 || len(s.StoreTiles) > 0:
		b = b.WithLoadTiles(s.LoadTiles...).WithStoreTiles(s.StoreTiles...)
	}

	if s.Topology == "none" {
		b = b.WithoutMesh()
	}

	for _, l := range s.Links {
		b = b.WithLink(Coord{l[0], l[1]}, Coord{l[2], l[3]})
	}

	return b
}

// Build creates the grid described by the spec.
func (s *ArchSpec) Build() *cgra.Grid {
	return s.Builder().Build()
}
