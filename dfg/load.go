package dfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type nodeYAML struct {
	ID      int    `yaml:"id"`
	Opcode  string `yaml:"opcode"`
	Load    bool   `yaml:"load"`
	Store   bool   `yaml:"store"`
	Branch  bool   `yaml:"branch"`
	Compare bool   `yaml:"compare"`
}

type graphYAML struct {
	Nodes []nodeYAML `yaml:"nodes"`
	Edges [][2]int   `yaml:"edges"`
}

// Load reads a dataflow graph from a YAML file.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dfg file: %w", err)
	}

	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return g, nil
}

// Parse builds a dataflow graph from its YAML description.
func Parse(data []byte) (*Graph, error) {
	var doc graphYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse dfg: %w", err)
	}

	g := NewGraph()
	for _, ny := range doc.Nodes {
		if _, dup := g.Node(ny.ID); dup {
			return nil, fmt.Errorf("duplicate node id %d", ny.ID)
		}

		opcode := ny.Opcode
		if opcode == "" {
			opcode = "nop"
		}

		n := g.AddNode(ny.ID, opcode)
		n.IsLoad = ny.Load
		n.IsStore = ny.Store
		n.IsBranch = ny.Branch
		n.IsCompare = ny.Compare
	}

	for _, e := range doc.Edges {
		if _, ok := g.Node(e[0]); !ok {
			return nil, fmt.Errorf("edge %d->%d: unknown producer", e[0], e[1])
		}
		if _, ok := g.Node(e[1]); !ok {
			return nil, fmt.Errorf("edge %d->%d: unknown consumer", e[0], e[1])
		}

		g.Connect(e[0], e[1])
	}

	return g, nil
}
