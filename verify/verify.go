// Package verify checks committed mappings without trusting the occupancy
// tables that produced them.
//
// # Checks
//
// RunLint recomputes the resource usage of a mapper.Result from its
// placements and routes and reports:
//
//   - STRUCT issues: two nodes sharing a tile slot, two values sharing a
//     link slot, memory operations on tiles without the capability, control
//     memory overflow, hops over links that do not exist, dependences without
//     a route, routes that do not start at the producer.
//   - TIMING issues: route cycles that do not increase by at least one per
//     hop, backedges whose latency reaches the II, and an II below
//     max(ResMII, RecMII).
//
// A slot of a modulo-scheduled mapping is a (resource, cycle mod II) pair. An
// elastic mapping keeps every resource from its first use to the end of the
// execution, so two different values on the same resource always collide.
//
// # Usage Example
//
//	issues := verify.RunLint(result, verify.DefaultOptions())
//	for _, issue := range issues {
//	    log.Printf("[%s] Tile(%d, %d) t=%d: %s",
//	        issue.Type, issue.TileX, issue.TileY, issue.Cycle, issue.Message)
//	}
//
//	report := verify.GenerateReport(result, verify.DefaultOptions())
//	report.WriteReport(os.Stdout)
package verify

import (
	"github.com/sarchlab/cgramap/cgra"
)

// IssueType categorizes lint issues
type IssueType string

const (
	IssueStruct IssueType = "STRUCT" // Resource error (slot conflict, capability, budget)
	IssueTiming IssueType = "TIMING" // Dependency/timing error (latency, II bound)
)

// Issue represents a single lint issue
type Issue struct {
	Type    IssueType              // STRUCT or TIMING
	TileX   int                    // Tile X coordinate (-1 if not applicable)
	TileY   int                    // Tile Y coordinate (-1 if not applicable)
	Cycle   int                    // Cycle (-1 if not applicable)
	NodeID  int                    // DFG node or -1
	Message string                 // Human-readable description
	Details map[string]interface{} // Additional structured data
}

// Options tune the lower bound that the II is checked against.
type Options struct {
	// RecMIIDelay is the delay of a dependence when computing RecMII. It
	// must match the delay the mapper was configured with.
	RecMIIDelay float64
}

// DefaultOptions returns the options matching a default mapper.
func DefaultOptions() Options {
	return Options{RecMIIDelay: 1}
}

// ArchInfo describes CGRA topology and constraints
type ArchInfo struct {
	Rows          int // Number of rows in CGRA grid
	Columns       int // Number of columns in CGRA grid
	Links         int // Number of directed links
	LoadTiles     int // Tiles that can issue loads
	StoreTiles    int // Tiles that can issue stores
	CtrlMemItems  int // Largest control memory of a tile
	RegisterCount int // Largest register file of a tile
}

// ArchInfoOf summarizes a grid.
func ArchInfoOf(g *cgra.Grid) ArchInfo {
	arch := ArchInfo{
		Rows:    g.Rows,
		Columns: g.Columns,
		Links:   len(g.Links),
	}

	for _, t := range g.Tiles {
		if t.CanLoad {
			arch.LoadTiles++
		}
		if t.CanStore {
			arch.StoreTiles++
		}

		arch.CtrlMemItems = max(arch.CtrlMemItems, t.CtrlMemSize)
		arch.RegisterCount = max(arch.RegisterCount, t.RegisterCount)
	}

	return arch
}
