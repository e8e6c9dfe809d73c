package verify

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/cgramap/mapper"
)

// VerificationReport represents a complete verification report
type VerificationReport struct {
	Arch     ArchInfo
	II       int
	Elastic  bool
	Strategy mapper.Strategy
	Nodes    int
	Routes   int

	Issues       []Issue
	StructIssues []Issue
	TimingIssues []Issue
}

// GenerateReport runs the lint checks and returns a report
func GenerateReport(r *mapper.Result, opts Options) *VerificationReport {
	report := &VerificationReport{
		Arch:     ArchInfoOf(r.Grid),
		II:       r.II,
		Elastic:  r.Elastic,
		Strategy: r.Strategy,
		Nodes:    len(r.Placements),
		Routes:   len(r.Routes),
		Issues:   RunLint(r, opts),
	}

	for _, issue := range report.Issues {
		if issue.Type == IssueStruct {
			report.StructIssues = append(report.StructIssues, issue)
		} else {
			report.TimingIssues = append(report.TimingIssues, issue)
		}
	}

	return report
}

// Passed tells if no issue was found.
func (r *VerificationReport) Passed() bool {
	return len(r.Issues) == 0
}

// WriteReport writes a formatted report to a writer
func (r *VerificationReport) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "MAPPING VERIFICATION REPORT")
	fmt.Fprintln(w, separator)

	kind := "modulo-scheduled"
	if r.Elastic {
		kind = "elastic"
	}

	fmt.Fprintf(w, "\nCGRA: %dx%d, %d links, %d load tiles, %d store tiles\n",
		r.Arch.Columns, r.Arch.Rows, r.Arch.Links,
		r.Arch.LoadTiles, r.Arch.StoreTiles)
	fmt.Fprintf(w, "Mapping: %s, %s, II %d, %d nodes, %d routes\n",
		r.Strategy, kind, r.II, r.Nodes, r.Routes)

	if r.Passed() {
		fmt.Fprintln(w, "\n✓ No issues found!")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "\n⚠ Found %d issues (%d STRUCT, %d TIMING):\n\n",
		len(r.Issues), len(r.StructIssues), len(r.TimingIssues))

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Type", "Tile", "Cycle", "Node", "Message"})

	for _, issue := range r.Issues {
		t.AppendRow(table.Row{
			issue.Type,
			coordinate(issue.TileX, issue.TileY),
			optional(issue.Cycle),
			optional(issue.NodeID),
			issue.Message,
		})
	}

	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w)
}

func coordinate(x, y int) string {
	if x < 0 || y < 0 {
		return "-"
	}

	return fmt.Sprintf("(%d, %d)", x, y)
}

func optional(v int) string {
	if v < 0 {
		return "-"
	}

	return fmt.Sprint(v)
}

// SaveReportToFile saves the report to a file
func (r *VerificationReport) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	r.WriteReport(file)
	return nil
}
