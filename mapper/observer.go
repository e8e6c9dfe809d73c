package mapper

import (
	"github.com/sarchlab/cgramap/cost"
	"github.com/sarchlab/cgramap/dfg"
)

// Strategy names a mapping strategy.
type Strategy string

// The strategies that a Mapper implements.
const (
	StrategyHeuristic  Strategy = "heuristic"
	StrategyExhaustive Strategy = "exhaustive"
)

// An Observer is notified of the progress of a mapping run.
type Observer interface {
	AttemptStarted(s Strategy, ii int)
	NodePlaced(n *dfg.Node, c cost.Candidate)
	Backtracked(n *dfg.Node)
	AttemptFinished(s Strategy, ii int, ok bool)
}

type nopObserver struct{}

func (nopObserver) AttemptStarted(Strategy, int)         {}
func (nopObserver) NodePlaced(*dfg.Node, cost.Candidate) {}
func (nopObserver) Backtracked(*dfg.Node)                {}
func (nopObserver) AttemptFinished(Strategy, int, bool)  {}
