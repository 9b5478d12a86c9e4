package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Node paths address one scenario in a decision tree as a dash-delimited
// sequence of indices from the root, e.g. "2-0" is the first child of
// the third root scenario.

// ParsePath parses a dash-delimited node path into index form.
func ParsePath(nodeID string) ([]int, error) {
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return nil, fmt.Errorf("node path must not be empty")
	}
	parts := strings.Split(nodeID, "-")
	path := make([]int, 0, len(parts))
	for _, part := range parts {
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid node path %q", nodeID)
		}
		path = append(path, idx)
	}
	return path, nil
}

// ScenarioAt returns the scenario at the given index path.
func ScenarioAt(scenarios []Scenario, path []int) (Scenario, error) {
	if len(path) == 0 {
		return Scenario{}, fmt.Errorf("node path must not be empty")
	}
	idx := path[0]
	if idx >= len(scenarios) {
		return Scenario{}, fmt.Errorf("node index %d out of range (%d scenarios)", idx, len(scenarios))
	}
	if len(path) == 1 {
		return scenarios[idx], nil
	}
	return ScenarioAt(scenarios[idx].ExpandedScenarios, path[1:])
}

// WithExpansion returns a new scenario tree where the node at the given
// path carries the supplied children as its expansion. The rebuild is
// pure: siblings and unrelated subtrees are shared, the spine along the
// path is copied, and the input tree is never mutated. This keeps a
// whole-document write anchored to exactly one node.
func WithExpansion(scenarios []Scenario, path []int, children []Scenario) ([]Scenario, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("node path must not be empty")
	}
	idx := path[0]
	if idx >= len(scenarios) {
		return nil, fmt.Errorf("node index %d out of range (%d scenarios)", idx, len(scenarios))
	}
	out := make([]Scenario, len(scenarios))
	copy(out, scenarios)
	if len(path) == 1 {
		out[idx].ExpandedScenarios = children
		return out, nil
	}
	sub, err := WithExpansion(out[idx].ExpandedScenarios, path[1:], children)
	if err != nil {
		return nil, err
	}
	out[idx].ExpandedScenarios = sub
	return out, nil
}
