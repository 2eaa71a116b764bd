package artifact

import (
	"fmt"
	"math"
)

// GBDT is a binary gradient-boosted tree ensemble in the layout produced by
// LightGBM's dump_model: raw scores are summed and squashed with a sigmoid.
type GBDT struct {
	InitScore float64 `json:"init_score"`
	Trees     []*Node `json:"trees"`
}

// Node is a split when both children are set, otherwise a leaf.
type Node struct {
	SplitFeature int     `json:"split_feature"`
	Threshold    float64 `json:"threshold"`
	DefaultLeft  bool    `json:"default_left"`
	Left         *Node   `json:"left_child,omitempty"`
	Right        *Node   `json:"right_child,omitempty"`
	LeafValue    float64 `json:"leaf_value"`
}

func (n *Node) leaf() bool { return n.Left == nil && n.Right == nil }

func (m *GBDT) Kind() string { return "gbdt" }

func (m *GBDT) PredictProba(row []float64) (float64, error) {
	raw := m.InitScore
	for i, t := range m.Trees {
		v, err := t.eval(row)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		raw += v
	}
	return sigmoid(raw), nil
}

func (n *Node) eval(row []float64) (float64, error) {
	for !n.leaf() {
		if n.SplitFeature < 0 || n.SplitFeature >= len(row) {
			return 0, fmt.Errorf("split feature %d out of range", n.SplitFeature)
		}
		x := row[n.SplitFeature]
		goLeft := x <= n.Threshold
		if math.IsNaN(x) {
			goLeft = n.DefaultLeft
		}
		if goLeft {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.LeafValue, nil
}

func (m *GBDT) maxFeature() int {
	deepest := -1
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil || n.leaf() {
			return
		}
		if n.SplitFeature > deepest {
			deepest = n.SplitFeature
		}
		walk(n.Left)
		walk(n.Right)
	}
	for _, t := range m.Trees {
		walk(t)
	}
	return deepest
}

func (m *GBDT) check() error {
	if len(m.Trees) == 0 {
		return fmt.Errorf("%w: gbdt model has no trees", ErrInvalidArtifact)
	}
	var walk func(n *Node) error
	walk = func(n *Node) error {
		if n == nil {
			return fmt.Errorf("%w: nil tree node", ErrInvalidArtifact)
		}
		if n.leaf() {
			return nil
		}
		if n.Left == nil || n.Right == nil {
			return fmt.Errorf("%w: split node with a single child", ErrInvalidArtifact)
		}
		if n.SplitFeature < 0 {
			return fmt.Errorf("%w: negative split feature", ErrInvalidArtifact)
		}
		if err := walk(n.Left); err != nil {
			return err
		}
		return walk(n.Right)
	}
	for _, t := range m.Trees {
		if err := walk(t); err != nil {
			return err
		}
	}
	return nil
}
