package items

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// Move is one planned rename.
type Move struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RankedName prefixes the base name of path with its 1-based rank,
// zero-padded to the width of total: rank 3 of 120 gives "003_name.png".
func RankedName(path string, rank, total int) string {
	width := len(strconv.Itoa(total))
	dir, base := filepath.Split(path)
	return filepath.Join(dir, fmt.Sprintf("%0*d_%s", width, rank, base))
}

// PlanRenames maps a final order to ranked names. Items are collected
// identifiers, so relative ones resolve against the working directory.
//
// Fails without touching anything if a source is missing, a target already
// exists, or two items would collide.
func (c *Collector) PlanRenames(order []string) ([]Move, error) {
	moves := make([]Move, 0, len(order))
	targets := make(map[string]string, len(order))
	for i, from := range order {
		to := RankedName(from, i+1, len(order))
		if prev, dup := targets[to]; dup {
			return nil, fmt.Errorf("rename: %s and %s both map to %s", prev, from, to)
		}
		targets[to] = from
		if _, err := c.fs.Stat(c.resolve(from)); err != nil {
			return nil, fmt.Errorf("rename %s: %w", from, err)
		}
		if _, err := c.fs.Stat(c.resolve(to)); err == nil {
			return nil, fmt.Errorf("rename %s: target %s already exists", from, to)
		}
		moves = append(moves, Move{From: from, To: to})
	}
	return moves, nil
}

// ApplyRenames performs moves in order and stops at the first failure,
// returning how many succeeded.
func (c *Collector) ApplyRenames(moves []Move) (int, error) {
	for i, m := range moves {
		if err := c.fs.Rename(c.resolve(m.From), c.resolve(m.To)); err != nil {
			return i, fmt.Errorf("rename %s: %w", m.From, err)
		}
	}
	return len(moves), nil
}
