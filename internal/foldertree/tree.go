// Package foldertree turns the flat set of indexed folder paths into a
// navigable forest. The deep ancestor shared by every root is elided so the
// tree stays shallow; intermediate folders that were never indexed appear as
// virtual nodes.
//
// The forest is a pure function of its input and is rebuilt whenever the set
// of indexed roots changes.
package foldertree

import (
	"slices"
	"strings"

	"local-gallery/internal/logging"
	"local-gallery/internal/pathset"
)

// Node is one folder in the tree.
type Node struct {
	// Path is the full display path. It names an indexed folder only when
	// IsVirtual is false.
	Path        string  `json:"path"`
	DisplayName string  `json:"displayName"`
	Children    []*Node `json:"children"`
	IsVirtual   bool    `json:"isVirtual"`
}

type entry struct {
	key     string // normalized
	display string // cleaned, original case
}

// Build returns the forest for the given indexed folder paths. Duplicates
// (after normalization) are ignored and malformed paths are skipped.
func Build(paths []string) []*Node {
	entries := dedupe(paths)
	if len(entries) == 0 {
		return []*Node{}
	}

	base := ""
	if len(entries) > 1 {
		base = commonBase(entries)
	}

	var roots []*Node
	nodes := make(map[string]*Node, len(entries)*2)

	for _, e := range entries {
		var parent *Node
		pos := len(base)
		for pos < len(e.key) {
			for pos < len(e.key) && e.key[pos] == '/' {
				pos++
			}
			start := pos
			for pos < len(e.key) && e.key[pos] != '/' {
				pos++
			}
			if start == pos {
				break
			}
			keyPath := e.key[:pos]
			isLeaf := pos == len(e.key)

			node, ok := nodes[keyPath]
			if !ok {
				node = &Node{
					Path:        e.display[:pos],
					DisplayName: e.display[start:pos],
					Children:    []*Node{},
					IsVirtual:   !isLeaf,
				}
				nodes[keyPath] = node
				if parent == nil {
					roots = append(roots, node)
				} else {
					parent.Children = append(parent.Children, node)
				}
			} else if isLeaf && node.IsVirtual {
				node.IsVirtual = false
				node.Path = e.display
			}
			parent = node
		}
	}

	sortForest(roots)
	return roots
}

// dedupe cleans and normalizes the input, keeping the first spelling of
// every distinct folder.
func dedupe(paths []string) []entry {
	seen := make(map[string]bool, len(paths))
	entries := make([]entry, 0, len(paths))
	for _, p := range paths {
		display, err := pathset.Clean(p)
		if err != nil {
			logging.Warn("foldertree: skipping folder: %v", err)
			continue
		}
		key := strings.ToLower(display)
		if len(key) != len(display) {
			// Case folding changed the byte length; fall back to the folded
			// spelling so segment offsets stay aligned.
			display = key
		}
		if seen[key] || len(pathset.Segments(key)) == 0 {
			continue
		}
		seen[key] = true
		entries = append(entries, entry{key: key, display: display})
	}
	return entries
}

// commonBase returns the deepest directory shared by every entry, without a
// trailing separator. Only the lexicographically smallest and largest keys
// need comparing.
func commonBase(entries []entry) string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	slices.Sort(keys)
	first, last := keys[0], keys[len(keys)-1]

	n := 0
	for n < len(first) && n < len(last) && first[n] == last[n] {
		n++
	}
	prefix := first[:n]
	cut := strings.LastIndex(prefix, pathset.Separator)
	if cut <= 0 {
		return ""
	}
	return prefix[:cut]
}

func sortForest(nodes []*Node) {
	slices.SortFunc(nodes, func(a, b *Node) int {
		return pathset.NaturalCompare(a.DisplayName, b.DisplayName)
	})
	for _, n := range nodes {
		sortForest(n.Children)
	}
}

// Find returns the node whose path equals path, or nil.
func Find(forest []*Node, path string) *Node {
	var found *Node
	Walk(forest, func(n *Node, _ int) bool {
		if pathset.Equal(n.Path, path) {
			found = n
			return false
		}
		return true
	})
	return found
}

// Walk visits every node depth-first in display order. Returning false from
// fn stops the walk.
func Walk(forest []*Node, fn func(n *Node, depth int) bool) {
	walk(forest, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(*Node, int) bool) bool {
	for _, n := range nodes {
		if !fn(n, depth) {
			return false
		}
		if !walk(n.Children, depth+1, fn) {
			return false
		}
	}
	return true
}

// RealPaths lists the paths of all non-virtual nodes in display order.
func RealPaths(forest []*Node) []string {
	var paths []string
	Walk(forest, func(n *Node, _ int) bool {
		if !n.IsVirtual {
			paths = append(paths, n.Path)
		}
		return true
	})
	return paths
}
