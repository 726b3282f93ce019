package department

import "sort"

type Node struct {
	Department *Department
	Children   []*Node
}

// BuildTree links departments into a forest. Departments whose parent is not
// in the input become roots. Siblings are ordered by display order, then id.
func BuildTree(departments []*Department) []*Node {
	nodes := make(map[int64]*Node, len(departments))
	for _, d := range departments {
		nodes[d.ID] = &Node{Department: d}
	}

	var roots []*Node
	for _, d := range departments {
		node := nodes[d.ID]
		if parent, ok := nodes[d.PID]; ok && d.PID != RootPID && parent != node {
			parent.Children = append(parent.Children, node)
			continue
		}
		roots = append(roots, node)
	}

	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i].Department, nodes[j].Department
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.ID < b.ID
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

// PreOrder flattens the forest depth-first, parents before children.
func PreOrder(departments []*Department) []*Department {
	out := make([]*Department, 0, len(departments))
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, n.Department)
			walk(n.Children)
		}
	}
	walk(BuildTree(departments))
	return out
}
