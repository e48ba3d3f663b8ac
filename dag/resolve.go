package dag

import "github.com/kbukum/flowgen/graph"

// Resolution is the outcome of Resolve.
type Resolution struct {
	// Order lists each requested id once.
	Order []string `json:"order"`
	// Resolved is false when the dependency order could not be completed and
	// Order is the deduplicated request order instead.
	Resolved bool `json:"resolved"`
}

// Resolve orders ids so that for every edge s -> t with both ends in ids,
// s precedes t. Ties keep the order of ids. Duplicate ids collapse to their
// first occurrence.
func Resolve(ids []string, edges []graph.Edge) Resolution {
	requested := dedupe(ids)
	position := make(map[string]int, len(requested))
	for i, id := range requested {
		position[id] = i
	}

	inDegree := make([]int, len(requested))
	dependents := make([][]int, len(requested))
	for _, e := range edges {
		from, okFrom := position[e.Source]
		to, okTo := position[e.Target]
		if !okFrom || !okTo {
			continue
		}
		inDegree[to]++
		dependents[from] = append(dependents[from], to)
	}

	// ready is kept sorted by request position so ties are stable.
	ready := make([]int, 0, len(requested))
	for i, d := range inDegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, len(requested))
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		order = append(order, requested[cur])
		for _, dep := range dependents[cur] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = insertSorted(ready, dep)
			}
		}
	}

	if len(order) != len(requested) {
		return Resolution{Order: requested, Resolved: false}
	}
	return Resolution{Order: order, Resolved: true}
}

// Levels groups the requested ids by dependency depth. Nodes in one level
// do not depend on each other. It returns nil when ids contain a cycle.
func Levels(ids []string, edges []graph.Edge) [][]string {
	requested := dedupe(ids)
	in := make(map[string]bool, len(requested))
	for _, id := range requested {
		in[id] = true
	}

	depth := make(map[string]int, len(requested))
	res := Resolve(requested, edges)
	if !res.Resolved {
		return nil
	}
	var levels [][]string
	for _, id := range res.Order {
		d := 0
		for _, e := range edges {
			if e.Target == id && in[e.Source] && depth[e.Source]+1 > d {
				d = depth[e.Source] + 1
			}
		}
		depth[id] = d
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], id)
	}
	return levels
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func insertSorted(s []int, v int) []int {
	i := len(s)
	for i > 0 && s[i-1] > v {
		i--
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
