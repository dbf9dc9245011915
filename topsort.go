package formulagraph

import (
	"container/heap"
	"slices"
)

// component is a unit of evaluation: one vertex, or the members of a
// strongly connected component when cyclic is set.
type component struct {
	ids    []VertexID
	cyclic bool
}

// seqHeap is a ready queue popping the oldest vertex first.
type seqHeap struct {
	ids []VertexID
	g   *graph
}

func (h *seqHeap) Len() int { return len(h.ids) }

func (h *seqHeap) Less(i, j int) bool {
	return h.g.vertices[h.ids[i]].seq < h.g.vertices[h.ids[j]].seq
}

func (h *seqHeap) Swap(i, j int) {
	h.ids[i], h.ids[j] = h.ids[j], h.ids[i]
}

func (h *seqHeap) Push(x any) {
	h.ids = append(h.ids, x.(VertexID))
}

func (h *seqHeap) Pop() any {
	n := len(h.ids)
	id := h.ids[n-1]
	h.ids = h.ids[:n-1]
	return id
}

// topoSort orders nodes so that every edge between two of them points
// forward. Vertices are released by dependency count, oldest first. Those
// never released sit on or behind a cycle; they are grouped into strongly
// connected components with Tarjan's algorithm and appended in topological
// order of the components.
func topoSort(g *graph, nodes []VertexID) []component {
	const outside = -1
	pending := make([]int32, len(g.vertices))
	for i := range pending {
		pending[i] = outside
	}
	for _, id := range nodes {
		pending[id] = 0
	}
	for _, id := range nodes {
		for _, dd := range g.dependents(id) {
			if pending[dd] != outside {
				pending[dd]++
			}
		}
	}
	ready := &seqHeap{g: g}
	for _, id := range nodes {
		if pending[id] == 0 {
			ready.ids = append(ready.ids, id)
		}
	}
	heap.Init(ready)
	out := make([]component, 0, len(nodes))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(VertexID)
		pending[id] = outside
		out = append(out, component{ids: []VertexID{id}})
		for _, dd := range g.dependents(id) {
			if pending[dd] > 0 {
				pending[dd]--
				if pending[dd] == 0 {
					heap.Push(ready, dd)
				}
			}
		}
	}
	if len(out) == len(nodes) {
		return out
	}
	var rest []VertexID
	for _, id := range nodes {
		if pending[id] != outside {
			rest = append(rest, id)
		}
	}
	return append(out, stronglyConnected(g, rest)...)
}

// stronglyConnected runs an iterative Tarjan search over the subgraph
// induced by nodes and returns its components in topological order.
func stronglyConnected(g *graph, nodes []VertexID) []component {
	type frame struct {
		v    VertexID
		next int
	}
	inSet := make(map[VertexID]struct{}, len(nodes))
	for _, id := range nodes {
		inSet[id] = struct{}{}
	}
	index := make(map[VertexID]int, len(nodes))
	low := make(map[VertexID]int, len(nodes))
	onStack := make(map[VertexID]bool, len(nodes))
	var stack []VertexID
	var calls []frame
	var comps []component
	counter := 0
	visit := func(v VertexID) {
		index[v], low[v] = counter, counter
		counter++
		stack = append(stack, v)
		onStack[v] = true
		calls = append(calls, frame{v: v})
	}
	for _, root := range nodes {
		if _, seen := index[root]; seen {
			continue
		}
		visit(root)
		for len(calls) > 0 {
			top := len(calls) - 1
			v := calls[top].v
			succ := g.dependents(v)
			if calls[top].next < len(succ) {
				w := succ[calls[top].next]
				calls[top].next++
				if _, ok := inSet[w]; !ok {
					continue
				}
				if _, seen := index[w]; !seen {
					visit(w)
				} else if onStack[w] {
					low[v] = min(low[v], index[w])
				}
				continue
			}
			calls = calls[:top]
			if top > 0 {
				p := calls[top-1].v
				low[p] = min(low[p], low[v])
			}
			if low[v] != index[v] {
				continue
			}
			var members []VertexID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				members = append(members, w)
				if w == v {
					break
				}
			}
			slices.SortFunc(members, func(a, b VertexID) int {
				sa, sb := g.vertices[a].seq, g.vertices[b].seq
				if sa < sb {
					return -1
				}
				if sa > sb {
					return 1
				}
				return 0
			})
			comps = append(comps, component{ids: members, cyclic: len(members) > 1 || g.hasEdge(v, v)})
		}
	}
	slices.Reverse(comps)
	return comps
}
