package formulagraph

import "slices"

// adjacencyIndexThreshold is the degree above which an adjacency list keeps
// a set for O(1) membership checks.
const adjacencyIndexThreshold = 16

// adjacency is an insertion ordered set of vertex ids.
type adjacency struct {
	ids []VertexID
	set map[VertexID]struct{}
}

func (a *adjacency) has(id VertexID) bool {
	if a.set != nil {
		_, ok := a.set[id]
		return ok
	}
	return slices.Contains(a.ids, id)
}

func (a *adjacency) add(id VertexID) bool {
	if a.has(id) {
		return false
	}
	a.ids = append(a.ids, id)
	if a.set != nil {
		a.set[id] = struct{}{}
	} else if len(a.ids) > adjacencyIndexThreshold {
		a.set = make(map[VertexID]struct{}, len(a.ids))
		for _, x := range a.ids {
			a.set[x] = struct{}{}
		}
	}
	return true
}

func (a *adjacency) remove(id VertexID) bool {
	if !a.has(id) {
		return false
	}
	if i := slices.Index(a.ids, id); i >= 0 {
		a.ids = slices.Delete(a.ids, i, i+1)
	}
	if a.set != nil {
		delete(a.set, id)
	}
	return true
}

func (a *adjacency) len() int { return len(a.ids) }

// graph is the vertex arena with forward and reverse edges. An edge u->v
// means v reads u.
type graph struct {
	vertices []*vertex
	out      []adjacency
	in       []adjacency
	free     []VertexID
	seq      uint64
	count    int

	volatile   map[VertexID]struct{}
	structural map[VertexID]struct{}
	infinite   map[VertexID]struct{}
}

func newGraph() *graph {
	return &graph{
		// slot 0 is noVertex
		vertices:   make([]*vertex, 1),
		out:        make([]adjacency, 1),
		in:         make([]adjacency, 1),
		volatile:   make(map[VertexID]struct{}),
		structural: make(map[VertexID]struct{}),
		infinite:   make(map[VertexID]struct{}),
	}
}

// add allocates an id for v.
func (g *graph) add(v *vertex) VertexID {
	g.seq++
	v.seq = g.seq
	g.count++
	if n := len(g.free); n > 0 {
		id := g.free[n-1]
		g.free = g.free[:n-1]
		g.vertices[id] = v
		return id
	}
	g.vertices = append(g.vertices, v)
	g.out = append(g.out, adjacency{})
	g.in = append(g.in, adjacency{})
	return VertexID(len(g.vertices) - 1)
}

func (g *graph) exists(id VertexID) bool {
	return id > noVertex && int(id) < len(g.vertices) && g.vertices[id] != nil
}

// get returns the vertex of id, or nil.
func (g *graph) get(id VertexID) *vertex {
	if !g.exists(id) {
		return nil
	}
	return g.vertices[id]
}

// addEdge adds from->to and reports whether it is new.
func (g *graph) addEdge(from, to VertexID) bool {
	if !g.out[from].add(to) {
		return false
	}
	g.in[to].add(from)
	return true
}

func (g *graph) removeEdge(from, to VertexID) bool {
	if !g.out[from].remove(to) {
		return false
	}
	g.in[to].remove(from)
	return true
}

func (g *graph) hasEdge(from, to VertexID) bool {
	return g.exists(from) && g.out[from].has(to)
}

// dependents returns the vertices reading id, in edge insertion order.
func (g *graph) dependents(id VertexID) []VertexID { return g.out[id].ids }

// dependencies returns the vertices id reads.
func (g *graph) dependencies(id VertexID) []VertexID { return g.in[id].ids }

// remove deletes a vertex with all its edges and returns the vertices it
// used to read, which may have become orphans.
func (g *graph) remove(id VertexID) []VertexID {
	if !g.exists(id) {
		return nil
	}
	deps := slices.Clone(g.in[id].ids)
	for _, d := range deps {
		g.out[d].remove(id)
	}
	for _, d := range g.out[id].ids {
		g.in[d].remove(id)
	}
	g.out[id], g.in[id] = adjacency{}, adjacency{}
	g.vertices[id] = nil
	delete(g.volatile, id)
	delete(g.structural, id)
	delete(g.infinite, id)
	g.free = append(g.free, id)
	g.count--
	return deps
}

// size returns the number of live vertices.
func (g *graph) size() int { return g.count }

// forEach visits live vertices in id order.
func (g *graph) forEach(fn func(VertexID, *vertex)) {
	for i, v := range g.vertices {
		if v != nil {
			fn(VertexID(i), v)
		}
	}
}
