package formulagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addVertices(g *graph, n int) []VertexID {
	ids := make([]VertexID, n)
	for i := range ids {
		ids[i] = g.add(&vertex{kind: kindValue, value: &valueCell{}})
	}
	return ids
}

func TestGraphEdges(t *testing.T) {
	g := newGraph()
	ids := addVertices(g, 3)
	a, b, c := ids[0], ids[1], ids[2]
	assert.NotEqual(t, noVertex, a)

	assert.True(t, g.addEdge(a, b))
	assert.False(t, g.addEdge(a, b))
	assert.True(t, g.addEdge(b, c))
	assert.True(t, g.hasEdge(a, b))
	assert.False(t, g.hasEdge(b, a))
	assert.Equal(t, []VertexID{b}, g.dependents(a))
	assert.Equal(t, []VertexID{a}, g.dependencies(b))

	assert.Equal(t, []VertexID{a}, g.remove(b))
	assert.Nil(t, g.get(b))
	assert.Empty(t, g.dependents(a))
	assert.Empty(t, g.dependencies(c))
	assert.Equal(t, 2, g.size())

	// the freed id is reused with a newer sequence number
	d := g.add(&vertex{kind: kindEmpty})
	assert.Equal(t, b, d)
	assert.Greater(t, g.get(d).seq, g.get(c).seq)
	assert.False(t, g.hasEdge(a, d))
}

func flatten(comps []component) []VertexID {
	var out []VertexID
	for _, c := range comps {
		out = append(out, c.ids...)
	}
	return out
}

func TestTopoSortOrdersEdgesForward(t *testing.T) {
	g := newGraph()
	ids := addVertices(g, 6)
	edges := [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}, {3, 4}, {5, 1}}
	for _, e := range edges {
		g.addEdge(ids[e[0]], ids[e[1]])
	}
	comps := topoSort(g, ids)
	order := flatten(comps)
	require.Len(t, order, len(ids))
	assert.ElementsMatch(t, ids, order)
	pos := make(map[VertexID]int)
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range edges {
		assert.Less(t, pos[ids[e[0]]], pos[ids[e[1]]], "%v", e)
	}
	for _, c := range comps {
		assert.False(t, c.cyclic)
	}
	// ties go to the oldest vertex
	assert.Equal(t, []VertexID{ids[0], ids[2], ids[5], ids[1], ids[3], ids[4]}, order)
}

func TestTopoSortSubset(t *testing.T) {
	g := newGraph()
	ids := addVertices(g, 3)
	g.addEdge(ids[0], ids[1])
	g.addEdge(ids[1], ids[2])
	order := flatten(topoSort(g, []VertexID{ids[2], ids[1]}))
	assert.Equal(t, []VertexID{ids[1], ids[2]}, order)
}

func TestTopoSortGroupsCycles(t *testing.T) {
	g := newGraph()
	ids := addVertices(g, 5)
	w, x, y, z, self := ids[0], ids[1], ids[2], ids[3], ids[4]
	g.addEdge(w, x)
	g.addEdge(x, y)
	g.addEdge(y, x)
	g.addEdge(y, z)
	g.addEdge(self, self)

	comps := topoSort(g, ids)
	require.Len(t, comps, 4)
	assert.Equal(t, component{ids: []VertexID{w}}, comps[0])

	var cyclic [][]VertexID
	pos := make(map[VertexID]int)
	for i, c := range comps {
		for _, id := range c.ids {
			pos[id] = i
		}
		if c.cyclic {
			cyclic = append(cyclic, c.ids)
		}
	}
	assert.ElementsMatch(t, [][]VertexID{{x, y}, {self}}, cyclic)
	assert.Less(t, pos[x], pos[z])
	assert.Equal(t, pos[x], pos[y])
}
