package index

import (
	"github.com/coder/hnsw"

	"github.com/kozaktomas/photo-finder/internal/facematch"
)

// annCutoff is the corpus size above which an HNSW graph is maintained for
// cosine-mode events. Below it a linear scan is cheaper than graph upkeep.
const annCutoff = 2048

// annMaxNeighbors is the M parameter of the HNSW graph.
const annMaxNeighbors = 16

// nnGraph wraps an HNSW graph keyed by corpus position. It is only ever
// touched under the owning Index's lock.
type nnGraph struct {
	graph *hnsw.Graph[int]
}

func newGraph() *nnGraph {
	g := hnsw.NewGraph[int]()
	g.M = annMaxNeighbors
	g.Ml = 1.0 / float64(annMaxNeighbors) // standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return &nnGraph{graph: g}
}

// buildGraph indexes every face embedding by its corpus position.
func buildGraph(faces []facematch.Face) *nnGraph {
	g := newGraph()
	for i := range faces {
		if len(faces[i].Embedding) == 0 {
			continue
		}
		g.graph.Add(hnsw.MakeNode(i, faces[i].Embedding))
	}
	return g
}

// add inserts a single embedding at the given corpus position.
func (g *nnGraph) add(position int, embedding []float32) {
	if len(embedding) == 0 {
		return
	}
	g.graph.Add(hnsw.MakeNode(position, embedding))
}

// search returns the corpus positions of the k nearest embeddings.
func (g *nnGraph) search(query []float32, k int) []int {
	neighbors := g.graph.Search(query, k)
	positions := make([]int, len(neighbors))
	for i, n := range neighbors {
		positions[i] = n.Key
	}
	return positions
}
