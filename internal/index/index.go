// Package index holds the per-event face corpus. The index is append-only
// from the ingestion pipeline's perspective and read-only from the search
// path; a listing is a snapshot, so an insert racing a read may or may not be
// visible to that read but is visible to all subsequent reads.
package index

import (
	"sync"

	"github.com/kozaktomas/photo-finder/internal/facematch"
)

// Index is the in-memory store of Face records, grouped by event. Insertion
// order within an event is preserved - the searcher relies on it for
// deterministic tie-breaks.
type Index struct {
	mu     sync.RWMutex
	events map[string]*eventCorpus
}

type eventCorpus struct {
	faces []facematch.Face
	graph *nnGraph // nil until the corpus grows past the ANN cutoff
}

// New creates an empty index.
func New() *Index {
	return &Index{events: make(map[string]*eventCorpus)}
}

// Insert appends a face to its event's corpus. Safe under concurrent callers;
// multiple photos of the same event may be ingested in parallel.
func (idx *Index) Insert(face facematch.Face) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	corpus, ok := idx.events[face.EventID]
	if !ok {
		corpus = &eventCorpus{}
		idx.events[face.EventID] = corpus
	}
	corpus.faces = append(corpus.faces, face)

	if corpus.graph == nil && face.Mode == facematch.ModeCosine && len(corpus.faces) >= annCutoff {
		corpus.graph = buildGraph(corpus.faces)
	} else if corpus.graph != nil {
		corpus.graph.add(len(corpus.faces)-1, face.Embedding)
	}
}

// ListForEvent returns a snapshot of the event's corpus in insertion order.
// An empty event yields an empty slice, never an error.
func (idx *Index) ListForEvent(eventID string) []facematch.Face {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	corpus, ok := idx.events[eventID]
	if !ok {
		return nil
	}
	snapshot := make([]facematch.Face, len(corpus.faces))
	copy(snapshot, corpus.faces)
	return snapshot
}

// CountForEvent returns the number of faces indexed for an event.
func (idx *Index) CountForEvent(eventID string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	corpus, ok := idx.events[eventID]
	if !ok {
		return 0
	}
	return len(corpus.faces)
}

// DeleteForPhoto removes all faces belonging to a photo (cascading photo
// deletion). Returns the number of removed faces. The ANN graph is rebuilt
// because node positions shift with the corpus.
func (idx *Index) DeleteForPhoto(eventID, photoID string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	corpus, ok := idx.events[eventID]
	if !ok {
		return 0
	}

	kept := corpus.faces[:0]
	removed := 0
	for _, face := range corpus.faces {
		if face.PhotoID == photoID {
			removed++
			continue
		}
		kept = append(kept, face)
	}
	corpus.faces = kept

	if removed > 0 && corpus.graph != nil {
		if len(corpus.faces) >= annCutoff {
			corpus.graph = buildGraph(corpus.faces)
		} else {
			corpus.graph = nil
		}
	}
	return removed
}

// DeleteForEvent drops an event's entire corpus and returns the number of
// faces removed. Unknown events are a no-op.
func (idx *Index) DeleteForEvent(eventID string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	corpus, ok := idx.events[eventID]
	if !ok {
		return 0
	}
	removed := len(corpus.faces)
	delete(idx.events, eventID)
	return removed
}

// Candidates returns up to k faces nearest to the embedding, in insertion
// order positions. For corpora below the ANN cutoff (or non-cosine corpora)
// it falls back to the full snapshot - the exact scan is always the semantic
// reference; the graph only prefilters when a result cap makes that useful.
// On the graph path the subset is approximate and ordered nearest-first, so
// rankings computed from it may tie-break differently than an exact scan.
func (idx *Index) Candidates(eventID string, embedding []float32, k int) []facematch.Face {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	corpus, ok := idx.events[eventID]
	if !ok {
		return nil
	}
	if corpus.graph == nil || k <= 0 || k >= len(corpus.faces) {
		snapshot := make([]facematch.Face, len(corpus.faces))
		copy(snapshot, corpus.faces)
		return snapshot
	}

	positions := corpus.graph.search(embedding, k)
	candidates := make([]facematch.Face, 0, len(positions))
	for _, pos := range positions {
		if pos >= 0 && pos < len(corpus.faces) {
			candidates = append(candidates, corpus.faces[pos])
		}
	}
	return candidates
}

// Events returns the IDs of all events with at least one indexed face.
func (idx *Index) Events() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ids := make([]string, 0, len(idx.events))
	for id, corpus := range idx.events {
		if len(corpus.faces) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
