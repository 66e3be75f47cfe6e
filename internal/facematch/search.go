package facematch

import "sort"

// Search scans an event corpus for faces similar to the probe. Every face is
// scored with the probe's backend mode, faces below the probe threshold are
// dropped, surviving matches are deduplicated per photo (only the best face
// per photo is surfaced - a person may appear twice or detection may produce
// overlapping boxes) and the result is sorted by similarity descending.
//
// Ties break by insertion order for determinism: the first-inserted face wins.
// Search applies no top-K cutoff - truncation is the caller's policy. An empty
// corpus yields an empty result, not an error.
func Search(probe *Probe, faces []Face) ([]MatchResult, error) {
	if probe.Mode == ModeEnsemble && probe.Threshold <= 0 {
		return nil, ErrThresholdRequired
	}

	type candidate struct {
		result MatchResult
		order  int // index into the insertion-ordered corpus
	}

	best := make(map[string]candidate)
	for i := range faces {
		face := &faces[i]
		score, err := Score(probe, face)
		if err != nil {
			return nil, err
		}
		if score < probe.Threshold {
			continue
		}

		prev, seen := best[face.PhotoID]
		if seen && score <= prev.result.Similarity {
			continue
		}
		best[face.PhotoID] = candidate{
			result: MatchResult{
				PhotoID:    face.PhotoID,
				FaceIndex:  face.FaceIndex,
				Similarity: score,
				BBox:       face.BBox,
			},
			order: i,
		}
	}

	ranked := make([]candidate, 0, len(best))
	for _, c := range best {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].result.Similarity != ranked[j].result.Similarity {
			return ranked[i].result.Similarity > ranked[j].result.Similarity
		}
		return ranked[i].order < ranked[j].order
	})

	matches := make([]MatchResult, len(ranked))
	for i, c := range ranked {
		matches[i] = c.result
	}
	return matches, nil
}
