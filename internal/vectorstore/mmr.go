package vectorstore

import "math"

// MMR greedily picks k candidates maximizing
//
//	lambda*relevance(c) - (1-lambda)*max(similarity(c, s) for s in selected)
//
// cands must be ordered by descending relevance. Ties keep the earlier
// candidate, so lambda=1 reproduces plain top-k.
func MMR(cands []Candidate, k int, lambda float32) []Candidate {
	if k <= 0 || len(cands) == 0 {
		return []Candidate{}
	}
	if k > len(cands) {
		k = len(cands)
	}

	selected := make([]Candidate, 0, k)
	// maxSim[i] tracks the highest similarity of cands[i] to anything selected.
	maxSim := make([]float32, len(cands))
	taken := make([]bool, len(cands))

	for len(selected) < k {
		best := -1
		bestScore := float32(math.Inf(-1))

		for i := range cands {
			if taken[i] {
				continue
			}
			redundancy := float32(0)
			if len(selected) > 0 {
				redundancy = maxSim[i]
			}
			score := lambda*cands[i].Score - (1-lambda)*redundancy
			if score > bestScore {
				best = i
				bestScore = score
			}
		}

		if best < 0 {
			// Every remaining score is NaN.
			break
		}
		taken[best] = true
		picked := cands[best]
		selected = append(selected, picked)

		for i := range cands {
			if taken[i] {
				continue
			}
			sim := CosineSimilarity(cands[i].Entry.Vector, picked.Entry.Vector)
			if len(selected) == 1 || sim > maxSim[i] {
				maxSim[i] = sim
			}
		}
	}

	return selected
}
