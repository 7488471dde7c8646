package batch

import "sort"

// AUROC computes the area under the ROC curve by the rank-sum identity:
// the probability a random positive outscores a random negative, with
// half-credit for ties. Returns 0 when either class is absent.
func AUROC(outcomes []int, probabilities []float64) float64 {
	positives, negatives := 0, 0
	for _, o := range outcomes {
		if o == 1 {
			positives++
		} else {
			negatives++
		}
	}
	if positives == 0 || negatives == 0 {
		return 0
	}

	type scored struct {
		prob    float64
		outcome int
	}
	pairs := make([]scored, len(outcomes))
	for i := range outcomes {
		pairs[i] = scored{prob: probabilities[i], outcome: outcomes[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].prob < pairs[j].prob })

	// Average ranks across tied probability runs.
	ranks := make([]float64, len(pairs))
	for i := 0; i < len(pairs); {
		j := i
		for j < len(pairs) && pairs[j].prob == pairs[i].prob {
			j++
		}
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[k] = avgRank
		}
		i = j
	}

	rankSum := 0.0
	for i, p := range pairs {
		if p.outcome == 1 {
			rankSum += ranks[i]
		}
	}
	np, nn := float64(positives), float64(negatives)
	return (rankSum - np*(np+1)/2) / (np * nn)
}

// AUPRC computes the area under the precision-recall curve by summing
// precision at each recall step, descending through the score-ranked
// records. Returns 0 when no positives exist.
func AUPRC(outcomes []int, probabilities []float64) float64 {
	positives := 0
	for _, o := range outcomes {
		if o == 1 {
			positives++
		}
	}
	if positives == 0 {
		return 0
	}

	order := make([]int, len(outcomes))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return probabilities[order[a]] > probabilities[order[b]]
	})

	area := 0.0
	truePositives := 0
	for seen, idx := range order {
		if outcomes[idx] == 1 {
			truePositives++
			precision := float64(truePositives) / float64(seen+1)
			area += precision / float64(positives)
		}
	}
	return area
}
