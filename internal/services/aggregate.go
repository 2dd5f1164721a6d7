package services

import "math"

// Distribution holds sentiment counts and display percentages for one
// response set. Percentages are rounded to one decimal independently, so
// they sum to roughly (not exactly) 100 when Total > 0 and to exactly 0
// when Total == 0.
type Distribution struct {
	Positive    int     `json:"positive"`
	Negative    int     `json:"negative"`
	Neutral     int     `json:"neutral"`
	Total       int     `json:"total"`
	PositivePct float64 `json:"positive_pct"`
	NegativePct float64 `json:"negative_pct"`
	NeutralPct  float64 `json:"neutral_pct"`
}

// ComputeDistribution tallies sentiment over a response set. An empty set
// yields all-zero counts and percentages; there is no divide-by-zero case.
func ComputeDistribution(rs []*Response) Distribution {
	var d Distribution
	for _, r := range rs {
		switch r.Sentiment {
		case SentimentPositive:
			d.Positive++
		case SentimentNegative:
			d.Negative++
		case SentimentNeutral:
			d.Neutral++
		}
	}
	d.Total = len(rs)
	d.PositivePct = percent(d.Positive, d.Total)
	d.NegativePct = percent(d.Negative, d.Total)
	d.NeutralPct = percent(d.Neutral, d.Total)
	return d
}

// percent is round(count/total*100, 1). Total == 0 maps to 0 by rule.
func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

// CrossCell is one row of a cross-tabulation: sentiment counts for a single
// value of a demographic dimension.
type CrossCell[K comparable] struct {
	Key      K
	Positive int
	Negative int
	Neutral  int
	Total    int
}

// CrossTab tabulates sentiment per dimension value. The domain fixes both
// membership and order of the output, so chart axes stay stable and
// zero-response categories keep their slot. The extractor may reject a
// response (ok=false) to drop it from this tabulation only; such responses
// still count toward any overall totals computed elsewhere.
func CrossTab[K comparable](rs []*Response, extract func(*Response) (K, bool), domain []K) []CrossCell[K] {
	index := make(map[K]int, len(domain))
	cells := make([]CrossCell[K], len(domain))
	for i, k := range domain {
		cells[i] = CrossCell[K]{Key: k}
		index[k] = i
	}
	for _, r := range rs {
		k, ok := extract(r)
		if !ok {
			continue
		}
		i, ok := index[k]
		if !ok {
			continue
		}
		switch r.Sentiment {
		case SentimentPositive:
			cells[i].Positive++
		case SentimentNegative:
			cells[i].Negative++
		case SentimentNeutral:
			cells[i].Neutral++
		}
		cells[i].Total++
	}
	return cells
}
