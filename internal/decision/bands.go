package decision

// band maps an inclusive lower score bound to a label.
type band[L any] struct {
	floor float64
	label L
}

// bandTable is ordered from the highest floor down; the first band whose floor
// the score reaches wins.
type bandTable[L any] struct {
	bands    []band[L]
	fallback L
}

func (t bandTable[L]) classify(score float64) L {
	for _, b := range t.bands {
		if score >= b.floor {
			return b.label
		}
	}
	return t.fallback
}

func riskTable(t Thresholds) bandTable[RiskLevel] {
	return bandTable[RiskLevel]{
		bands: []band[RiskLevel]{
			{floor: t.Block, label: RiskCritical},
			{floor: t.High(), label: RiskHigh},
			{floor: t.Review, label: RiskMedium},
			{floor: t.Info, label: RiskLow},
		},
		fallback: RiskNone,
	}
}

func decisionTable(t Thresholds) bandTable[Decision] {
	return bandTable[Decision]{
		bands: []band[Decision]{
			{floor: t.Block, label: DecisionBlock},
			{floor: t.Review, label: DecisionReview},
		},
		fallback: DecisionClear,
	}
}
