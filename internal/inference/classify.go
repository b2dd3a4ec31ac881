package inference

import "github.com/urbanmetrics/lisa-cli/internal/model"

// classify assigns a cluster label from the sign of a unit's deviation
// and the sign of its spatial lag of deviations, gated on the adjusted
// threshold. An exact-zero deviation counts as the Low side.
func classify(z, lagZ, pval, threshold float64) model.ClusterLabel {
	if pval > threshold {
		return model.Insignificant
	}
	high := z > 0
	lagHigh := lagZ > 0
	switch {
	case high && lagHigh:
		return model.HighHigh
	case !high && !lagHigh:
		return model.LowLow
	case !high && lagHigh:
		return model.LowHigh
	default:
		return model.HighLow
	}
}
