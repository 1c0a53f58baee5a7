package valuation

import "eps-report/internal/types"

// Classify buckets a close against its bands. yoy holds the two most recent
// monthly growth figures.
func Classify(latestClose, cheap, expensive float64, yoy [2]float64) types.Bucket {
	switch {
	case latestClose < cheap:
		if yoy[0] > MomentumThreshold && yoy[1] > MomentumThreshold {
			return types.BucketRed
		}
		return types.BucketOrange
	case latestClose > expensive:
		return types.BucketGreen
	default:
		return types.BucketNone
	}
}
