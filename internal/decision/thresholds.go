package decision

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidThresholds is returned for threshold sets violating
// 0 <= info < review < block <= 1.
var ErrInvalidThresholds = errors.New("invalid decision thresholds")

// Thresholds are the calibrated score boundaries, fixed at startup.
type Thresholds struct {
	Info   float64 `koanf:"info" json:"info"`
	Review float64 `koanf:"review" json:"review"`
	Block  float64 `koanf:"block" json:"block"`
}

// DefaultThresholds balance false positives against regulatory exposure.
func DefaultThresholds() Thresholds {
	return Thresholds{Info: 0.50, Review: 0.70, Block: 0.85}
}

// Validate enforces the ordering every band table depends on.
func (t Thresholds) Validate() error {
	named := []struct {
		name  string
		value float64
	}{{"info", t.Info}, {"review", t.Review}, {"block", t.Block}}
	for _, n := range named {
		if math.IsNaN(n.value) || n.value < 0 || n.value > 1 {
			return fmt.Errorf("%w: %s threshold %v must be within [0,1]", ErrInvalidThresholds, n.name, n.value)
		}
	}
	if !(t.Info < t.Review && t.Review < t.Block) {
		return fmt.Errorf("%w: require info < review < block, got %.2f / %.2f / %.2f",
			ErrInvalidThresholds, t.Info, t.Review, t.Block)
	}
	return nil
}

// High is the lower bound of the high risk band, halfway between review and block.
func (t Thresholds) High() float64 {
	return (t.Review + t.Block) / 2
}
