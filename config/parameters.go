// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "time"

// Parameters carries the quorum and timing knobs of an Election. The
// Election reads only AlphaConfidence, to decide when to finalize on
// votes; the deadline for forcing a decision is Network.MaxElectionsTime,
// not a field of this struct. The remaining knobs are checked by Valid
// but not read by Election.
type Parameters struct {
	K               int // sample size
	AlphaPreference int // α_p preference threshold
	AlphaConfidence int // α_c confidence threshold
	Beta            int // β, consecutive-success threshold

	MinRoundInterval      time.Duration
	MaxItemProcessingTime time.Duration

	ConcurrentPolls     int
	OptimalProcessing   int
	MaxOutstandingItems int
}

// DefaultParameters is a reasonable starting point for a single test node.
var DefaultParameters = Parameters{
	K:                     20,
	AlphaPreference:       15,
	AlphaConfidence:       15,
	Beta:                  8,
	MinRoundInterval:      50 * time.Millisecond,
	MaxItemProcessingTime: 10 * time.Second,
	ConcurrentPolls:       4,
	OptimalProcessing:     10,
	MaxOutstandingItems:   1024,
}

// Mainnet returns production-scale parameters.
func Mainnet() Parameters {
	return Parameters{
		K:                     21,
		AlphaPreference:       15,
		AlphaConfidence:       18,
		Beta:                  8,
		MinRoundInterval:      50 * time.Millisecond,
		MaxItemProcessingTime: 10 * time.Second,
		ConcurrentPolls:       4,
		OptimalProcessing:     10,
		MaxOutstandingItems:   1024,
	}
}

// Testnet returns relaxed parameters suitable for a small validator set.
func Testnet() Parameters {
	return Parameters{
		K:                     11,
		AlphaPreference:       7,
		AlphaConfidence:       9,
		Beta:                  6,
		MinRoundInterval:      50 * time.Millisecond,
		MaxItemProcessingTime: 10 * time.Second,
		ConcurrentPolls:       4,
		OptimalProcessing:     10,
		MaxOutstandingItems:   1024,
	}
}

// Local returns parameters for a single-node or in-process test network.
func Local() Parameters {
	return Parameters{
		K:                     5,
		AlphaPreference:       3,
		AlphaConfidence:       4,
		Beta:                  3,
		MinRoundInterval:      10 * time.Millisecond,
		MaxItemProcessingTime: 5 * time.Second,
		ConcurrentPolls:       2,
		OptimalProcessing:     5,
		MaxOutstandingItems:   256,
	}
}

// GetK returns the sample size.
func (p Parameters) GetK() int { return p.K }

// GetAlphaPreference returns the preference threshold.
func (p Parameters) GetAlphaPreference() int { return p.AlphaPreference }

// GetAlphaConfidence returns the confidence threshold used to finalize
// an Election's vote tally.
func (p Parameters) GetAlphaConfidence() int { return p.AlphaConfidence }

// GetBeta returns the finalization threshold.
func (p Parameters) GetBeta() int { return p.Beta }

// MinPercentConnectedHealthy returns the minimum fraction of peers that
// must be reachable for the network to be considered healthy, scaled
// off the ratio of AlphaConfidence to K.
func (p Parameters) MinPercentConnectedHealthy() float64 {
	const scaleFactor = 0.8
	const minBase = 0.2
	baseRatio := float64(p.AlphaConfidence) / float64(p.K)
	return baseRatio*scaleFactor + minBase
}

// Valid reports whether p satisfies the constraints the election
// algorithm (treated as a black box by this package) relies on.
func (p Parameters) Valid() error {
	switch {
	case p.K <= 0:
		return ErrKTooLow
	case p.AlphaPreference <= p.K/2:
		return ErrAlphaPreferenceTooLow
	case p.AlphaPreference > p.K:
		return ErrAlphaPreferenceTooHigh
	case p.AlphaConfidence < p.AlphaPreference:
		return ErrAlphaConfidenceTooSmall
	case p.Beta <= 0:
		return ErrBetaTooLow
	case p.ConcurrentPolls <= 0:
		return ErrConcurrentPollsTooLow
	case p.ConcurrentPolls > p.Beta:
		return ErrConcurrentPollsTooHigh
	case p.OptimalProcessing <= 0:
		return ErrOptimalProcessingTooLow
	case p.MaxOutstandingItems <= 0:
		return ErrMaxOutstandingItemsTooLow
	case p.MaxItemProcessingTime <= 0:
		return ErrMaxItemProcessingTimeTooLow
	}
	return nil
}
