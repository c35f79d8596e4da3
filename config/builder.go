// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"time"
)

// NetworkType selects a preset Parameters value.
type NetworkType string

const (
	MainnetNetwork NetworkType = "mainnet"
	TestnetNetwork NetworkType = "testnet"
	LocalNetwork   NetworkType = "local"
)

// Builder provides a fluent interface for constructing Parameters. The
// sample-size, quorum, beta and pipelining setters validate their knob as
// it is set; the timing setters do not, and Build checks the whole value
// with Parameters.Valid.
type Builder struct {
	params Parameters
	err    error
}

// NewBuilder creates a new Builder seeded with DefaultParameters.
func NewBuilder() *Builder {
	return &Builder{params: DefaultParameters}
}

// FromPreset resets the builder to a named preset.
func (b *Builder) FromPreset(preset NetworkType) *Builder {
	if b.err != nil {
		return b
	}
	switch preset {
	case MainnetNetwork:
		b.params = Mainnet()
	case TestnetNetwork:
		b.params = Testnet()
	case LocalNetwork:
		b.params = Local()
	default:
		b.err = fmt.Errorf("config: unknown preset %q", preset)
	}
	return b
}

// WithSampleSize sets the sample size K, auto-adjusting the quorum
// thresholds down if they no longer fit below it.
func (b *Builder) WithSampleSize(k int) *Builder {
	if b.err != nil {
		return b
	}
	if k < 1 {
		b.err = fmt.Errorf("config: k must be at least 1, got %d", k)
		return b
	}
	b.params.K = k
	if b.params.AlphaPreference > k {
		b.params.AlphaPreference = (k * 2 / 3) + 1
	}
	if b.params.AlphaConfidence > k {
		b.params.AlphaConfidence = (k * 3 / 4) + 1
	}
	return b
}

// WithQuorums sets the preference and confidence quorums.
func (b *Builder) WithQuorums(alphaPref, alphaConf int) *Builder {
	if b.err != nil {
		return b
	}
	minAlpha := b.params.K/2 + 1
	switch {
	case alphaPref < minAlpha:
		b.err = fmt.Errorf("config: alphaPreference must be > k/2, got %d (min %d)", alphaPref, minAlpha)
	case alphaConf < alphaPref:
		b.err = fmt.Errorf("config: alphaConfidence must be >= alphaPreference, got %d < %d", alphaConf, alphaPref)
	case alphaConf > b.params.K:
		b.err = fmt.Errorf("config: alphaConfidence must be <= k, got %d > %d", alphaConf, b.params.K)
	default:
		b.params.AlphaPreference = alphaPref
		b.params.AlphaConfidence = alphaConf
	}
	return b
}

// WithBeta sets the consecutive-success threshold, capping
// ConcurrentPolls to it if necessary.
func (b *Builder) WithBeta(beta int) *Builder {
	if b.err != nil {
		return b
	}
	if beta < 1 {
		b.err = fmt.Errorf("config: beta must be at least 1, got %d", beta)
		return b
	}
	b.params.Beta = beta
	if b.params.ConcurrentPolls > beta {
		b.params.ConcurrentPolls = beta
	}
	return b
}

// WithConcurrentPolls sets the pipelining factor.
func (b *Builder) WithConcurrentPolls(concurrent int) *Builder {
	if b.err != nil {
		return b
	}
	switch {
	case concurrent < 1:
		b.err = fmt.Errorf("config: concurrentPolls must be at least 1, got %d", concurrent)
	case concurrent > b.params.Beta:
		b.err = fmt.Errorf("config: concurrentPolls cannot exceed beta, got %d > %d", concurrent, b.params.Beta)
	default:
		b.params.ConcurrentPolls = concurrent
	}
	return b
}

// WithMinRoundInterval sets the minimum interval between voting rounds.
func (b *Builder) WithMinRoundInterval(interval time.Duration) *Builder {
	if b.err != nil {
		return b
	}
	b.params.MinRoundInterval = interval
	return b
}

// WithMaxItemProcessingTime sets the per-item decision deadline.
func (b *Builder) WithMaxItemProcessingTime(max time.Duration) *Builder {
	if b.err != nil {
		return b
	}
	b.params.MaxItemProcessingTime = max
	return b
}

// Build validates the accumulated Parameters and returns them.
func (b *Builder) Build() (Parameters, error) {
	if b.err != nil {
		return Parameters{}, b.err
	}
	if err := b.params.Valid(); err != nil {
		return Parameters{}, err
	}
	return b.params, nil
}
