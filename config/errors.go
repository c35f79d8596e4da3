// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "errors"

// Sentinel errors returned by Parameters.Valid.
var (
	ErrKTooLow                     = errors.New("k must be >= 1")
	ErrAlphaPreferenceTooLow       = errors.New("alphaPreference must be > k/2")
	ErrAlphaPreferenceTooHigh      = errors.New("alphaPreference must be <= k")
	ErrAlphaConfidenceTooSmall     = errors.New("alphaConfidence must be >= alphaPreference")
	ErrBetaTooLow                  = errors.New("beta must be >= 1")
	ErrConcurrentPollsTooLow       = errors.New("concurrentPolls must be >= 1")
	ErrConcurrentPollsTooHigh      = errors.New("concurrentPolls must be <= beta")
	ErrOptimalProcessingTooLow     = errors.New("optimalProcessing must be >= 1")
	ErrMaxOutstandingItemsTooLow   = errors.New("maxOutstandingItems must be >= 1")
	ErrMaxItemProcessingTimeTooLow = errors.New("maxItemProcessingTime must be > 0")
)
