package model

import "errors"

var (
	// ErrInsufficientData means fewer candles than an indicator lookback
	// requires, or a missing current price. Fatal to the generation call.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNotEnoughTimeframes means confluence cannot be computed from
	// fewer than two timeframes. Fatal to the generation call.
	ErrNotEnoughTimeframes = errors.New("not enough timeframes")
)
