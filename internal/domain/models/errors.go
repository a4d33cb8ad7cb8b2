package models

import "errors"

var (
	// ErrInsufficientData signals fewer clean laps than the estimator needs
	// to produce a trustworthy prediction. Callers treat this as "no
	// recommendation yet", not a failure.
	ErrInsufficientData = errors.New("degradation: insufficient clean laps")

	// ErrStaleModel signals access to a model whose stint has been sealed.
	// This is a programmer error in the registry's caller.
	ErrStaleModel = errors.New("degradation: model accessed after stint sealed")

	// ErrUnknownCompetitor signals a lookup for a competitor the registry
	// has never seen a lap for.
	ErrUnknownCompetitor = errors.New("registry: unknown competitor")
)
