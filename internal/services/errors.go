package services

import "errors"

// Business rejections. These are expected outcomes: no lead row is written
// and no money moves when one of them is returned (except where the debit
// race note on ProcessLead says otherwise).
var (
	ErrConfigNotFound        = errors.New("import config not found")
	ErrInsufficientFunds     = errors.New("insufficient balance")
	ErrAutoRechargeFailed    = errors.New("insufficient balance and auto-recharge failed")
	ErrBelowQualityThreshold = errors.New("lead quality below configured minimum")
	ErrRegionNotAllowed      = errors.New("lead region not allowed")

	ErrInvalidAmount      = errors.New("invalid amount")
	ErrChargeNotCompleted = errors.New("charge was not completed")

	// ErrSettlementInconsistent marks the one state reconciliation tooling
	// has to look at: a persisted lead whose debit outcome could not be
	// recorded against it.
	ErrSettlementInconsistent = errors.New("settlement left lead and ledger out of step")
)
