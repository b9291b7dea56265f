// Package payments wraps the external card processor. The pipeline only
// cares whether a charge completed immediately; everything else is failure.
package payments

import (
	"context"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

type ChargeStatus string

const (
	ChargeSucceeded      ChargeStatus = "succeeded"
	ChargeRequiresAction ChargeStatus = "requires_action"
	ChargeFailed         ChargeStatus = "failed"
)

type ChargeResult struct {
	Status   ChargeStatus
	ChargeID string
}

type StripeClient struct {
	api *client.API
}

func NewStripeClient(apiKey string) *StripeClient {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeClient{api: api}
}

// CreateAndConfirmCharge creates an off-session PaymentIntent against a
// saved payment method and confirms it in one call.
func (c *StripeClient) CreateAndConfirmCharge(ctx context.Context, amountCents int64, currency, customerRef, methodRef string) (ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Params:        stripe.Params{Context: ctx},
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(currency),
		Customer:      stripe.String(customerRef),
		PaymentMethod: stripe.String(methodRef),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
	}
	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return ChargeResult{Status: ChargeFailed}, err
	}
	result := ChargeResult{ChargeID: intent.ID}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		result.Status = ChargeSucceeded
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation:
		result.Status = ChargeRequiresAction
	default:
		result.Status = ChargeFailed
	}
	return result, nil
}
