// Package stripegw wraps the Stripe SDK behind a narrow gateway interface.
//
// Two credential scopes flow through it: each participant's read-only
// restricted key (subscription listing) and the platform's own secret key
// (admission charges and onboarding customer setup).
package stripegw

import (
	"context"

	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	"github.com/gomesmer/mesmer/internal/pkg/mrr"
)

const listPageSize = 100

// ChargeInput describes one off-session admission charge.
type ChargeInput struct {
	CustomerID      string
	PaymentMethodID string
	AmountCents     int64
	Currency        string
	Description     string
	// IdempotencyKey makes duplicate invocations within one billing period
	// collapse into a single charge on Stripe's side.
	IdempotencyKey string
}

// Gateway is the billing-provider capability consumed by the batch jobs and
// the onboarding flow.
type Gateway interface {
	// ListActiveSubscriptions fetches every active subscription visible to
	// the given restricted key, across all pages.
	ListActiveSubscriptions(ctx context.Context, apiKey string) ([]mrr.Subscription, error)

	// ChargeOffSession creates and confirms a merchant-initiated
	// PaymentIntent against a saved payment method.
	ChargeOffSession(ctx context.Context, in ChargeInput) error

	// Onboarding-time operations.
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	CreateSetupIntent(ctx context.Context) (string, error)
}

// StripeGateway implements Gateway against the live Stripe API.
type StripeGateway struct {
	platform *client.API
}

// New creates a gateway using the platform secret key for charge and
// customer operations. Subscription listing always uses the per-participant
// key passed at call time.
func New(secretKey string) *StripeGateway {
	return &StripeGateway{platform: client.New(secretKey, nil)}
}

func (g *StripeGateway) ListActiveSubscriptions(ctx context.Context, apiKey string) ([]mrr.Subscription, error) {
	api := client.New(apiKey, nil)

	params := &stripe.SubscriptionListParams{
		Status: string(stripe.SubscriptionStatusActive),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(listPageSize)
	params.AddExpand("data.items.data.price")

	var subs []mrr.Subscription
	iter := api.Subscriptions.List(params)
	for iter.Next() {
		subs = append(subs, toSubscription(iter.Subscription()))
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("list subscriptions", err)
	}
	return subs, nil
}

func (g *StripeGateway) ChargeOffSession(ctx context.Context, in ChargeInput) error {
	currency := in.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(in.AmountCents),
		Currency:      stripe.String(currency),
		Customer:      stripe.String(in.CustomerID),
		PaymentMethod: stripe.String(in.PaymentMethodID),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(in.Description),
	}
	params.Context = ctx
	if in.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(in.IdempotencyKey)
	}

	if _, err := g.platform.PaymentIntents.New(params); err != nil {
		return wrapErr("create payment intent", err)
	}
	return nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx

	customer, err := g.platform.Customers.New(params)
	if err != nil {
		return "", wrapErr("create customer", err)
	}
	return customer.ID, nil
}

func (g *StripeGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	if _, err := g.platform.PaymentMethods.Attach(paymentMethodID, params); err != nil {
		return wrapErr("attach payment method", err)
	}
	return nil
}

func (g *StripeGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx

	if _, err := g.platform.Customers.Update(customerID, params); err != nil {
		return wrapErr("set default payment method", err)
	}
	return nil
}

func (g *StripeGateway) CreateSetupIntent(ctx context.Context) (string, error) {
	params := &stripe.SetupIntentParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	intent, err := g.platform.SetupIntents.New(params)
	if err != nil {
		return "", wrapErr("create setup intent", err)
	}
	return intent.ClientSecret, nil
}

// toSubscription maps a Stripe subscription onto the normalizer's input
// shape. Non-recurring items keep a nil Recurring so the engine drops them.
func toSubscription(sub *stripe.Subscription) mrr.Subscription {
	out := mrr.Subscription{}
	if sub == nil || sub.Items == nil {
		return out
	}

	for _, item := range sub.Items.Data {
		if item == nil || item.Price == nil {
			continue
		}
		converted := mrr.Item{
			UnitAmountCents: item.Price.UnitAmount,
			Quantity:        item.Quantity,
		}
		if rec := item.Price.Recurring; rec != nil {
			converted.Recurring = &mrr.Recurring{
				Interval:      string(rec.Interval),
				IntervalCount: rec.IntervalCount,
			}
		}
		out.Items = append(out.Items, converted)
	}
	return out
}
