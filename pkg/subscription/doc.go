// Package subscription evaluates subscription access and keeps billing
// state in sync with the payment provider.
//
// Access is a pure function of the user's profile and the current time.
// Evaluate never touches storage; Service.Access loads the profile first.
//
// Billing state flows one way: checkout and portal sessions are opened
// through a Provider (Stripe or Paddle), and the provider's webhooks are the
// only writer of the subscription record and the profile's status
// projection. Both are written together through Store.ApplySubscription.
//
//	svc := subscription.NewService(cfg, provider, store, subscription.WithLogger(log))
//	access, err := svc.Access(ctx, uid)
package subscription
