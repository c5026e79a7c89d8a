package subscription

import "context"

// Store persists profiles and their current subscription record.
type Store interface {
	// GetProfile returns ErrProfileNotFound when the user has no profile.
	GetProfile(ctx context.Context, uid string) (*Profile, error)

	// GetSubscription returns ErrSubscriptionNotFound when the user has no record.
	GetSubscription(ctx context.Context, uid string) (*Subscription, error)

	// ApplySubscription replaces the subscription record and patches the
	// profile's status projection and customer id in one atomic write.
	// An empty customerID leaves the stored one untouched.
	ApplySubscription(ctx context.Context, uid string, sub Subscription, customerID string) error

	// UpdateProfileStatus patches only the profile's status projection.
	UpdateProfileStatus(ctx context.Context, uid string, status Status) error
}
