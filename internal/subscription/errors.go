package subscription

import "errors"

var (
	ErrSubscriptionClosed = errors.New("subscription: already closed")
	ErrUnknownSubscription = errors.New("subscription: unknown id")
)
