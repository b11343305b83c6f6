package redis

import (
	"context"
	"errors"
	"time"
)

const (
	guardProcessing = "processing"
	guardProcessed  = "processed"

	// claimTTL bounds how long a crashed delivery blocks redeliveries.
	claimTTL = time.Minute
)

// ClaimState is the outcome of claiming a gateway notice.
type ClaimState int

const (
	// ClaimAcquired means the caller owns the notice and must Complete or Release it.
	ClaimAcquired ClaimState = iota
	// ClaimInFlight means another delivery is still applying the notice.
	ClaimInFlight
	// ClaimDone means the notice was already applied and committed.
	ClaimDone
)

// CallbackGuard remembers gateway notices that were already applied so
// redeliveries can be acknowledged without touching the database. A notice is
// only reported done after Complete, which callers invoke once the database
// transaction has committed.
type CallbackGuard struct {
	client  *Client
	gateway string
	ttl     time.Duration
}

func NewCallbackGuard(client *Client, gateway string, ttl time.Duration) *CallbackGuard {
	return &CallbackGuard{client: client, gateway: gateway, ttl: ttl}
}

// Claim marks tradeNo as being processed by the caller.
func (g *CallbackGuard) Claim(ctx context.Context, tradeNo string) (ClaimState, error) {
	key := g.client.CallbackKey(g.gateway, tradeNo)
	acquired, err := g.client.SetNX(ctx, key, guardProcessing, g.claimTTL())
	if err != nil {
		return ClaimInFlight, err
	}
	if acquired {
		return ClaimAcquired, nil
	}

	value, err := g.client.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNil):
		// released between the two calls; let the gateway retry
		return ClaimInFlight, nil
	case err != nil:
		return ClaimInFlight, err
	case value == guardProcessed:
		return ClaimDone, nil
	default:
		return ClaimInFlight, nil
	}
}

// Complete records that the notice for tradeNo has been committed.
func (g *CallbackGuard) Complete(ctx context.Context, tradeNo string) error {
	return g.client.Set(ctx, g.client.CallbackKey(g.gateway, tradeNo), guardProcessed, g.ttl)
}

// Release drops the claim so the next delivery is processed again.
func (g *CallbackGuard) Release(ctx context.Context, tradeNo string) error {
	return g.client.Del(ctx, g.client.CallbackKey(g.gateway, tradeNo))
}

func (g *CallbackGuard) claimTTL() time.Duration {
	if g.ttl > 0 && g.ttl < claimTTL {
		return g.ttl
	}
	return claimTTL
}
