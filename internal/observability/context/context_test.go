package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValuesRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx = WithActor(ctx, "42", "manager")
	ctx = WithClient(ctx, "10.0.0.1", "curl/8")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	actorID, role := ActorFromContext(ctx)
	assert.Equal(t, "42", actorID)
	assert.Equal(t, "manager", role)
	ip, ua := ClientFromContext(ctx)
	assert.Equal(t, "10.0.0.1", ip)
	assert.Equal(t, "curl/8", ua)
}

func TestEmptyContext(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
	actorID, role := ActorFromContext(context.Background())
	assert.Empty(t, actorID)
	assert.Empty(t, role)
}
