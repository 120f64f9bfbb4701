package auditctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{Username: "admin", IPAddress: "10.0.0.1"})

	actor, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "admin", actor.Username)
	require.Equal(t, "10.0.0.1", actor.IPAddress)

	_, ok = FromContext(context.Background())
	require.False(t, ok)
}
