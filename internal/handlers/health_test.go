package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/weddingrsvp/internal/database"
	"github.com/charlesng35/weddingrsvp/internal/handlers/testutil"
)

func TestHealthReportsDatabase(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.True(t, testutil.DecodeResponse(t, resp).Success)

	require.NoError(t, database.Close(env.DB))

	resp = env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code, resp.Body.String())
	require.Equal(t, "SERVICE_UNAVAILABLE", testutil.DecodeResponse(t, resp).Error.Code)
}
