package webid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContext_DefaultsToPublic(t *testing.T) {
	require.Equal(t, Public, FromContext(context.Background()))
}

func TestWithCredentials_RoundTrips(t *testing.T) {
	creds := Credentials{WebID: "http://alice.example/#i", Authenticated: true, Origin: "https://app.example", DPoPBound: true}
	ctx := WithCredentials(context.Background(), creds)
	require.Equal(t, creds, FromContext(ctx))
}
