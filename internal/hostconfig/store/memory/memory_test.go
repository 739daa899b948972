package memory

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/archestra-ai/mcp-bridge/internal/hostconfig/store"
)

func TestSaveGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.Save(ctx, &store.Client{ClientName: "cursor", IsConnected: true, LastConnected: &now}))

	got, err := s.Get(ctx, "cursor")
	require.NoError(t, err)
	require.True(t, got.IsConnected)
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveUpserts(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, &store.Client{ClientName: "cursor", IsConnected: true}))
	require.NoError(t, s.Save(ctx, &store.Client{ClientName: "cursor", IsConnected: false}))

	got, err := s.Get(ctx, "cursor")
	require.NoError(t, err)
	require.False(t, got.IsConnected, "expected second Save to overwrite IsConnected to false")
}

func TestDeleteMissingReturnsErrNotFound(t *testing.T) {
	s := New()
	require.ErrorIs(t, s.Delete(context.Background(), "nope"), store.ErrNotFound)
}

func TestListConnectedFiltersDisconnected(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, &store.Client{ClientName: "cursor", IsConnected: true}))
	require.NoError(t, s.Save(ctx, &store.Client{ClientName: "claude", IsConnected: false}))

	clients, err := s.ListConnected(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	require.Equal(t, "cursor", clients[0].ClientName)
}

// TestSaveGetRoundTripProperty mirrors the teacher's
// TestRegistrationRoundTripConsistency: for any generated client record,
// saving then getting it back by name returns an equivalent record.
func TestSaveGetRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("save then get returns an equivalent client", prop.ForAll(
		func(client *store.Client) bool {
			s := New()
			ctx := context.Background()

			if err := s.Save(ctx, client); err != nil {
				return false
			}
			got, err := s.Get(ctx, client.ClientName)
			if err != nil {
				return false
			}
			return clientsEqual(client, got)
		},
		genClient(),
	))

	properties.TestingRun(t)
}

func clientsEqual(a, b *store.Client) bool {
	if a.ClientName != b.ClientName || a.IsConnected != b.IsConnected {
		return false
	}
	if !timePtrEqual(a.LastConnected, b.LastConnected) {
		return false
	}
	if !stringPtrEqual(a.ConfigPath, b.ConfigPath) {
		return false
	}
	return a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Equal(*b)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func genClient() gopter.Gen {
	return gopter.CombineGens(
		genClientName(),
		gen.Bool(),
		genOptionalUnixTime(),
		genOptionalString(),
		genUnixTime(),
		genUnixTime(),
	).Map(func(vals []any) *store.Client {
		var lastConnected *time.Time
		if vals[2] != nil {
			lastConnected = vals[2].(*time.Time)
		}
		var configPath *string
		if vals[3] != nil {
			configPath = vals[3].(*string)
		}
		return &store.Client{
			ClientName:    vals[0].(string),
			IsConnected:   vals[1].(bool),
			LastConnected: lastConnected,
			ConfigPath:    configPath,
			CreatedAt:     vals[4].(time.Time),
			UpdatedAt:     vals[5].(time.Time),
		}
	})
}

func genClientName() gopter.Gen {
	return gen.OneConstOf("cursor", "claude", "vscode")
}

func genOptionalString() gopter.Gen {
	return gen.PtrOf(gen.OneConstOf(
		"/home/user/.cursor/mcp.json",
		"/home/user/.vscode/mcp.json",
	))
}

func genUnixTime() gopter.Gen {
	return gen.Int64Range(0, 2000000000).Map(func(sec int64) time.Time {
		return time.Unix(sec, 0).UTC()
	})
}

func genOptionalUnixTime() gopter.Gen {
	return gen.PtrOf(genUnixTime())
}

func TestGetReturnsACopyNotAnAlias(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, &store.Client{ClientName: "cursor", IsConnected: true}))

	got, err := s.Get(ctx, "cursor")
	require.NoError(t, err)
	got.IsConnected = false

	again, err := s.Get(ctx, "cursor")
	require.NoError(t, err)
	require.True(t, again.IsConnected, "mutating a returned record must not affect the store's internal state")
}
