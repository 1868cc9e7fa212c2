package keychain

import (
	"context"
	"database/sql"
	"testing"

	"heavenwatch-backend/lib/telemetry"
	"heavenwatch-backend/services/keychain/db"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setup(t *testing.T) Service {
	cleanup := telemetry.SetupForTesting(t, "test:services/keychain")
	t.Cleanup(cleanup)

	sqlite, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	_, err = sqlite.Exec(db.Schema)
	require.NoError(t, err)

	key, err := ParseKey("")
	require.NoError(t, err)

	return NewService(sqlite, key)
}

func TestCredentialRoundtrip(t *testing.T) {
	service := setup(t)
	ctx := context.Background()

	creds := Credentials{AccountId: "shop-admin", Password: "hunter2"}
	require.NoError(t, service.SetCredentials(ctx, "testshop", creds))

	got, err := service.GetCredentials(ctx, "testshop")
	require.NoError(t, err)
	require.Equal(t, creds, got)

	provided, err := service.HasCredentials(ctx, "testshop")
	require.NoError(t, err)
	require.True(t, provided)
}

func TestCredentialsAreEncryptedAtRest(t *testing.T) {
	service := setup(t)
	ctx := context.Background()

	require.NoError(t, service.SetCredentials(ctx, "testshop", Credentials{
		AccountId: "shop-admin",
		Password:  "hunter2",
	}))

	row, err := db.New(service.db).GetCredential(ctx, "testshop")
	require.NoError(t, err)
	require.NotEqual(t, "shop-admin", row.AccountID)
	require.NotEqual(t, "hunter2", row.Password)
	require.NotContains(t, row.Password, "hunter2")
}

func TestOverwriteCredentials(t *testing.T) {
	service := setup(t)
	ctx := context.Background()

	require.NoError(t, service.SetCredentials(ctx, "testshop", Credentials{AccountId: "a", Password: "1"}))
	require.NoError(t, service.SetCredentials(ctx, "testshop", Credentials{AccountId: "b", Password: "2"}))

	got, err := service.GetCredentials(ctx, "testshop")
	require.NoError(t, err)
	require.Equal(t, Credentials{AccountId: "b", Password: "2"}, got)
}

func TestMissingCredentials(t *testing.T) {
	service := setup(t)
	ctx := context.Background()

	_, err := service.GetCredentials(ctx, "unknown")
	require.ErrorIs(t, err, ErrNotFound)

	provided, err := service.HasCredentials(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, provided)
}

func TestDeleteCredentials(t *testing.T) {
	service := setup(t)
	ctx := context.Background()

	require.NoError(t, service.SetCredentials(ctx, "testshop", Credentials{AccountId: "a", Password: "1"}))
	require.NoError(t, service.DeleteCredentials(ctx, "testshop"))

	_, err := service.GetCredentials(ctx, "testshop")
	require.ErrorIs(t, err, ErrNotFound)
}
