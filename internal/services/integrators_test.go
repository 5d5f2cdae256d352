package services

import (
	"context"
	"testing"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt-verifier/internal/receipt"
	_ "receipt-verifier/migrations"
)

func setupTestIntegratorApp(t *testing.T) *tests.TestApp {
	t.Helper()

	app, err := tests.NewTestApp()
	require.NoError(t, err)
	t.Cleanup(app.Cleanup)

	if _, err := app.FindCollectionByNameOrId(IntegratorsCollection); err != nil {
		require.NoError(t, app.RunAppMigrations())
	}

	return app
}

func createIntegrator(t *testing.T, app core.App, email, username string, active bool) string {
	t.Helper()

	user, err := app.FindAuthRecordByEmail("users", email)
	require.NoError(t, err)

	collection, err := app.FindCollectionByNameOrId(IntegratorsCollection)
	require.NoError(t, err)

	record := core.NewRecord(collection)
	record.Set("owner", user.Id)
	record.Set("username", username)
	record.Set("active", active)
	require.NoError(t, app.Save(record))

	return user.Id
}

func TestIntegratorStore_FindUsername(t *testing.T) {
	app := setupTestIntegratorApp(t)
	store := NewIntegratorStore(app)

	activeOwner := createIntegrator(t, app, "test@example.com", "alice", true)
	inactiveOwner := createIntegrator(t, app, "test2@example.com", "bob", false)

	cases := []struct {
		name     string
		ownerID  string
		expected string
	}{
		{"active profile", activeOwner, "alice"},
		{"inactive profile", inactiveOwner, ""},
		{"no profile", "missing_owner_1", ""},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			username, err := store.FindUsername(tt.ownerID)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, username)
		})
	}
}

func TestIntegratorStore_FeedsReceiptService(t *testing.T) {
	app := setupTestIntegratorApp(t)
	owner := createIntegrator(t, app, "test@example.com", "alice", true)

	service := NewReceiptService(
		providerVerifier(t, `{"notes":"rent","detail_rows":[{},{},{},{"value":"alice"}]}`),
		NewIntegratorStore(app), nil, nil, discardLogger(),
	)

	v, err := service.Verify(context.Background(), VerifyParams{
		UserID:  owner,
		Request: receipt.Request{Reference: "rent", ReceiptURL: receiptURL},
	})

	require.NoError(t, err)
	assert.True(t, v.Result.OK(), v.Result.Message)
}
