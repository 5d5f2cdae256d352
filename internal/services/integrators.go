package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// IntegratorsCollection holds the Cash App username each integrator
// receives payments on.
const IntegratorsCollection = "receipt_integrators"

// IntegratorStore reads integrator profiles from PocketBase.
type IntegratorStore struct {
	app core.App
}

func NewIntegratorStore(app core.App) *IntegratorStore {
	return &IntegratorStore{app: app}
}

// FindUsername returns the username of the owner's active profile, or ""
// when the owner has none.
func (s *IntegratorStore) FindUsername(ownerID string) (string, error) {
	record, err := s.app.FindFirstRecordByFilter(
		IntegratorsCollection,
		"owner = {:owner} && active = true",
		dbx.Params{"owner": ownerID},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("FindUsername: %w", err)
	}

	return record.GetString("username"), nil
}
