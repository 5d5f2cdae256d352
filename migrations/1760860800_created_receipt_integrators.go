package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("receipt_integrators")

		// integrators only see their own profile; writes go through the dashboard
		collection.ListRule = types.Pointer("owner = @request.auth.id")
		collection.ViewRule = types.Pointer("owner = @request.auth.id")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "owner",
				CollectionId:  users.Id,
				Required:      true,
				MaxSelect:     1,
				CascadeDelete: true,
			},
			&core.TextField{
				Name:     "username",
				Required: true,
				Max:      64,
			},
			&core.BoolField{
				Name: "active",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)

		collection.AddIndex("idx_receipt_integrators_owner", true, "owner", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("receipt_integrators")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
