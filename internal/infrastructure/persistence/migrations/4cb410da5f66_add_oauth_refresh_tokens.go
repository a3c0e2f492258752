package migrations

import (
	"context"
	"time"

	"github.com/orris-inc/userschema/internal/infrastructure/migration"
	"github.com/orris-inc/userschema/internal/shared/constants"
)

// AddOAuthRefreshTokens adds nullable OAuth refresh token and provider columns
// to the user table.
var AddOAuthRefreshTokens = &migration.Revision{
	ID:           "4cb410da5f66",
	DownRevision: "9f0c9cd09105",
	Message:      "Add OAuth refresh token support to user table",
	CreatedAt:    time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	Upgrade: func(ctx context.Context, op migration.Operations) error {
		// refresh tokens are stored encrypted by the application
		if err := op.AddColumn(ctx, constants.TableUser, migration.Column{
			Name:     constants.ColumnOAuthRefreshToken,
			Type:     migration.Text(),
			Nullable: true,
		}); err != nil {
			return err
		}

		return op.AddColumn(ctx, constants.TableUser, migration.Column{
			Name:     constants.ColumnOAuthProvider,
			Type:     migration.Text(),
			Nullable: true,
		})
	},
	Downgrade: func(ctx context.Context, op migration.Operations) error {
		if err := op.DropColumn(ctx, constants.TableUser, constants.ColumnOAuthProvider); err != nil {
			return err
		}
		return op.DropColumn(ctx, constants.TableUser, constants.ColumnOAuthRefreshToken)
	},
}

func init() {
	register(AddOAuthRefreshTokens)
}
