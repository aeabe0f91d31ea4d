package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/yumovie/backend/internal/admin"
	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/models"
	"github.com/yumovie/backend/internal/store"
	"github.com/yumovie/backend/pkg/logger"
)

// Promoter grants the admin role by email.
type Promoter interface {
	Promote(ctx context.Context, email string) (*models.User, error)
}

// opener builds a Promoter and a func releasing its resources.
type opener func(ctx context.Context) (Promoter, func(), error)

func newMakeAdminCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "make-admin <email>",
		Short: "Grant the admin role to an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			p, closeFn, err := open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			u, err := p.Promote(ctx, args[0])
			if err != nil {
				if apperr.KindOf(err) != apperr.KindInternal {
					return errors.New(apperr.Message(err))
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now an admin\n", u.Name, u.Email)
			return nil
		},
	}
}

// openAdmin connects to Postgres only; promotion never touches reviews.
func openAdmin(ctx context.Context) (Promoter, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres connect: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFile)
	svc := admin.NewService(store.NewPostgresStore(pool), nil, log.WithField("component", "moviectl"))
	return svc, pool.Close, nil
}
