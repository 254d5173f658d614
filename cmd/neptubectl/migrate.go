package main

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/neptube/internal/eventstore"
	"github.com/nao1215/neptube/internal/feed"
	"github.com/nao1215/neptube/internal/gateway"
	"github.com/nao1215/neptube/internal/notification"
	"github.com/nao1215/neptube/internal/premium"
	"github.com/nao1215/neptube/internal/subscription"
	"github.com/nao1215/neptube/pkg/migration"
)

// serviceMigrations はサービス名ごとのマイグレーションファイル。
var serviceMigrations = map[string]func() fs.FS{
	"gateway":      func() fs.FS { return gateway.MigrationsFS() },
	"subscription": func() fs.FS { return subscription.MigrationsFS() },
	"feed":         func() fs.FS { return feed.MigrationsFS() },
	"notification": func() fs.FS { return notification.MigrationsFS() },
	"premium":      func() fs.FS { return premium.MigrationsFS() },
	"eventstore":   func() fs.FS { return eventstore.MigrationsFS() },
}

func serviceNames() []string {
	names := make([]string, 0, len(serviceMigrations))
	for name := range serviceMigrations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newMigrateCmd() *cobra.Command {
	var service string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "サービスのマイグレーションを適用する",
		Long:  "各サービスは起動時にもマイグレーションを適用する。デプロイ前に適用したい場合に使う。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrations, ok := serviceMigrations[service]
			if !ok {
				return fmt.Errorf("不明なサービス: %q (%s)", service, strings.Join(serviceNames(), ", "))
			}

			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := migration.Run(cmd.Context(), db, migrations(), "migrations")
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: up to date\n", service)
				return nil
			}
			for _, m := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: applied %06d_%s\n", service, m.Version, m.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "対象サービス ("+strings.Join(serviceNames(), ", ")+")")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.RegisterFlagCompletionFunc("service", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return serviceNames(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
