package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/neptube/internal/gateway"
	"github.com/nao1215/neptube/pkg/tier"
)

// newUsersCmd はユーザー管理のサブコマンドを生成する。
func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "ユーザーのロール、プラン、利用停止状態を管理する",
	}
	cmd.AddCommand(
		newUsersListCmd(),
		newUsersBanCmd(),
		newUsersUnbanCmd(),
		newUsersSetRoleCmd(),
		newUsersSetTierCmd(),
	)
	return cmd
}

// withUserStore はゲートウェイのデータベースを開いてfnを実行する。
func withUserStore(cmd *cobra.Command, fn func(*gateway.UserStore) error) error {
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(gateway.NewUserStore(db))
}

func newUsersListCmd() *cobra.Command {
	var (
		banned bool
		limit  int64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "ユーザーを新しい順に表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("--limitは1以上で指定してください")
			}
			return withUserStore(cmd, func(store *gateway.UserStore) error {
				users, err := store.List(cmd.Context(), limit, banned)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tTIER\tBANNED\tLAST LOGIN")
				for _, u := range users {
					status := "-"
					if u.IsBanned != 0 {
						status = "yes"
						if u.BannedReason.Valid {
							status += " (" + u.BannedReason.String + ")"
						}
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						u.ID, u.DisplayName, u.Email, u.Role, u.SubscriptionTier, status, humanize.Time(u.LastLoginAt))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s users\n", humanize.Comma(int64(len(users))))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&banned, "banned", false, "利用停止中のユーザーだけを表示する")
	cmd.Flags().Int64Var(&limit, "limit", 50, "表示する最大件数")
	return cmd
}

func newUsersBanCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "ban <user-id>",
		Short: "ユーザーを利用停止にする",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				return fmt.Errorf("--reasonで停止理由を指定してください")
			}
			return withUserStore(cmd, func(store *gateway.UserStore) error {
				if err := store.Ban(cmd.Context(), args[0], reason); err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "banned %s: %s\n", args[0], reason)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "停止理由")
	return cmd
}

func newUsersUnbanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unban <user-id>",
		Short: "ユーザーの利用停止を解除する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(cmd, func(store *gateway.UserStore) error {
				if err := store.Unban(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "unbanned %s\n", args[0])
				return nil
			})
		},
	}
}

func newUsersSetRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <user-id> <user|admin>",
		Short: "ユーザーのロールを変更する",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := gateway.ParseRole(args[1])
			if err != nil {
				return err
			}
			return withUserStore(cmd, func(store *gateway.UserStore) error {
				if err := store.SetRole(cmd.Context(), args[0], role); err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s role=%s\n", args[0], role)
				return nil
			})
		},
	}
}

func newUsersSetTierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-tier <user-id> <free|lite|premium|vip>",
		Short: "ユーザーのプランを変更する",
		Long:  "ゲートウェイが保持するプランだけを書き換える。プレミアムサービスの契約は変更しない。",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tier.Parse(args[1])
			if err != nil {
				return err
			}
			return withUserStore(cmd, func(store *gateway.UserStore) error {
				if err := store.SetTier(cmd.Context(), args[0], t); err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s tier=%s\n", args[0], t)
				return nil
			})
		},
	}
}
