package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rideconnect/internal/store"
)

func (a *app) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Moderate accounts (administrator only)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "users",
			Short: "List passenger and driver accounts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := a.session(cmd.Context(), store.RoleAdmin); err != nil {
					return err
				}
				all, err := a.store.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				printUsers(cmd.OutOrStdout(), all)
				return nil
			},
		},
		a.adminActionCmd("verify", "Mark an account verified", func(cmd *cobra.Command, id string) error {
			return a.store.VerifyUser(cmd.Context(), id)
		}),
		a.adminBlockCmd(),
		a.adminActionCmd("unblock", "Lift a block", func(cmd *cobra.Command, id string) error {
			return a.store.UnblockUser(cmd.Context(), id)
		}),
		a.adminActionCmd("delete", "Delete an account", func(cmd *cobra.Command, id string) error {
			if id == store.AdminID {
				return fmt.Errorf("cannot delete the administrator")
			}
			return a.store.DeleteUser(cmd.Context(), id)
		}),
	)
	return cmd
}

// adminActionCmd wraps a per-user moderation step behind the admin check.
func (a *app) adminActionCmd(use, short string, fn func(cmd *cobra.Command, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " USER_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session(cmd.Context(), store.RoleAdmin); err != nil {
				return err
			}
			if _, err := a.store.GetUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := fn(cmd, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s done.\n", args[0], use)
			return nil
		},
	}
}

func (a *app) adminBlockCmd() *cobra.Command {
	var reason string
	cmd := a.adminActionCmd("block", "Block an account", func(cmd *cobra.Command, id string) error {
		if strings.TrimSpace(reason) == "" {
			return fmt.Errorf("--reason is required")
		}
		return a.store.BlockUser(cmd.Context(), id, strings.TrimSpace(reason))
	})
	cmd.Flags().StringVar(&reason, "reason", "", "reason shown to the user at sign-in")
	return cmd
}

func printUsers(w io.Writer, list []store.User) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tVERIFIED\tBLOCKED")
	for _, u := range list {
		if u.Role == store.RoleAdmin {
			continue
		}
		blocked := "-"
		if u.Blocked {
			blocked = u.BlockReason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", u.ID, u.Name, u.Email, u.Role, u.Verified, blocked)
	}
	tw.Flush()
}
