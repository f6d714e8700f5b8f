package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rideconnect/internal/store"
)

// remoteCmd groups commands that go through the REST API instead of the
// local store. The local store still keeps the session and token.
func (a *app) remoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Use a RideConnect server (see --api)",
	}

	var email, password string
	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in against the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.client().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in to %s as %s (%s).\n", a.apiURL, u.Email, u.Role)
			return nil
		},
	}
	login.Flags().StringVar(&email, "email", "", "email address")
	login.Flags().StringVar(&password, "password", "", "password")
	login.MarkFlagRequired("email")

	var f store.RideFilter
	var minPrice float64
	search := &cobra.Command{
		Use:   "search",
		Short: "Search rides on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := a.client().SearchRides(cmd.Context(), resolveFilter(cmd, f, minPrice))
			if err != nil {
				return err
			}
			printRides(cmd.OutOrStdout(), found)
			return nil
		},
	}
	filterFlags(search, &f, &minPrice)

	book := &cobra.Command{
		Use:   "book RIDE_ID",
		Short: "Book one seat on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.client().Book(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Booked a seat on %s. %d seats left.\n", res.RideID, res.AvailableSeats)
			return nil
		},
	}

	bookings := &cobra.Command{
		Use:   "bookings",
		Short: "List your bookings on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := a.client().MyBookings(cmd.Context())
			if err != nil {
				return err
			}
			printBookings(cmd.OutOrStdout(), views)
			return nil
		},
	}

	cmd.AddCommand(login, search, book, bookings)
	return cmd
}
