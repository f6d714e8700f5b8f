package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rideconnect/internal/rides"
	"rideconnect/internal/store"
)

func (a *app) ridesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rides",
		Short: "Browse, offer and book rides",
	}
	cmd.AddCommand(
		a.ridesListCmd(),
		a.ridesSearchCmd(),
		a.ridesCreateCmd(),
		a.ridesBookCmd(),
		a.ridesCancelBookingCmd(),
		a.ridesMineCmd(),
		a.ridesBookingsCmd(),
		a.ridesTransitionCmd("cancel", "Cancel one of your rides", store.RideCancelled),
		a.ridesTransitionCmd("complete", "Mark one of your rides completed", store.RideCompleted),
	)
	return cmd
}

func (a *app) ridesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every ride",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := a.store.ListRides(cmd.Context())
			if err != nil {
				return err
			}
			printRides(cmd.OutOrStdout(), all)
			return nil
		},
	}
}

// filterFlags binds the search flags shared by local and remote search.
func filterFlags(cmd *cobra.Command, f *store.RideFilter, minPrice *float64) {
	cmd.Flags().StringVar(&f.From, "from", "", "origin contains")
	cmd.Flags().StringVar(&f.To, "to", "", "destination contains")
	cmd.Flags().StringVar(&f.Date, "date", "", "exact date, YYYY-MM-DD")
	cmd.Flags().Float64Var(minPrice, "min-price", 0, "minimum price per seat")
}

func resolveFilter(cmd *cobra.Command, f store.RideFilter, minPrice float64) store.RideFilter {
	if cmd.Flags().Changed("min-price") {
		f.MinPrice = &minPrice
	}
	return f
}

func (a *app) ridesSearchCmd() *cobra.Command {
	var f store.RideFilter
	var minPrice float64
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find active rides with free seats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := a.store.SearchRides(cmd.Context(), resolveFilter(cmd, f, minPrice))
			if err != nil {
				return err
			}
			printRides(cmd.OutOrStdout(), found)
			return nil
		},
	}
	filterFlags(cmd, &f, &minPrice)
	return cmd
}

func (a *app) ridesCreateCmd() *cobra.Command {
	var req rides.PostRideRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Offer a ride (drivers)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, err := a.session(cmd.Context(), store.RoleDriver)
			if err != nil {
				return err
			}
			data, err := req.Validate(driver)
			if err != nil {
				return err
			}
			r, err := a.store.CreateRide(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ride %s posted: %s -> %s on %s at %s, %d seats.\n",
				r.ID, r.From, r.To, r.Date, r.Time, r.Seats)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Source, "from", "", "origin")
	f.StringVar(&req.Destination, "to", "", "destination")
	f.StringVar(&req.Date, "date", "", "YYYY-MM-DD")
	f.StringVar(&req.Time, "time", "", "HH:MM")
	f.StringVar(&req.Duration, "duration", "", "estimated duration, free text")
	f.IntVar(&req.Seats, "seats", 1, "seats offered")
	f.Float64Var(&req.PricePerSeat, "price", 0, "price per seat")
	return cmd
}

func (a *app) ridesBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "book RIDE_ID",
		Short: "Book one seat (passengers)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.session(cmd.Context(), store.RolePassenger)
			if err != nil {
				return err
			}
			if err := a.store.BookRide(cmd.Context(), args[0], p.ID); err != nil {
				return err
			}
			r, err := a.store.GetRide(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Booked a seat on %s (%s -> %s). %d seats left.\n",
				r.ID, r.From, r.To, r.AvailableSeats)
			return nil
		},
	}
}

func (a *app) ridesCancelBookingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-booking RIDE_ID",
		Short: "Give up your seat on a ride",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.session(cmd.Context(), store.RolePassenger)
			if err != nil {
				return err
			}
			if err := a.store.CancelBooking(cmd.Context(), args[0], p.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Booking on %s cancelled.\n", args[0])
			return nil
		},
	}
}

func (a *app) ridesMineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List rides you offer (drivers)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.session(cmd.Context(), store.RoleDriver)
			if err != nil {
				return err
			}
			mine, err := a.store.RidesByDriver(cmd.Context(), d.ID)
			if err != nil {
				return err
			}
			printRides(cmd.OutOrStdout(), mine)
			return nil
		},
	}
}

func (a *app) ridesBookingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bookings",
		Short: "List rides you hold a seat on (passengers)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.session(cmd.Context(), store.RolePassenger)
			if err != nil {
				return err
			}
			held, err := a.store.BookingsOf(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			views := make([]rides.BookingView, 0, len(held))
			for _, r := range held {
				views = append(views, rides.NewBookingView(r))
			}
			printBookings(cmd.OutOrStdout(), views)
			return nil
		},
	}
}

func (a *app) ridesTransitionCmd(use, short string, next store.RideStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " RIDE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.session(cmd.Context(), store.RoleDriver, store.RoleAdmin)
			if err != nil {
				return err
			}
			r, err := a.store.GetRide(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if u.Role != store.RoleAdmin && r.DriverID != u.ID {
				return fmt.Errorf("ride %s belongs to another driver", r.ID)
			}
			if next == store.RideCancelled {
				r, err = a.store.CancelRide(cmd.Context(), r.ID)
			} else {
				r, err = a.store.CompleteRide(cmd.Context(), r.ID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ride %s is now %s.\n", r.ID, r.Status)
			return nil
		},
	}
}

func printRides(w io.Writer, list []store.Ride) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No rides found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFROM\tTO\tDATE\tTIME\tSEATS\tPRICE\tDRIVER\tSTATUS")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%.2f\t%s\t%s\n",
			r.ID, r.From, r.To, r.Date, r.Time, r.AvailableSeats, r.Seats, r.Price, r.DriverName, r.Status)
	}
	tw.Flush()
}

func printBookings(w io.Writer, list []rides.BookingView) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No bookings.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RIDE\tFROM\tTO\tDATE\tTIME\tPRICE\tDRIVER\tSTATUS")
	for _, b := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			b.RideID, b.Source, b.Destination, b.Date, b.Time, b.Price, b.DriverName, b.Status)
	}
	tw.Flush()
}
