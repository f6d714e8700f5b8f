package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rideconnect/internal/users"
)

func (a *app) signUpCmd() *cobra.Command {
	var req users.RegisterRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := req.Validate()
			if err != nil {
				return err
			}
			u, err := a.store.SignUp(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! Signed in as %s (%s).\n", u.Name, u.Email, u.Role)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "full name")
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.Phone, "phone", "", "phone number")
	f.StringVar(&req.Password, "password", "", "password")
	f.StringVar(&req.Role, "role", "passenger", "passenger or driver")
	f.StringVar(&req.VehicleModel, "vehicle-model", "", "vehicle model (drivers)")
	f.StringVar(&req.LicensePlate, "plate", "", "license plate (drivers)")
	f.IntVar(&req.VehicleCapacity, "capacity", 0, "passenger capacity (drivers)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) signInCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in to the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.store.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s).\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Clear the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (a *app) whoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.store.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if u == nil {
				fmt.Fprintln(out, "Not signed in.")
				return nil
			}
			fmt.Fprintf(out, "%s <%s> %s id=%s verified=%t\n", u.Name, u.Email, u.Role, u.ID, u.Verified)
			if v, ok := u.Driver(); ok && v != nil {
				fmt.Fprintf(out, "vehicle: %s %s, %d seats\n", v.Model, v.Plate, v.Capacity)
			}
			return nil
		},
	}
}
