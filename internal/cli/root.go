// Package cli implements the rideconnect command line client.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rideconnect/internal/apiclient"
	"rideconnect/internal/store"
	"rideconnect/pkg/logger"
	"rideconnect/pkg/sqlite"
)

// app carries the state shared by every command of one invocation.
type app struct {
	dbPath  string
	apiURL  string
	verbose bool

	log   *zap.Logger
	db    *sqlite.Store
	store *store.Store
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "rideconnect",
		Short:         "Offer, find and book shared rides",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", defaultDBPath(), "path to the local SQLite store")
	root.PersistentFlags().StringVar(&a.apiURL, "api", "http://localhost:8080/api", "base URL of the REST API for remote commands")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.signUpCmd(),
		a.signInCmd(),
		a.signOutCmd(),
		a.whoAmICmd(),
		a.ridesCmd(),
		a.adminCmd(),
		a.remoteCmd(),
	)
	return root, a
}

// run executes root and releases the store even when a hook or command
// fails, which cobra's post-run hooks do not cover.
func (a *app) run(ctx context.Context, root *cobra.Command) error {
	defer a.close()
	return root.ExecuteContext(ctx)
}

// Execute runs the CLI against os.Args.
func Execute() int {
	cmd, a := newRoot()
	if err := a.run(context.Background(), cmd); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "rideconnect.db"
	}
	return filepath.Join(home, ".rideconnect", "store.db")
}

func (a *app) open(ctx context.Context) error {
	log, err := logger.NewConsole(a.verbose)
	if err != nil {
		return err
	}
	a.log = log

	db, err := sqlite.Open(ctx, a.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.db = db
	a.store = store.New(db, store.WithLogger(log))
	if err := a.store.Init(ctx); err != nil {
		return err
	}
	log.Debug("store ready", zap.String("db", a.dbPath))
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func (a *app) client() *apiclient.Client {
	return apiclient.New(a.apiURL, a.store, a.log)
}

// session returns the signed-in user, re-read from the users collection so
// blocks and deletions made since sign-in take effect.
func (a *app) session(ctx context.Context, roles ...store.Role) (store.User, error) {
	cur, err := a.store.CurrentUser(ctx)
	if err != nil {
		return store.User{}, err
	}
	if cur == nil {
		return store.User{}, fmt.Errorf("not signed in")
	}
	u, err := a.store.GetUser(ctx, cur.ID)
	if err != nil {
		return store.User{}, fmt.Errorf("signed-in account no longer exists: %w", err)
	}
	if u.Blocked {
		return store.User{}, &store.BlockedError{Reason: u.BlockReason}
	}
	if len(roles) == 0 {
		return u, nil
	}
	for _, r := range roles {
		if u.Role == r {
			return u, nil
		}
	}
	return store.User{}, fmt.Errorf("this command needs a %s account", roles[0])
}
