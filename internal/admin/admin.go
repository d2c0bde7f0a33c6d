// Package admin implements hiringctl, the operator tool for schema
// migrations and HR account provisioning.
package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/logging"
	"github.com/dmitrijs2005/hiringhub/internal/server/config"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hiringhub/internal/server/services"
	"github.com/dmitrijs2005/hiringhub/internal/server/web"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// test seams
var (
	openDB       = repomanager.OpenDB
	newManager   = repomanager.NewPostgresRepositoryManager
	readPassword = term.ReadPassword
	stdinFd      = func() int { return int(os.Stdin.Fd()) }
)

type options struct {
	configFile string
	dsn        string
	logLevel   string
}

// NewRootCmd builds the hiringctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "hiringctl",
		Short:         "Administer a hiringhub deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", os.Getenv("HIRINGHUB_CONFIG"), "path to the JSON config file")
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (overrides the config file)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newMigrateCmd(opts), newCreateHRCmd(opts))
	return root
}

// Execute runs hiringctl with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.dsn != "" {
		cfg.DatabaseDSN = o.dsn
	}
	return cfg, nil
}

func (o *options) logger(w io.Writer) logging.Logger {
	return logging.NewJSONLogger(w, o.logLevel)
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			db, err := openDB(cmd.Context(), cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := newManager().RunMigrations(cmd.Context(), db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

type hrForm struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strongpassword"`
}

func newCreateHRCmd(opts *options) *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "create-hr",
		Short: "Create an HR account without email verification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			password, err := promptPassword(out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			v, err := web.NewValidator()
			if err != nil {
				return err
			}
			form := hrForm{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email), Password: string(password)}
			if err := v.Struct(form); err != nil {
				return err
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}

			db, err := openDB(cmd.Context(), cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			account, err := createHR(cmd.Context(), db, cfg, opts.logger(cmd.ErrOrStderr()), form)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "created HR account %s (%s)\n", account.ID, account.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "display name of the HR user")
	cmd.Flags().StringVarP(&email, "email", "e", "", "login email of the HR user")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func createHR(ctx context.Context, db *sql.DB, cfg *config.Config, l logging.Logger, f hrForm) (*models.Account, error) {
	svc := services.NewAccountService(db, newManager(), nil, nil, cfg, l)

	account, err := svc.CreateHR(ctx, f.Username, f.Email, f.Password)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("an account with email %s already exists", f.Email)
		}
		return nil, err
	}
	return account, nil
}

// promptPassword reads the password twice without echo.
func promptPassword(w io.Writer) ([]byte, error) {
	fmt.Fprint(w, "Password: ")
	first, err := readPassword(stdinFd())
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(w, "Confirm password: ")
	second, err := readPassword(stdinFd())
	fmt.Fprintln(w)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if string(first) != string(second) {
		common.WipeByteArray(first)
		return nil, errors.New("passwords do not match")
	}
	return first, nil
}
