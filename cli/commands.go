// Package cli provides the Cobra-based CLI for stockroom.
package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"stockroom/app"
	"stockroom/auth"
	"stockroom/domain"
	"stockroom/logger"
	"stockroom/session"
	"stockroom/store"
)

var (
	rootCmd = &cobra.Command{
		Use:           "stockroom",
		Short:         "Warehouse inventory client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// tests inject the collaborators
			if service != nil {
				return nil
			}

			if cfg := viper.GetString("config"); cfg != "" {
				viper.SetConfigFile(cfg)
				if err := viper.ReadInConfig(); err != nil {
					return err
				}
			}

			logger.Init(viper.GetString("log-level"), viper.GetString("log-format"), os.Stderr)

			kind := viper.GetString("backend")
			target := viper.GetString("api-url")
			if kind == "file" {
				target = viper.GetString("store-file")
			}
			b, err := store.NewStore(kind, target, store.WithTimeout(viper.GetDuration("timeout")))
			if err != nil {
				return err
			}
			setup(b, session.New(afero.NewOsFs(), viper.GetString("session-file")))
			return nil
		},
	}

	backend       store.Backend
	authenticator *auth.Authenticator
	service       *app.Service
)

// setup wires the command tree to b and sess.
func setup(b store.Backend, sess *session.Storage, opts ...app.Option) {
	backend = b
	authenticator = auth.New(b, sess)
	opts = append([]app.Option{app.WithRetry(viper.GetInt("retries"), viper.GetDuration("retry-backoff"))}, opts...)
	service = app.New(b, authenticator, opts...)
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".stockroom", "session.json")
	}
	return filepath.Join(home, ".stockroom", "session.json")
}

func init() {
	// shell
	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			for {
				fmt.Fprint(out, "stockroom> ")
				line, err := r.ReadString('\n')
				if err != nil {
					return nil
				}
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}
				rootCmd.SetArgs(strings.Fields(line))
				if err := rootCmd.Execute(); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
				rootCmd.SetArgs(nil)
				resetFlags(rootCmd)
			}
		},
	}
	rootCmd.AddCommand(shellCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("backend", "http", "backend: http|memory|file")
	pf.String("api-url", "http://localhost:3000", "REST backend base URL")
	pf.String("store-file", "data/db.json", "database file for the file backend")
	pf.String("session-file", defaultSessionFile(), "where the logged-in user is kept")
	pf.String("config", "", "config file")
	pf.String("log-level", "info", "log level")
	pf.String("log-format", "console", "log format: console|json")
	pf.Int("retries", app.DefaultAttempts, "attempts per backend call")
	pf.Duration("retry-backoff", 200*time.Millisecond, "pause between attempts")
	pf.Duration("timeout", 0, "per-request timeout for the http backend (0 uses the default)")

	for _, name := range []string{
		"backend", "api-url", "store-file", "session-file", "config",
		"log-level", "log-format", "retries", "retry-backoff", "timeout",
	} {
		viper.BindPFlag(name, pf.Lookup(name))
	}
	viper.SetEnvPrefix("STOCKROOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// resetFlags puts every local flag back to its default so one shell line
// does not leak into the next.
func resetFlags(cmd *cobra.Command) {
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// currentUser returns the logged-in warehouseman.
func currentUser() (domain.Warehouseman, error) {
	user, err := authenticator.Require()
	if errors.Is(err, domain.ErrNotAuthenticated) {
		return domain.Warehouseman{}, fmt.Errorf("%w: run `stockroom login <secret>` first", err)
	}
	return user, err
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func Execute() error {
	return rootCmd.Execute()
}
