package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/namaste/namaste/internal/domain/terminology"
	"github.com/namaste/namaste/internal/platform/auth"
)

// withApp loads config, builds the app and runs fn with it.
func withApp(cmd *cobra.Command, g *globals, fn func(ctx context.Context, a *app) error) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

// credentials falls back to NAMASTE_USERNAME / NAMASTE_PASSWORD.
func (g *globals) credentials() (auth.Credentials, error) {
	c := auth.Credentials{Username: g.username, Password: g.password}
	if c.Username == "" {
		c.Username = os.Getenv("NAMASTE_USERNAME")
	}
	if c.Password == "" {
		c.Password = os.Getenv("NAMASTE_PASSWORD")
	}
	if c.Username == "" || c.Password == "" {
		return c, errors.New("--username and --password are required")
	}
	return c, nil
}

func loginCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Obtain and persist a terminology server token",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := g.credentials()
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				tok, err := a.tokens.Login(ctx, creds)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "logged in, token expires at %s\n", tok.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
}

func logoutCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the persisted token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				if err := a.tokens.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			})
		},
	}
}

func statusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a valid session exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				a.tokens.CheckRefresh(ctx)
				st := auth.SessionStatus{Authenticated: a.tokens.IsAuthenticated()}
				if exp, ok := a.tokens.ExpiresAt(); ok && st.Authenticated {
					st.ExpiresAt = &exp
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}

func searchCmd(g *globals) *cobra.Command {
	var (
		systems       []string
		hasDefinition bool
		asCSV         bool
	)
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search NAMASTE concepts in the configured value set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				svc, err := a.terminologyService(nil)
				if err != nil {
					return err
				}
				filter, err := svc.SearchFilter(systems, hasDefinition)
				if err != nil {
					return err
				}
				searcher := terminology.NewSearcher(svc, terminology.SearchOptions{
					MinLength: a.cfg.SearchMinLength,
					Count:     a.cfg.SearchCount,
				})
				results, err := searcher.Search(ctx, args[0])
				if err != nil {
					return err
				}
				results = svc.Filter(results, filter)
				if asCSV {
					return terminology.WriteSearchCSV(cmd.OutOrStdout(), results)
				}
				return printJSON(cmd.OutOrStdout(), results)
			})
		},
	}
	cmd.Flags().StringSliceVar(&systems, "system", nil, "keep only these systems (ayurveda, siddha, unani)")
	cmd.Flags().BoolVar(&hasDefinition, "has-definition", false, "keep only concepts with a definition")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write results as CSV instead of JSON")
	return cmd
}

func translateCmd(g *globals) *cobra.Command {
	var concept terminology.Concept
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate a NAMASTE code to ICD-11",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				svc, err := a.terminologyService(nil)
				if err != nil {
					return err
				}
				res, err := svc.Translate(ctx, concept)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&concept.System, "system", "", "source code system URI")
	cmd.Flags().StringVar(&concept.Code, "code", "", "source code")
	cmd.Flags().StringVar(&concept.Display, "display", "", "source display text")
	cmd.MarkFlagRequired("system")
	cmd.MarkFlagRequired("code")
	return cmd
}

func lookupCmd(g *globals) *cobra.Command {
	var system, code string
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up and validate a code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				svc, err := a.terminologyService(nil)
				if err != nil {
					return err
				}
				out, err := svc.LookupAndValidate(ctx, system, code)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "code system URI")
	cmd.Flags().StringVar(&code, "code", "", "code")
	cmd.MarkFlagRequired("system")
	cmd.MarkFlagRequired("code")
	return cmd
}
