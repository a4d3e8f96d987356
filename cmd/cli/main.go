// Package main provides the operator CLI for the crosssite gateway.
// Uses Cobra for command parsing. It reads the same configuration as the
// server, so it shows exactly what a running gateway would decide.
//
// Run with: go run ./cmd/cli check --method OPTIONS --url '/?v-r=uidl' --origin https://a.example
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleveque/crosssite/internal/config"
	"github.com/fleveque/crosssite/internal/server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootCmd creates the command tree:
// crosssite-cli origins
// crosssite-cli check --method GET --url /VAADIN/build/x.js --origin https://a.example
func rootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "crosssite-cli",
		Short:        "Inspect the crosssite gateway configuration",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log configuration warnings and decisions")

	root.AddCommand(originsCmd(&verbose))
	root.AddCommand(checkCmd(&verbose))
	return root
}

func originsCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "origins",
		Short: "Print the allowed origins",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadDeps(*verbose)
			if err != nil {
				return err
			}
			for _, o := range deps.Policy.Origins().List() {
				fmt.Fprintln(cmd.OutOrStdout(), o)
			}
			return nil
		},
	}
}

func checkCmd(verbose *bool) *cobra.Command {
	var method, target, origin string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show how the gateway would treat a request",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadDeps(*verbose)
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), deps, method, target, origin)
		},
	}

	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method")
	cmd.Flags().StringVar(&target, "url", "/", "Request path and query, e.g. '/?v-r=uidl'")
	cmd.Flags().StringVar(&origin, "origin", "", "Origin header (omit for none)")
	return cmd
}

func runCheck(w io.Writer, deps server.Deps, method, target, origin string) error {
	if !strings.HasPrefix(target, "/") {
		return fmt.Errorf("url must start with '/': %q", target)
	}
	req, err := http.NewRequest(strings.ToUpper(method), target, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if origin != "" {
		req.Header.Set("Origin", origin)
	}

	fmt.Fprintf(w, "needs CORS headers: %t\n", deps.Policy.NeedsCorsHeaders(req))
	fmt.Fprintf(w, "origin allowed:     %t\n", deps.Policy.IsAllowedOrigin(origin))
	fmt.Fprintf(w, "decision:           %s\n", deps.Policy.Decide(req))
	return nil
}

func loadDeps(verbose bool) (server.Deps, error) {
	cfg, err := config.Load(os.Getenv("CROSSSITE_CONFIG_PATH"))
	if err != nil {
		return server.Deps{}, fmt.Errorf("loading config: %w", err)
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return server.Deps{}, fmt.Errorf("creating logger: %w", err)
		}
	}

	// The upstream is irrelevant for decisions; don't fail on a bad URL here.
	cfg.Upstream.URL = ""
	return server.NewDeps(cfg, logger)
}
