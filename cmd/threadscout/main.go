package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/threadscout/threadscout-mcp/internal/config"
	"github.com/threadscout/threadscout-mcp/internal/mcp"
	"github.com/threadscout/threadscout-mcp/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	flagConfig string
	flagSort   string
	flagTime   string
)

var rootCmd = &cobra.Command{
	Use:   "threadscout",
	Short: "Search a discussion platform's public index, with optional AI-assisted context search",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one plain keyword search and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServer(func(s *mcp.Server) error {
			q := types.SearchQuery{
				Query: args[0],
				Sort:  types.SortMode(flagSort),
				Time:  types.TimeRange(flagTime),
			}
			res, err := s.SearchPlain(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

var contextCmd = &cobra.Command{
	Use:   "context <query>",
	Short: "Run one AI-assisted context search and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServer(func(s *mcp.Server) error {
			res, err := s.SearchWithContext(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("threadscout %s (built: %s)\n", version, buildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	searchCmd.Flags().StringVar(&flagSort, "sort", string(types.SortTop), "sort mode: top or hot")
	searchCmd.Flags().StringVar(&flagTime, "time", "", "time bucket: all, hour, day, week, month, year, or 15days")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(versionCmd)
}

// newServer loads config and builds the wired server. Logs go to stderr;
// stdout is reserved for the MCP protocol and JSON output.
func newServer() (*mcp.Server, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	return mcp.NewServer(cfg, logger)
}

func withServer(fn func(*mcp.Server) error) error {
	s, err := newServer()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func runServe(ctx context.Context) error {
	s, err := newServer()
	if err != nil {
		return err
	}

	slog.Info("threadscout MCP server starting", "version", version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("MCP server ready, listening on stdio")
		errChan <- s.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		slog.Info("received signal, shutting down", "signal", sig.String())
		s.Close()
		return nil
	case err := <-errChan:
		return err
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "cause", err)
		os.Exit(1)
	}
}
