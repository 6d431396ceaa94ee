// Command testmo-inspect prints a Testmo folder subtree or the cases below it,
// using the same recursive walk as the MCP tools.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/mcp-testmo/testmo-mcp-server/internal/config"
	"github.com/mcp-testmo/testmo-mcp-server/internal/hierarchy"
	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

var (
	version = "version"

	cyan   = color.New(color.FgCyan, color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	faint  = color.New(color.Faint)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cmd := &cli.Command{
		Name:    "testmo-inspect",
		Usage:   "Inspect Testmo folder hierarchies from the command line",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "testmo-url",
				Required: true,
				Sources:  cli.EnvVars("TESTMO_URL"),
			},
			&cli.StringFlag{
				Name:     "token",
				Required: true,
				Sources:  cli.EnvVars("TESTMO_API_KEY"),
			},
			&cli.Int64Flag{
				Name:     "project-id",
				Required: true,
				Sources:  cli.EnvVars("TESTMO_PROJECT_ID"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Value:   slog.LevelWarn.String(),
			},
		},
		Before: config.InitLogger(),
		Commands: []*cli.Command{
			{
				Name:   "tree",
				Usage:  "Print a folder and all of its subfolders",
				Flags:  []cli.Flag{folderFlag()},
				Action: runTree,
			},
			{
				Name:  "cases",
				Usage: "Print a per-folder case summary of a folder subtree",
				Flags: []cli.Flag{
					folderFlag(),
					&cli.BoolFlag{Name: "list", Usage: "Print every case, not just the folder summary"},
				},
				Action: runCases,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func folderFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:     "folder-id",
		Aliases:  []string{"f"},
		Required: true,
		Usage:    "Root folder ID",
	}
}

func newAggregator(cmd *cli.Command) (*hierarchy.Aggregator, *testmo.Client, error) {
	settings := config.Settings{
		URL:            cmd.String("testmo-url"),
		Token:          cmd.String("token"),
		ProjectID:      cmd.Int64("project-id"),
		RateLimitDelay: testmo.RateLimitDelay,
		RequestTimeout: testmo.DefaultRequestTimeout,
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	client, err := testmo.NewClient(settings.URL, settings.Token, settings.ClientOptions()...)
	if err != nil {
		return nil, nil, err
	}
	return hierarchy.NewAggregator(client, client.Pacer()), client, nil
}

func runTree(ctx context.Context, cmd *cli.Command) error {
	agg, client, err := newAggregator(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	res, err := agg.FolderTree(ctx, cmd.Int64("project-id"), cmd.Int64("folder-id"))
	if err != nil {
		return err
	}
	printTree(cmd.Root().Writer, res)
	return nil
}

func runCases(ctx context.Context, cmd *cli.Command) error {
	agg, client, err := newAggregator(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	res, err := agg.Cases(ctx, cmd.Int64("project-id"), cmd.Int64("folder-id"), true)
	if err != nil {
		return err
	}
	printCases(cmd.Root().Writer, res, cmd.Bool("list"))
	return nil
}

func printTree(w io.Writer, res *hierarchy.TreeResult) {
	_, _ = cyan.Fprintf(w, "%s (%d folders)\n", res.Tree.FullPath, res.TotalFolders)
	printChildren(w, res.Tree.Children, "")
}

func printChildren(w io.Writer, nodes []*hierarchy.TreeNode, prefix string) {
	for i, n := range nodes {
		branch, next := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, next = "└── ", "    "
		}
		_, _ = fmt.Fprint(w, prefix+branch)
		_, _ = green.Fprint(w, n.Name)
		_, _ = faint.Fprintf(w, " #%d\n", n.ID)
		printChildren(w, n.Children, prefix+next)
	}
}

func printCases(w io.Writer, res *hierarchy.CasesResult, list bool) {
	_, _ = cyan.Fprintf(w, "%d cases in %d folders\n", res.TotalCases, res.TotalFoldersSearched)
	for _, s := range res.FolderSummary {
		path := s.FolderName
		if s.FolderPath != nil {
			path = *s.FolderPath
		}
		_, _ = yellow.Fprintf(w, "%5d", s.CaseCount)
		_, _ = fmt.Fprintf(w, "  %s\n", path)
	}
	if !list {
		return
	}
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, c := range res.Cases {
		_, _ = faint.Fprintf(w, "#%-6d ", c.ID)
		_, _ = fmt.Fprintln(w, c.Name)
	}
}
