package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"knowledge-assistant/internal/app"
	"knowledge-assistant/internal/bootstrap"
	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/model"
	"knowledge-assistant/internal/repository"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "kactl",
		Usage: "Manage the knowledge assistant index from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the TOML config file",
				EnvVars: []string{"CONFIG_FILE"},
				Value:   "configs/config.toml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Index one or more TXT, CSV or PDF files",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
			},
			{
				Name:   "rebuild",
				Usage:  "Empty the index and re-ingest every document in a directory",
				Action: rebuildCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Documents directory (defaults to loader.documents_dir)",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Ask a question under a role",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "role",
						Aliases:  []string{"r"},
						Usage:    "Caller role (HR, Engineering, Admin)",
						Required: true,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show indexed documents and recent queries",
				Action: statsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "role",
						Usage: "Only show what this role can see",
						Value: "Admin",
					},
					&cli.IntFlag{
						Name:  "recent",
						Usage: "Show the N most recent queries (requires mysql)",
					},
				},
			},
		},
	}
}

func openApp(c *cli.Context) (*bootstrap.App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env failed: %w", err)
	}
	if err := os.Setenv("CONFIG_FILE", c.String("config")); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	bootstrap.SetupLogging(c.String("log-level"))
	return bootstrap.New(c.Context, cfg)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one file is required", 2)
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, path := range c.Args().Slice() {
		doc, err := a.Loader.LoadFile(path)
		if err != nil {
			return err
		}
		res, err := a.Ingest.Ingest(c.Context, doc.Metadata.Source, doc.Content)
		if err != nil {
			return fmt.Errorf("ingest %s failed: %w", path, err)
		}
		printIngest(res)
	}
	return nil
}

func rebuildCommand(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	dir := c.String("dir")
	if dir == "" {
		dir = a.Config.Loader.DocumentsDir
	}
	docs, err := a.Loader.LoadDirectory(dir)
	if err != nil {
		return err
	}
	if err := a.Index.Reset(c.Context); err != nil {
		return err
	}
	for _, doc := range docs {
		res, err := a.Ingest.Ingest(c.Context, doc.Metadata.Source, doc.Content)
		if err != nil {
			return fmt.Errorf("ingest %s failed: %w", doc.Metadata.Source, err)
		}
		printIngest(res)
	}
	fmt.Printf("rebuilt index from %s: %d documents, %d chunks\n", dir, len(docs), a.Index.Len())
	return nil
}

func askCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("a question is required", 2)
	}
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	env, err := a.Ask.Ask(c.Context, app.Query{Question: c.Args().First(), Role: c.String("role")})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

func statsCommand(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("index: %s at %s, embedding model %s, %d chunks\n",
		a.Config.Index.Store, a.Config.Index.Path, a.Index.EmbeddingModel(), a.Index.Len())
	printDocuments(a.Pipeline.Documents(c.String("role")))

	if n := c.Int("recent"); n > 0 {
		if a.MySQL == nil {
			return cli.Exit("--recent needs mysql.enabled = true", 2)
		}
		rows, err := repository.NewQueryLogRepository(a.MySQL).ListRecent(c.Context, "", n)
		if err != nil {
			return err
		}
		printQueries(rows)
	}
	return nil
}

func printIngest(res *app.IngestResult) {
	fmt.Printf("indexed %s (%s): %d chunks\n", res.Source, res.Department, res.ChunkCount)
}

func printDocuments(docs []model.DocumentSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tDEPARTMENT\tCHUNKS")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%d\n", d.Source, d.Department, d.Chunks)
	}
	_ = w.Flush()
}

func printQueries(rows []model.QueryLog) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tROLE\tCONFIDENCE\tSECONDS\tQUESTION")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%s\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.Role, r.Confidence, r.ResponseTime, r.Question)
	}
	_ = w.Flush()
}
