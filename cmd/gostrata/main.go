package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brunobiangulo/gostrata"
	"github.com/brunobiangulo/gostrata/block"
	"github.com/brunobiangulo/gostrata/section"
	"github.com/brunobiangulo/gostrata/table"
)

// resultView shapes one document's outcome for stdout. The enriched
// block forest is large, so it is emitted only on request.
type resultView struct {
	File        string                `json:"file"`
	DocumentID  string                `json:"document_id,omitempty"`
	Error       string                `json:"error,omitempty"`
	Hierarchy   *section.Hierarchy    `json:"hierarchy,omitempty"`
	Diagnostics []gostrata.Diagnostic `json:"diagnostics,omitempty"`
	Stats       *gostrata.Stats       `json:"stats,omitempty"`
	Document    *block.Document       `json:"document,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")
	full := flag.Bool("full", false, "Include the enriched block forest in the output")
	preview := flag.Bool("preview", false, "Render merged tables to stderr")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: gostrata [flags] blocks.json [blocks.json ...]")
		os.Exit(1)
	}

	cfg, err := gostrata.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	processor, err := gostrata.New(cfg, gostrata.WithLogger(slog.Default()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating processor: %v\n", err)
		os.Exit(1)
	}

	files := flag.Args()
	docs := make([]*block.Document, len(files))
	for i, path := range files {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening %s: %v\n", path, err)
			os.Exit(1)
		}
		doc, err := block.DecodeDocument(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading %s: %v\n", path, err)
			os.Exit(1)
		}
		docs[i] = doc
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := processor.ProcessAll(ctx, docs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "structuring: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	views := make([]resultView, len(results))
	for i := range results {
		res := &results[i]
		views[i].File = files[i]
		views[i].DocumentID = docs[i].ID
		if res.Err != nil {
			views[i].Error = res.Err.Error()
			failed++
			continue
		}
		views[i].Hierarchy = res.Hierarchy
		views[i].Diagnostics = res.Diagnostics
		views[i].Stats = &res.Stats
		if *full {
			views[i].Document = res.Document
		}
		if *preview {
			for _, t := range res.Document.Tables() {
				fmt.Fprintf(os.Stderr, "%s table %s (page %d):\n%s\n", files[i], t.ID, t.Page,
					table.Preview(t.Table, 10))
			}
		}
	}

	out, _ := json.MarshalIndent(views, "", "  ")
	fmt.Println(string(out))

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d documents failed\n", failed, len(files))
		os.Exit(1)
	}
}
