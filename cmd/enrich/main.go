// Command enrich runs the enrichment workflow from the terminal: one or more
// tickers in, per-ticker outcomes out. It shares the server's configuration
// and therefore its quota ledgers when a database is configured.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stocklens/internal/cli"
	"stocklens/internal/config"
	"stocklens/internal/svc"
	"stocklens/pkg/provider"
)

var (
	configFile = flag.String("f", "etc/stocklens.yaml", "the config file")
	cachedOnly = flag.Bool("cached", false, "read cached records only, no provider calls")
	retry      = flag.Bool("retry", false, "bypass backoff windows for this run")
	timeout    = flag.Duration("timeout", 2*time.Minute, "overall run timeout")
	asJSON     = flag.Bool("json", false, "emit records as JSON")
)

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: enrich [flags] TICKER [TICKER...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.MustLoad(*configFile)
	cli.LogConfigSummary(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	orch := svc.NewServiceContext(*cfg).Orchestrator

	failed := 0
	for _, ticker := range flag.Args() {
		ticker = strings.TrimSpace(ticker)
		if ticker == "" {
			continue
		}
		rec, err := fetch(ctx, orch, ticker)
		if err != nil {
			log.Printf("%s: %v", ticker, err)
			failed++
			continue
		}
		printRecord(rec)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

type enricher interface {
	Enrich(ctx context.Context, ticker string) (*provider.StockRecord, error)
	TriggerRetry(ctx context.Context, ticker string) (*provider.StockRecord, error)
	GetCached(ctx context.Context, ticker string) (*provider.StockRecord, bool, error)
}

func fetch(ctx context.Context, orch enricher, ticker string) (*provider.StockRecord, error) {
	switch {
	case *cachedOnly:
		rec, ok, err := orch.GetCached(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("not cached")
		}
		return rec, nil
	case *retry:
		return orch.TriggerRetry(ctx, ticker)
	default:
		return orch.Enrich(ctx, ticker)
	}
}

func printRecord(rec *provider.StockRecord) {
	if *asJSON {
		raw, err := json.Marshal(rec)
		if err != nil {
			log.Printf("%s: encode: %v", rec.Ticker, err)
			return
		}
		fmt.Println(string(raw))
		return
	}
	fmt.Printf("%-8s %-40s %s via %s\n", rec.Ticker, rec.CompanyName, rec.LastUpdated.Format(time.RFC3339), rec.SourceProvider)
}
