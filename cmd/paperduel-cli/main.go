package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"paperduel/internal/util"
	"paperduel/pkg/paperduel"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: paperduel-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version                      Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  run <battle> [asset] [strat] Start a battle run and wait for the result\n")
		fmt.Fprintf(os.Stderr, "  show <runId>                 Show a run result\n")
		fmt.Fprintf(os.Stderr, "  runs                         List stored run IDs\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  PAPERDUEL_URL  Server base URL (default http://localhost:3001)\n\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	baseURL := "http://localhost:3001"
	if u := os.Getenv("PAPERDUEL_URL"); u != "" {
		baseURL = u
	}
	client := paperduel.NewClient(baseURL)
	ctx := context.Background()

	switch os.Args[1] {
	case "version":
		fmt.Printf("paperduel-cli %s\n", version)

	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "run requires a battle ID")
			os.Exit(1)
		}
		battleID := os.Args[2]
		asset, strat := "", ""
		if len(os.Args) > 3 {
			asset = os.Args[3]
		}
		if len(os.Args) > 4 {
			strat = os.Args[4]
		}

		// The server may still be coming up; retry transient failures.
		var started *paperduel.StartedRun
		err := util.Retry(ctx, 3, 500*time.Millisecond, func() error {
			var err error
			started, err = client.StartRun(ctx, battleID, asset, strat)
			return err
		})
		if err != nil {
			fatal("starting run: %v", err)
		}
		fmt.Printf("started run %s (%s / %s)\n", started.RunID, started.Symbol, started.Strategy)

		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		run, err := client.WaitForRun(waitCtx, started.RunID, time.Second)
		if err != nil {
			fatal("waiting for run: %v", err)
		}
		printRun(run)

	case "show":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "show requires a run ID")
			os.Exit(1)
		}
		run, err := client.GetRun(ctx, os.Args[2])
		if err != nil {
			fatal("fetching run: %v", err)
		}
		if run.Status == paperduel.StatusQueued {
			fmt.Println("status: queued")
			return
		}
		printRun(run)

	case "runs":
		ids, err := client.ListRuns(ctx)
		if err != nil {
			fatal("listing runs: %v", err)
		}
		for _, id := range ids {
			fmt.Println(id)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func printRun(run *paperduel.Run) {
	fmt.Printf("run:           %s\n", run.RunID)
	fmt.Printf("status:        %s\n", run.Status)
	fmt.Printf("final pnl:     %.2f\n", run.FinalPnl)
	fmt.Printf("return:        %.2f%%\n", run.ReturnPct)
	fmt.Printf("max drawdown:  %.2f%%\n", run.MaxDrawdownPct)
	fmt.Printf("trades:        %d\n", len(run.Trades))
	for _, f := range run.Trades {
		fmt.Printf("  %s %-4s %d @ %.2f (fee %.2f)\n",
			f.Timestamp.Format("2006-01-02 15:04"), f.Side, f.Qty, f.Price, f.Commission)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
