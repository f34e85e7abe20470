// Command snapshot fetches the current orders and positions once and prints them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"tradedash/internal/config"
	"tradedash/internal/dashboard"
	"tradedash/internal/engine"
	"tradedash/internal/exchange/telemetry"
	"tradedash/internal/format"
	"tradedash/internal/logger"
	"tradedash/internal/normalize"
	"tradedash/internal/store"
)

func main() {
	timeout := flag.Duration("timeout", 15*time.Second, "overall deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logCfg := cfg.Runtime.Log.LoggerConfig()
	logCfg.Level = "warn"
	log := logger.New(logCfg)

	degraded := normalize.NewCounter()
	normalizer := normalize.New(degraded)
	st := store.New(normalizer)
	client := telemetry.New(*cfg, normalizer, nil, log)
	eng := engine.New(cfg, client, client, st, normalizer, nil, log)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	health := client.Health(ctx)
	fmt.Printf("server: %s (version %s) at %s\n", health.Data.Status, health.Data.Version,
		format.DateTime(float64(health.Data.Timestamp), nil))

	if err := eng.LoadInitialData(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "load failed:", err)
		os.Exit(1)
	}

	printView(dashboard.BuildView(st.Snapshot(), time.Local))

	if n := degraded.Total(normalize.KindOrders) + degraded.Total(normalize.KindPositions); n > 0 {
		fmt.Fprintf(os.Stderr, "\n%d malformed payload(s) were skipped\n", n)
	}
}

func printView(view dashboard.View) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "\nORDERS (%d)\n", len(view.Orders))
	fmt.Fprintln(w, "ID\tSYMBOL\tSIDE\tTYPE\tPRICE\tFILLED\tSTATUS\tTIME")
	for _, o := range view.Orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s (%s%%)\t%s\t%s\n",
			o.ShortID, o.Symbol, o.Side, o.Type, o.Price, o.Size, o.FillPercent, o.Status, o.Created)
	}

	fmt.Fprintf(w, "\nPOSITIONS (%d)\ttotal PnL %s\n", len(view.Positions), view.TotalPnL)
	fmt.Fprintln(w, "SYMBOL\tSIDE\tSIZE\tENTRY\tMARK\tPNL\tLIQ")
	for _, p := range view.Positions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s (%s)\t%s\n",
			p.Symbol, p.Side, p.Size, p.AvgPrice, p.MarkPrice, p.PnL, p.PnLPercent, p.Liquidation)
	}
}
