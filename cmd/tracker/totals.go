package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/mkweon/asset-tracker/client/derive"
	"github.com/mkweon/asset-tracker/client/state"
	"github.com/mkweon/asset-tracker/internal/model"
)

type totalsCmd struct {
	period string
	pages  int
}

func (*totalsCmd) Name() string     { return "totals" }
func (*totalsCmd) Synopsis() string { return "show the portfolio total over time" }
func (*totalsCmd) Usage() string {
	return `tracker totals [-period daily|weekly|monthly] [-pages n]

  Prints the aggregated totals series newest first, one page per -pages.
`
}

func (c *totalsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "period", model.PeriodDaily, "series granularity")
	f.IntVar(&c.pages, "pages", 1, "number of pages to load")
}

func (c *totalsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cli, err := newClient()
	if err != nil {
		return fail(err)
	}

	assets := state.NewAssetStore(cli)
	store := state.NewPeriodStore(cli, assets)
	if err := store.LoadTotals(ctx, 0, false, c.period); err != nil {
		return fail(err)
	}
	for page := 1; page < c.pages && store.HasMore(); page++ {
		if err := store.LoadMore(ctx); err != nil {
			return fail(err)
		}
	}

	points := store.Points()
	for i, p := range points {
		// The next row is the chronologically previous point.
		var prev *float64
		if i+1 < len(points) {
			prev = &points[i+1].TotalKRW
		}
		fmt.Printf("%s ~ %s  %12.0f원 %s\n", p.PeriodStart, p.PeriodEnd, p.TotalKRW, deltaMark(p.TotalKRW, prev))
	}
	if store.HasMore() {
		fmt.Println("(더 보려면 -pages를 올리세요)")
	}
	return subcommands.ExitSuccess
}

func deltaMark(current float64, previous *float64) string {
	switch derive.Classify(current, previous) {
	case derive.DeltaUp:
		return "▲"
	case derive.DeltaDown:
		return "▼"
	default:
		return "-"
	}
}

type snapshotCmd struct{}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "refresh prices and record a period point" }
func (*snapshotCmd) Usage() string {
	return `tracker snapshot

  Refreshes all prices, persists today's totals and reloads the series.
`
}
func (*snapshotCmd) SetFlags(*flag.FlagSet) {}

func (c *snapshotCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cli, err := newClient()
	if err != nil {
		return fail(err)
	}

	assets := state.NewAssetStore(cli)
	store := state.NewPeriodStore(cli, assets)
	message, err := store.Snapshot(ctx)
	if err != nil {
		return fail(err)
	}
	fmt.Println(message)
	return subcommands.ExitSuccess
}

type allocCmd struct{}

func (*allocCmd) Name() string     { return "alloc" }
func (*allocCmd) Synopsis() string { return "show allocation by category" }
func (*allocCmd) Usage() string {
	return `tracker alloc

  Buckets holdings into 미국주식 / 국내주식 / 비트코인 / 기타 by KRW value.
`
}
func (*allocCmd) SetFlags(*flag.FlagSet) {}

func (c *allocCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cli, err := newClient()
	if err != nil {
		return fail(err)
	}

	store := state.NewAssetStore(cli)
	if err := store.Load(ctx); err != nil {
		return fail(err)
	}

	for _, bucket := range derive.Allocate(store.Summary().Assets) {
		fmt.Printf("%-6s %12.0f원 %5.1f%%\n", bucket.Label, bucket.ValueKRW, bucket.Share)
	}
	return subcommands.ExitSuccess
}
