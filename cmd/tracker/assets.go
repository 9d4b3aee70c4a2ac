package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/mkweon/asset-tracker/client/derive"
	"github.com/mkweon/asset-tracker/client/state"
	"github.com/mkweon/asset-tracker/internal/model"
)

type listCmd struct {
	all   bool
	query string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "show the portfolio, sorted by value" }
func (*listCmd) Usage() string {
	return `tracker list [-all] [-q <query>]

  Lists holdings sorted by descending KRW value. Assets under 300,000 KRW
  are hidden unless -all is given.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "include small assets")
	f.StringVar(&c.query, "q", "", "filter by name or symbol substring")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cli, err := newClient()
	if err != nil {
		return fail(err)
	}

	store := state.NewAssetStore(cli)
	if err := store.Load(ctx); err != nil {
		return fail(err)
	}
	summary := store.Summary()

	assets := derive.SortAssets(summary.Assets)
	assets = derive.Search(assets, c.query)
	hidden := 0
	if !c.all {
		assets, hidden = derive.FilterSmall(assets)
	}

	for _, a := range assets {
		fmt.Println(formatAsset(a))
	}
	if hidden > 0 {
		fmt.Printf("(%d개 자산 숨김, -all로 표시)\n", hidden)
	}

	fmt.Printf("\n총 자산: %.0f원", summary.TotalKRW)
	if summary.DailyChangeKRW != 0 {
		fmt.Printf(" (전일 대비 %+.0f원)", summary.DailyChangeKRW)
	}
	fmt.Println()
	if summary.LastRefreshed != nil {
		fmt.Printf("마지막 갱신: %s\n", derive.FormatRelative(*summary.LastRefreshed, time.Now()))
	}
	return subcommands.ExitSuccess
}

func formatAsset(a model.Asset) string {
	value := "no data"
	if a.ValueKRW != nil {
		value = fmt.Sprintf("%.0f원", *a.ValueKRW)
	}
	return fmt.Sprintf("%-20s %-10s %-10s x%-8g %s", a.Name, a.Symbol, a.AssetType, a.Quantity, value)
}

type addCmd struct {
	name      string
	assetType string
	label     string
	symbol    string
	qty       float64
	price     float64
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a holding" }
func (*addCmd) Usage() string {
	return `tracker add -name <name> -type stock|kr_stock|crypto|cash|custom [-label <sub-type>] [-symbol <symbol>] -qty <n> [-price <krw>]

  Custom assets require -label and a positive -price; crypto defaults its
  symbol to BTC, cash to CASH.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "display name")
	f.StringVar(&c.assetType, "type", model.TypeStock, "asset type")
	f.StringVar(&c.label, "label", "", "custom sub-type label")
	f.StringVar(&c.symbol, "symbol", "", "ticker symbol")
	f.Float64Var(&c.qty, "qty", 0, "quantity (positive integer)")
	f.Float64Var(&c.price, "price", 0, "unit price in KRW (custom assets)")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cli, err := newClient()
	if err != nil {
		return fail(err)
	}

	form := state.AddForm{
		Name:        c.name,
		Type:        c.assetType,
		CustomLabel: c.label,
		Symbol:      c.symbol,
		Quantity:    c.qty,
	}
	if c.price > 0 {
		form.PriceKRW = &c.price
	}

	store := state.NewAssetStore(cli)
	if err := store.Add(ctx, form); err != nil {
		return fail(err)
	}
	fmt.Printf("Added %s\n", c.name)
	return subcommands.ExitSuccess
}

type editCmd struct {
	id        string
	name      string
	symbol    string
	assetType string
	qty       float64
	price     float64
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "edit a holding" }
func (*editCmd) Usage() string {
	return `tracker edit -id <asset-id> -qty <n> [-name ...] [-symbol ...] [-type ...] [-price <krw>]
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "asset id")
	f.StringVar(&c.name, "name", "", "display name")
	f.StringVar(&c.symbol, "symbol", "", "ticker symbol")
	f.StringVar(&c.assetType, "type", "", "asset type")
	f.Float64Var(&c.qty, "qty", 0, "quantity")
	f.Float64Var(&c.price, "price", 0, "unit price in KRW (custom assets)")
}

func (c *editCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		return subcommands.ExitUsageError
	}

	cli, err := newClient()
	if err != nil {
		return fail(err)
	}

	store := state.NewAssetStore(cli)
	if err := store.Load(ctx); err != nil {
		return fail(err)
	}

	// Start the edit from the current server state so omitted flags keep
	// their value.
	var current *model.Asset
	for _, a := range store.Summary().Assets {
		if a.ID == c.id {
			found := a
			current = &found
			break
		}
	}
	if current == nil {
		return fail(fmt.Errorf("asset %s not found", c.id))
	}

	form := state.EditForm{
		Name:      current.Name,
		Symbol:    current.Symbol,
		AssetType: current.AssetType,
		Quantity:  current.Quantity,
	}
	if c.name != "" {
		form.Name = c.name
	}
	if c.symbol != "" {
		form.Symbol = c.symbol
	}
	if c.assetType != "" {
		form.AssetType = c.assetType
	}
	if c.qty > 0 {
		form.Quantity = c.qty
	}
	if c.price > 0 {
		form.PriceKRW = &c.price
	}

	if err := store.SaveEdit(ctx, c.id, form); err != nil {
		return fail(err)
	}
	fmt.Printf("Updated %s\n", form.Name)
	return subcommands.ExitSuccess
}

type rmCmd struct {
	id  string
	yes bool
}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "delete a holding" }
func (*rmCmd) Usage() string {
	return `tracker rm -id <asset-id> [-y]

  Asks for confirmation unless -y is given.
`
}

func (c *rmCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "asset id")
	f.BoolVar(&c.yes, "y", false, "skip confirmation")
}

func (c *rmCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		return subcommands.ExitUsageError
	}

	cli, err := newClient()
	if err != nil {
		return fail(err)
	}

	confirm := func() bool {
		if c.yes {
			return true
		}
		fmt.Print("정말 삭제하시겠습니까? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		return strings.EqualFold(strings.TrimSpace(answer), "y")
	}

	store := state.NewAssetStore(cli)
	if err := store.Delete(ctx, c.id, confirm); err != nil {
		return fail(err)
	}
	fmt.Println("Deleted")
	return subcommands.ExitSuccess
}

type refreshCmd struct{}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "re-fetch all prices" }
func (*refreshCmd) Usage() string {
	return `tracker refresh
`
}
func (*refreshCmd) SetFlags(*flag.FlagSet) {}

func (c *refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cli, err := newClient()
	if err != nil {
		return fail(err)
	}

	store := state.NewAssetStore(cli)
	message, err := store.Refresh(ctx)
	if err != nil {
		return fail(err)
	}
	fmt.Println(message)

	// Provider failures are partial degradation, shown as warnings.
	for _, e := range store.Summary().Errors {
		fmt.Fprintf(os.Stderr, "경고: %s\n", e)
	}
	return subcommands.ExitSuccess
}
