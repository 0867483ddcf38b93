package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"finset/internal/aggregate"
	"finset/internal/client"
	"finset/internal/core"
	"finset/internal/log"
	"finset/internal/state"
)

// ErrOffline is returned by commands that cannot work without the server.
var ErrOffline = errors.New("this command needs the server; drop --offline")

// Globals are the flags shared by every command.
type Globals struct {
	APIURL   string `name:"api-url" env:"FINSET_API_URL" default:"http://localhost:8080" help:"Base URL of the finset server."`
	State    string `name:"state" env:"FINSET_STATE" default:"~/.finset/state.json" type:"path" help:"Local state file (cache, theme, budget)."`
	Offline  bool   `help:"Work from the local state only."`
	JSON     bool   `name:"json" help:"Print JSON instead of tables."`
	LogLevel string `name:"log-level" env:"LOG_LEVEL" default:"warn" enum:"debug,info,warn,error" help:"Diagnostic log level (${enum})."`
}

// CLI is the finset-cli command grammar.
type CLI struct {
	Globals

	List    ListCmd    `cmd:"" help:"List transactions, newest first."`
	Add     AddCmd     `cmd:"" help:"Record an income or an expense."`
	Delete  DeleteCmd  `cmd:"" help:"Delete a transaction by id."`
	Refresh RefreshCmd `cmd:"" help:"Reload the transaction list from the server."`
	Summary SummaryCmd `cmd:"" help:"Totals, budget status and insights."`
	Rollup  RollupCmd  `cmd:"" help:"Expenses by category."`
	Budget  BudgetCmd  `cmd:"" help:"Monthly budget and checklist."`
	Chart   ChartCmd   `cmd:"" help:"Render a dashboard chart as SVG."`
	Theme   ThemeCmd   `cmd:"" help:"Show or change the chart theme."`
	Import  ImportCmd  `cmd:"" help:"Bulk import transactions from a JSON file."`
	Health  HealthCmd  `cmd:"" help:"Check that the server and its database answer."`
}

// Env is the process environment Execute runs in.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	// Now defaults to time.Now.
	Now func() time.Time
	// HTTPClient replaces the client's default http.Client.
	HTTPClient *http.Client
	// Exit is called by kong after --help; nil keeps os.Exit.
	Exit func(int)
}

// App is bound to every command's Run method.
type App struct {
	ctx        context.Context
	out        io.Writer
	errOut     io.Writer
	json       bool
	offline    bool
	controller *state.Controller
	client     *client.Client
	logger     *log.Logger
}

// Execute parses args and runs the selected command.
func Execute(ctx context.Context, args []string, env Env) error {
	if env.Stdout == nil {
		env.Stdout = os.Stdout
	}
	if env.Stderr == nil {
		env.Stderr = os.Stderr
	}
	if env.Now == nil {
		env.Now = time.Now
	}

	var cli CLI
	opts := []kong.Option{
		kong.Name("finset"),
		kong.Description("Personal income and expense tracker."),
		kong.Writers(env.Stdout, env.Stderr),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	}
	if env.Exit != nil {
		opts = append(opts, kong.Exit(env.Exit))
	}
	parser, err := kong.New(&cli, opts...)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	app, err := newApp(ctx, cli.Globals, env)
	if err != nil {
		return err
	}
	return kctx.Run(app)
}

func newApp(ctx context.Context, g Globals, env Env) (*App, error) {
	level, _ := log.ParseLevel(g.LogLevel)
	logger := log.New(log.Config{Level: level, Output: env.Stderr, Component: log.ComponentCLI})

	store, err := state.OpenLocalStore(g.State)
	if err != nil {
		logger.Warn("Starting from an empty local state", log.FieldError, err)
	}

	app := &App{
		ctx:     ctx,
		out:     env.Stdout,
		errOut:  env.Stderr,
		json:    g.JSON,
		offline: g.Offline,
		logger:  logger,
	}

	var api state.API
	if !g.Offline {
		opts := []client.Option{client.WithLogger(logger)}
		if env.HTTPClient != nil {
			opts = append(opts, client.WithHTTPClient(env.HTTPClient))
		}
		app.client, err = client.New(g.APIURL, opts...)
		if err != nil {
			return nil, err
		}
		api = app.client
	}

	app.controller = state.NewController(store, api, state.WithLogger(logger), state.WithClock(env.Now))
	n := app.controller.Load()
	logger.Debug("Loaded cached transactions", log.FieldCount, n, "path", store.Path())
	return app, nil
}

// sync refreshes from the server when online; failures keep the cache.
func (a *App) sync() {
	if a.offline {
		return
	}
	a.warn(a.controller.Refresh(a.ctx).Warning)
}

func (a *App) warn(msg string) {
	if msg != "" {
		fmt.Fprintln(a.errOut, "warning:", msg)
	}
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) table(header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

// FilterFlags select the transactions a report works on.
type FilterFlags struct {
	Type     string `default:"all" enum:"all,income,expense" help:"Transaction type (${enum})."`
	Category string `help:"Only this category."`
	Start    string `help:"First date, YYYY-MM-DD."`
	End      string `help:"Last date, YYYY-MM-DD."`
	Search   string `short:"q" help:"Match category or note."`
}

func (f FilterFlags) filter() (aggregate.Filter, error) {
	out := aggregate.Filter{
		Type:     f.Type,
		Category: strings.TrimSpace(f.Category),
		Search:   strings.TrimSpace(f.Search),
	}
	for _, p := range []struct {
		raw string
		dst *core.Date
	}{{f.Start, &out.Start}, {f.End, &out.End}} {
		if strings.TrimSpace(p.raw) == "" {
			continue
		}
		d, err := core.ParseDate(strings.TrimSpace(p.raw))
		if err != nil {
			return aggregate.Filter{}, core.ErrInvalidDate
		}
		*p.dst = d
	}
	return out, nil
}

type ListCmd struct {
	FilterFlags `embed:""`
	Limit       int `short:"n" help:"Show at most this many rows (0 for all)."`
}

func (c *ListCmd) Run(app *App) error {
	f, err := c.filter()
	if err != nil {
		return err
	}
	app.sync()

	txs := app.controller.Filtered(f)
	if c.Limit > 0 && len(txs) > c.Limit {
		txs = txs[:c.Limit]
	}
	if app.json {
		return app.printJSON(txs)
	}
	if len(txs) == 0 {
		fmt.Fprintln(app.out, "No transactions.")
		return nil
	}

	tw := app.table("ID", "DATE", "TYPE", "CATEGORY", "METHOD", "AMOUNT", "NOTE")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date, tx.Type, tx.Category, tx.Method, signed(tx), tx.Note)
	}
	return tw.Flush()
}

func signed(tx core.Transaction) string {
	if tx.IsExpense() {
		return "-" + core.FormatAmount(tx.Amount)
	}
	return "+" + core.FormatAmount(tx.Amount)
}

type AddCmd struct {
	Type     string `arg:"" enum:"income,expense" help:"income or expense."`
	Amount   string `arg:"" help:"Positive amount, e.g. 12.50."`
	Category string `short:"c" help:"Category (default Uncategorized)."`
	Date     string `short:"d" help:"Date YYYY-MM-DD (default today)."`
	Method   string `short:"m" help:"Payment method (default Cash)."`
	Note     string `help:"Free text note."`
}

func (c *AddCmd) Run(app *App) error {
	res, err := app.controller.Add(app.ctx, core.TransactionInput{
		Type:     c.Type,
		Amount:   c.Amount,
		Category: c.Category,
		Date:     c.Date,
		Method:   c.Method,
		Note:     c.Note,
	})
	if err != nil {
		return err
	}
	app.warn(res.Warning)
	if app.json {
		return app.printJSON(res)
	}
	tx := res.Transaction
	fmt.Fprintf(app.out, "Added %s %s %s %s on %s\n", tx.ID, tx.Type, core.FormatAmount(tx.Amount), tx.Category, tx.Date)
	return nil
}

type DeleteCmd struct {
	ID string `arg:"" help:"Transaction id."`
}

func (c *DeleteCmd) Run(app *App) error {
	res, err := app.controller.Delete(app.ctx, c.ID)
	if err != nil {
		return err
	}
	app.warn(res.Warning)
	if app.json {
		return app.printJSON(res)
	}
	fmt.Fprintf(app.out, "Deleted %s\n", strings.TrimSpace(c.ID))
	return nil
}

type RefreshCmd struct{}

func (c *RefreshCmd) Run(app *App) error {
	res := app.controller.Refresh(app.ctx)
	app.warn(res.Warning)
	if app.json {
		return app.printJSON(res)
	}
	if res.Synced {
		fmt.Fprintf(app.out, "Loaded %d transactions from the server\n", res.Count)
	} else {
		fmt.Fprintf(app.out, "Using %d cached transactions\n", res.Count)
	}
	return nil
}

type SummaryCmd struct {
	FilterFlags `embed:""`
}

func (c *SummaryCmd) Run(app *App) error {
	f, err := c.filter()
	if err != nil {
		return err
	}
	app.sync()

	d := app.controller.Dashboard(f)
	if app.json {
		return app.printJSON(d)
	}

	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Income\t%s\n", core.FormatAmount(d.Totals.Income))
	fmt.Fprintf(tw, "Expense\t%s\n", core.FormatAmount(d.Totals.Expense))
	fmt.Fprintf(tw, "Balance\t%s\n", core.FormatAmount(d.Totals.Balance))
	fmt.Fprintf(tw, "Transactions\t%d\n", d.Totals.Count)
	fmt.Fprintf(tw, "Budget\t%s: %s\n", d.Budget.Label, d.Budget.Message)
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(d.Lines) > 0 {
		fmt.Fprintln(app.out)
		for _, line := range d.Lines {
			fmt.Fprintln(app.out, "- "+line)
		}
	}
	return nil
}

type RollupCmd struct {
	FilterFlags `embed:""`
}

func (c *RollupCmd) Run(app *App) error {
	f, err := c.filter()
	if err != nil {
		return err
	}
	app.sync()

	d := app.controller.Dashboard(f)
	if app.json {
		return app.printJSON(d.Rollup)
	}
	if len(d.Rollup) == 0 {
		fmt.Fprintln(app.out, "No expenses.")
		return nil
	}

	tw := app.table("CATEGORY", "TOTAL", "SHARE")
	for _, row := range d.Rollup {
		share := 0.0
		if d.Totals.Expense.IsPositive() {
			share = row.Total.Div(d.Totals.Expense).InexactFloat64() * 100
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", row.Category, core.FormatAmount(row.Total), share)
	}
	return tw.Flush()
}

type HealthCmd struct{}

func (c *HealthCmd) Run(app *App) error {
	if app.client == nil {
		return ErrOffline
	}
	h, err := app.client.Health(app.ctx)
	if err != nil {
		return fmt.Errorf("server unhealthy: %w", err)
	}
	if app.json {
		return app.printJSON(h)
	}
	fmt.Fprintf(app.out, "%s (database time %s)\n", h.Status, h.Time.Format(time.RFC3339))
	return nil
}

type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"JSON array of transactions, or an object with a transactions array."`
}

func (c *ImportCmd) Run(app *App) error {
	if app.client == nil {
		return ErrOffline
	}
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	recs, err := decodeImport(data)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}

	txs := core.NormalizeAll(recs, app.controller.Today())
	res, err := app.client.Import(app.ctx, txs)
	if err != nil {
		return err
	}
	app.logger.Info("Import finished", log.FieldOperation, log.OpImport, log.FieldCount, res.Inserted)
	app.sync()

	if app.json {
		return app.printJSON(res)
	}
	fmt.Fprintf(app.out, "Imported %d of %d transactions (%d skipped)\n", res.Inserted, res.Total, res.Skipped)
	return nil
}

func decodeImport(data []byte) ([]map[string]any, error) {
	var recs []map[string]any
	if err := json.Unmarshal(data, &recs); err == nil {
		return recs, nil
	}
	var wrapped struct {
		Transactions []map[string]any `json:"transactions"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Transactions == nil {
		return nil, errors.New("no transactions array")
	}
	return wrapped.Transactions, nil
}

type ThemeCmd struct {
	Value string `arg:"" optional:"" help:"light, dark or toggle; prints the current theme when omitted."`
}

func (c *ThemeCmd) Run(app *App) error {
	theme := app.controller.Theme()
	var err error
	switch strings.ToLower(strings.TrimSpace(c.Value)) {
	case "":
	case "toggle":
		theme, err = app.controller.ToggleTheme()
	case state.ThemeLight, state.ThemeDark:
		theme = strings.ToLower(strings.TrimSpace(c.Value))
		err = app.controller.SetTheme(theme)
	default:
		return fmt.Errorf("unknown theme %q: use light, dark or toggle", c.Value)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(app.out, theme)
	return nil
}

func parseIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("item must be a number between 1 and %d", n)
	}
	return i - 1, nil
}
