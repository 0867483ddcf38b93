package cli

import (
	"errors"
	"fmt"

	"finset/internal/aggregate"
	"finset/internal/budget"
	"finset/internal/core"
)

type BudgetCmd struct {
	Show BudgetShowCmd `cmd:"" default:"1" help:"Show the budget, its status and the checklist."`
	Set  BudgetSetCmd  `cmd:"" help:"Set the monthly budget (0 clears it)."`
	Item BudgetItemCmd `cmd:"" help:"Edit the budget checklist."`
}

type BudgetShowCmd struct{}

type budgetView struct {
	Budget  budget.Budget          `json:"budget"`
	Status  aggregate.BudgetStatus `json:"status"`
	Summary budget.Summary         `json:"summary"`
}

// Run compares the budget with the expenses of every cached transaction,
// the same figure the unfiltered dashboard shows.
func (c *BudgetShowCmd) Run(app *App) error {
	app.sync()

	m := app.controller.Budget()
	view := budgetView{
		Budget:  m.Budget(),
		Status:  app.controller.Dashboard(aggregate.Filter{}).Budget,
		Summary: m.Summary(),
	}
	if app.json {
		return app.printJSON(view)
	}

	fmt.Fprintf(app.out, "Budget: %s\n", core.FormatAmount(view.Budget.Total))
	fmt.Fprintf(app.out, "Status: %s (%s)\n", view.Status.Label, view.Status.Message)
	if len(view.Budget.Items) == 0 {
		return nil
	}

	fmt.Fprintln(app.out)
	tw := app.table("#", "PAID", "ITEM", "AMOUNT")
	for i, it := range view.Budget.Items {
		mark := "[ ]"
		if it.Paid {
			mark = "[x]"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, mark, it.Name, core.FormatAmount(it.Amount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(app.out, "\n%d of %d paid: %s paid, %s left\n",
		view.Summary.PaidCount, view.Summary.Count,
		core.FormatAmount(view.Summary.Paid), core.FormatAmount(view.Summary.Unpaid))
	return nil
}

type BudgetSetCmd struct {
	Amount string `arg:"" help:"Monthly budget, e.g. 1500."`
}

func (c *BudgetSetCmd) Run(app *App) error {
	total, err := core.ParseAmount(c.Amount)
	if err != nil {
		return errors.New("budget must be a non-negative number")
	}
	if err := app.controller.Budget().SetTotal(total); err != nil {
		return err
	}
	fmt.Fprintf(app.out, "Budget set to %s\n", core.FormatAmount(total))
	return nil
}

type BudgetItemCmd struct {
	Add    BudgetItemAddCmd    `cmd:"" help:"Add an unpaid item."`
	Remove BudgetItemRemoveCmd `cmd:"" help:"Remove an item by number."`
	Toggle BudgetItemToggleCmd `cmd:"" help:"Mark an item paid or unpaid."`
}

type BudgetItemAddCmd struct {
	Name   string `arg:"" help:"Item name."`
	Amount string `arg:"" help:"Item amount."`
}

func (c *BudgetItemAddCmd) Run(app *App) error {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return budget.ErrNegativeAmount
	}
	it, err := app.controller.Budget().AddItem(c.Name, amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out, "Added %s (%s)\n", it.Name, core.FormatAmount(it.Amount))
	return nil
}

type BudgetItemRemoveCmd struct {
	Number string `arg:"" help:"Item number as shown by budget show."`
}

func (c *BudgetItemRemoveCmd) Run(app *App) error {
	m := app.controller.Budget()
	items := m.Budget().Items
	i, err := parseIndex(c.Number, len(items))
	if err != nil {
		return err
	}
	if err := m.RemoveItem(i); err != nil {
		return err
	}
	fmt.Fprintf(app.out, "Removed %s\n", items[i].Name)
	return nil
}

type BudgetItemToggleCmd struct {
	Number string `arg:"" help:"Item number as shown by budget show."`
}

func (c *BudgetItemToggleCmd) Run(app *App) error {
	m := app.controller.Budget()
	i, err := parseIndex(c.Number, len(m.Budget().Items))
	if err != nil {
		return err
	}
	it, err := m.TogglePaid(i)
	if err != nil {
		return err
	}
	state := "unpaid"
	if it.Paid {
		state = "paid"
	}
	fmt.Fprintf(app.out, "%s marked %s\n", it.Name, state)
	return nil
}
