package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/OmniMCP-AI/formulagraph"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "fgcalc:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "fgcalc",
		Usage: "Evaluate and inspect formula workbooks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "options",
				Aliases: []string{"o"},
				Usage:   "TOML file with engine options",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log engine diagnostics to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "eval",
				Usage:     "Print the computed values of one or more workbooks",
				ArgsUsage: "WORKBOOK...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "formulas",
						Usage: "Print formulas next to their values",
					},
				},
				Action: evalAction,
			},
			{
				Name:      "order",
				Usage:     "Print the evaluation order of a workbook's formulas",
				ArgsUsage: "WORKBOOK",
				Action:    orderAction,
			},
			{
				Name:      "deps",
				Usage:     "Print the precedents and dependents of a cell",
				ArgsUsage: "WORKBOOK CELL",
				Action:    depsAction,
			},
		},
	}
}

// buildEngines loads and builds every workbook concurrently. Each engine is
// owned by one goroutine until Wait returns.
func buildEngines(ctx context.Context, c *cli.Context, paths []string) ([]*formulagraph.Engine, error) {
	opts, err := loadOptions(c.String("options"), c.Bool("verbose"))
	if err != nil {
		return nil, err
	}
	engines := make([]*formulagraph.Engine, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			wb, err := loadWorkbook(path)
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e, err := wb.build(opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			engines[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		closeAll(engines)
		return nil, err
	}
	return engines, nil
}

func closeAll(engines []*formulagraph.Engine) {
	for _, e := range engines {
		if e != nil {
			_ = e.Close()
		}
	}
}

func buildOne(c *cli.Context) (*formulagraph.Engine, error) {
	if c.NArg() < 1 {
		return nil, fmt.Errorf("missing workbook argument")
	}
	engines, err := buildEngines(c.Context, c, []string{c.Args().First()})
	if err != nil {
		return nil, err
	}
	return engines[0], nil
}

func evalAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("missing workbook argument")
	}
	paths := c.Args().Slice()
	engines, err := buildEngines(c.Context, c, paths)
	if err != nil {
		return err
	}
	defer closeAll(engines)
	for i, e := range engines {
		if len(paths) > 1 {
			fmt.Fprintf(c.App.Writer, "# %s\n", paths[i])
		}
		if _, err := e.WaitForAsync(c.Context); err != nil {
			return err
		}
		if err := printValues(c.App.Writer, e, c.Bool("formulas")); err != nil {
			return err
		}
	}
	return nil
}

func printValues(w io.Writer, e *formulagraph.Engine, formulas bool) error {
	for _, name := range e.Sheets() {
		id, _ := e.SheetID(name)
		values, err := e.SheetValues(id)
		if err != nil {
			return err
		}
		for r, row := range values {
			for col, v := range row {
				if v.IsEmpty() {
					continue
				}
				addr := formulagraph.Addr(id, col, r)
				line := fmt.Sprintf("%s\t%s", e.FormatAddress(addr), v.Text())
				if formulas {
					if f, _ := e.CellFormula(addr); f != "" {
						line += "\t" + f
					}
				}
				fmt.Fprintln(w, line)
			}
		}
	}
	return nil
}

func orderAction(c *cli.Context) error {
	e, err := buildOne(c)
	if err != nil {
		return err
	}
	defer e.Close()
	for i, group := range e.EvaluationOrder() {
		cells := make([]string, len(group))
		for j, addr := range group {
			cells[j] = e.FormatAddress(addr)
		}
		suffix := ""
		if len(group) > 1 {
			suffix = " (cycle)"
		}
		fmt.Fprintf(c.App.Writer, "%d\t%s%s\n", i+1, strings.Join(cells, ", "), suffix)
	}
	return nil
}

func depsAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: fgcalc deps WORKBOOK CELL")
	}
	e, err := buildOne(c)
	if err != nil {
		return err
	}
	defer e.Close()
	addr, err := e.Address(c.Args().Get(1))
	if err != nil {
		return err
	}
	precedents, err := e.Precedents(addr)
	if err != nil {
		return err
	}
	dependents, err := e.Dependents(addr)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "%s\n", e.FormatAddress(addr))
	for _, rng := range precedents {
		name, _ := e.SheetName(rng.Sheet())
		fmt.Fprintf(w, "  reads\t%s!%s\n", name, rng)
	}
	for _, a := range dependents {
		fmt.Fprintf(w, "  read by\t%s\n", e.FormatAddress(a))
	}
	return nil
}
