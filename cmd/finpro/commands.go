package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/rafhmansano/finpro/internal/config"
	"github.com/rafhmansano/finpro/internal/dividend"
	"github.com/rafhmansano/finpro/internal/domain"
	"github.com/rafhmansano/finpro/internal/export"
	"github.com/rafhmansano/finpro/internal/importer"
	"github.com/rafhmansano/finpro/internal/portfolio"
	"github.com/rafhmansano/finpro/internal/render"
)

func importCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "import a CSV or XLSX ledger file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			userFlag,
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "trades or dividends", Required: true},
			&cli.StringFlag{Name: "format", Usage: "csv or xlsx (default: detect)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one FILE argument")
			}
			kind, err := importer.ParseKind(c.String("kind"))
			if err != nil {
				return err
			}

			path := c.Args().First()
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()

			body := bufio.NewReader(f)
			format := importer.Format(strings.ToLower(c.String("format")))
			if format == "" {
				head, _ := body.Peek(4)
				format = importer.DetectFormat(path, head)
			}

			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				res, err := importer.Import(c.Context, rt.store, c.String("user"), kind, format, body)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%d rows read, %d imported, %d already present\n", res.Rows, res.Inserted, res.Duplicates)
				for _, w := range res.Warnings {
					fmt.Fprintf(c.App.Writer, "warning: %s\n", w)
				}
				return nil
			})
		},
	}
}

func positionsCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "positions",
		Usage: "show open positions",
		Flags: viewFlags(),
		Action: func(c *cli.Context) error {
			at, err := asOf(c)
			if err != nil {
				return err
			}
			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				res, err := rt.portfolio.Positions(c.Context, c.String("user"), at)
				if err != nil {
					return err
				}
				md, err := render.Positions(res, at)
				if err != nil {
					return err
				}
				return printMarkdown(c, md)
			})
		},
	}
}

func valuationsCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "valuations",
		Usage: "estimate fair values and BUY/HOLD/SELL signals",
		Flags: viewFlags(),
		Action: func(c *cli.Context) error {
			at, err := asOf(c)
			if err != nil {
				return err
			}
			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				batch, err := rt.portfolio.Valuations(c.Context, c.String("user"), at)
				if err != nil {
					return err
				}
				md, err := render.Valuations(batch, at)
				if err != nil {
					return err
				}
				return printMarkdown(c, md)
			})
		},
	}
}

func dividendsCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "dividends",
		Usage: "summarize dividends received",
		Flags: []cli.Flag{
			userFlag, rawFlag, widthFlag,
			&cli.IntFlag{Name: "months", Usage: "trailing window in months", Value: cfg.DividendWindowMonths},
			&cli.StringFlag{Name: "ref", Usage: "window reference date (YYYY-MM-DD, default today)"},
			&cli.StringFlag{Name: "goal", Usage: "monthly income goal to compare the trailing average with"},
		},
		Action: func(c *cli.Context) error {
			ref, err := parseDay(c.String("ref"), time.Now().UTC())
			if err != nil {
				return err
			}
			goal, err := decimalFlag(c, "goal")
			if err != nil {
				return err
			}
			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				summary, warnings, err := rt.portfolio.Dividends(c.Context, c.String("user"), ref, c.Int("months"))
				if err != nil {
					return err
				}
				md, err := render.Dividends(summary, warnings)
				if err != nil {
					return err
				}
				if goal.IsPositive() {
					md += goalLine(dividend.GoalProgress(summary, goal))
				}
				return printMarkdown(c, md)
			})
		},
	}
}

func reportCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "show the full portfolio report",
		Flags: viewFlags(&cli.BoolFlag{Name: "save", Usage: "also store the report as today's snapshot"}),
		Action: func(c *cli.Context) error {
			at, err := asOf(c)
			if err != nil {
				return err
			}
			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				user := c.String("user")
				var report domain.PortfolioReport
				if c.Bool("save") {
					report, err = rt.snapshots.Generate(c.Context, user, at)
				} else {
					report, err = rt.portfolio.Report(c.Context, user, at)
				}
				if err != nil {
					return err
				}
				md, err := render.Report(report)
				if err != nil {
					return err
				}
				return printMarkdown(c, md)
			})
		},
	}
}

func exportCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "export the report to an XLSX file or Google Sheets",
		Flags: []cli.Flag{
			userFlag, asOfFlag,
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "XLSX output path"},
			&cli.BoolFlag{Name: "sheets", Usage: "write to GOOGLE_SHEETS_ID instead of a file"},
		},
		Action: func(c *cli.Context) error {
			at, err := asOf(c)
			if err != nil {
				return err
			}
			out, toSheets := c.String("out"), c.Bool("sheets")
			if (out == "") == !toSheets {
				return fmt.Errorf("choose exactly one of --out or --sheets")
			}

			var writer export.Writer
			if toSheets {
				if cfg.GoogleSheetsID == "" || cfg.GoogleCredentials == "" {
					return fmt.Errorf("GOOGLE_SHEETS_ID and GOOGLE_CREDENTIALS_JSON are required for --sheets")
				}
				sw, err := export.NewSheetsWriter(c.Context, cfg.GoogleSheetsID, cfg.GoogleCredentials)
				if err != nil {
					return err
				}
				writer = sw
			} else {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				writer = export.NewXLSXWriter(f)
			}

			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				report, err := rt.portfolio.Report(c.Context, c.String("user"), at)
				if err != nil {
					return err
				}
				if err := export.NewService(writer, rt.snapRepo).Export(c.Context, report); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "exported %d holdings for %s\n", len(report.Holdings), report.UserID)
				return nil
			})
		},
	}
}

func assetCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "asset",
		Usage: "set asset metadata: name, class override and opening holding",
		Flags: []cli.Flag{
			userFlag,
			&cli.StringFlag{Name: "ticker", Aliases: []string{"t"}, Required: true},
			&cli.StringFlag{Name: "name"},
			&cli.StringFlag{Name: "class", Usage: "class hint, e.g. acao, fii, etf, renda fixa"},
			&cli.StringFlag{Name: "opening-quantity"},
			&cli.StringFlag{Name: "opening-cost", Usage: "opening average cost per unit"},
		},
		Action: func(c *cli.Context) error {
			qty, err := decimalFlag(c, "opening-quantity")
			if err != nil {
				return err
			}
			cost, err := decimalFlag(c, "opening-cost")
			if err != nil {
				return err
			}
			asset := domain.AssetMeta{
				Ticker:             c.String("ticker"),
				Name:               c.String("name"),
				Class:              c.String("class"),
				OpeningQuantity:    qty,
				OpeningAverageCost: cost,
			}
			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				return rt.store.UpsertAsset(c.Context, c.String("user"), asset)
			})
		},
	}
}

func fundamentalsCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "fundamentals",
		Usage: "set the per-share valuation inputs of a ticker",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ticker", Aliases: []string{"t"}, Required: true},
			&cli.StringFlag{Name: "eps", Usage: "earnings per share"},
			&cli.StringFlag{Name: "bvps", Usage: "book value per share"},
			&cli.StringFlag{Name: "dps", Usage: "dividend per share, trailing twelve months"},
			&cli.StringFlag{Name: "yield", Usage: "trailing dividend yield as a fraction, e.g. 0.10"},
			&cli.StringFlag{Name: "growth", Usage: "dividend growth rate as a fraction"},
			&cli.StringFlag{Name: "discount", Usage: "discount rate as a fraction"},
		},
		Action: func(c *cli.Context) error {
			f := domain.Fundamentals{Ticker: c.String("ticker")}
			for name, dst := range map[string]*decimal.Decimal{
				"eps":      &f.EPS,
				"bvps":     &f.BookValuePerShare,
				"dps":      &f.DividendPerShare,
				"yield":    &f.TrailingDividendYield,
				"growth":   &f.GrowthRate,
				"discount": &f.DiscountRate,
			} {
				v, err := decimalFlag(c, name)
				if err != nil {
					return err
				}
				*dst = v
			}
			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				return rt.store.UpsertFundamentals(c.Context, f)
			})
		},
	}
}

func accountCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "add a brokerage or bank account",
		Flags: []cli.Flag{
			userFlag,
			&cli.StringFlag{Name: "id", Usage: "account ID (default: generated)"},
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "institution"},
			&cli.StringFlag{Name: "kind", Usage: "brokerage, bank or other", Value: string(domain.AccountKindBrokerage)},
		},
		Action: func(c *cli.Context) error {
			account := domain.Account{
				ID:          c.String("id"),
				Name:        c.String("name"),
				Institution: c.String("institution"),
				Kind:        domain.AccountKind(strings.ToLower(c.String("kind"))),
			}
			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				saved, err := rt.store.AddAccount(c.Context, c.String("user"), account)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, saved.ID)
				return nil
			})
		},
	}
}

func cashCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "cash",
		Usage: "record a deposit or withdrawal",
		Flags: []cli.Flag{
			userFlag,
			&cli.StringFlag{Name: "account", Aliases: []string{"a"}, Required: true},
			&cli.StringFlag{Name: "kind", Usage: "deposit or withdrawal", Required: true},
			&cli.StringFlag{Name: "amount", Required: true},
			&cli.StringFlag{Name: "date", Usage: "YYYY-MM-DD (default today)"},
			&cli.StringFlag{Name: "description"},
		},
		Action: func(c *cli.Context) error {
			amount, err := decimalFlag(c, "amount")
			if err != nil {
				return err
			}
			at := time.Now().UTC()
			if s := c.String("date"); s != "" {
				if at, err = time.Parse(dateLayout, s); err != nil {
					return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", s)
				}
			}
			tx := domain.CashTransaction{
				AccountID:   c.String("account"),
				Kind:        domain.CashKind(strings.ToUpper(c.String("kind"))),
				Amount:      amount,
				OccurredAt:  at,
				Description: c.String("description"),
			}
			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				saved, err := rt.store.AddCashTransaction(c.Context, c.String("user"), tx)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, saved.ID)
				return nil
			})
		},
	}
}

func quotesCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "quotes",
		Usage: "list stored quotes",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "refresh", Usage: "fetch quotes for every held ticker first"},
		},
		Action: func(c *cli.Context) error {
			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				if c.Bool("refresh") {
					n, err := portfolio.NewQuoteJob(rt.portfolio, rt.quotes).RefreshHeldQuotes(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "refreshed %d held tickers\n", n)
				}
				quotes, err := rt.quotes.Quotes(c.Context)
				if err != nil {
					return err
				}
				for _, q := range quotes {
					fmt.Fprintf(c.App.Writer, "%-10s %14s  %s\n", q.Ticker, render.FormatBRL(q.Price), q.UpdatedAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func goalLine(p dividend.Progress) string {
	status := "not reached"
	if p.Reached {
		status = "reached"
	}
	return fmt.Sprintf("\n**Goal:** %s per month, %s%% of it covered (%s)\n",
		render.FormatBRL(p.Goal), p.Percent.StringFixed(1), status)
}
