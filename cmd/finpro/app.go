package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/rafhmansano/finpro/internal/config"
	"github.com/rafhmansano/finpro/internal/render"
)

const dateLayout = "2006-01-02"

// newApp builds the command tree. Every command reads its settings from cfg.
func newApp(cfg config.Config) *cli.App {
	return &cli.App{
		Name:  "finpro",
		Usage: "track positions, dividends and valuations of an investment portfolio",
		Commands: []*cli.Command{
			serveCommand(cfg),
			mcpCommand(cfg),
			importCommand(cfg),
			positionsCommand(cfg),
			valuationsCommand(cfg),
			dividendsCommand(cfg),
			reportCommand(cfg),
			exportCommand(cfg),
			assetCommand(cfg),
			fundamentalsCommand(cfg),
			accountCommand(cfg),
			cashCommand(cfg),
			quotesCommand(cfg),
		},
	}
}

var (
	userFlag = &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "portfolio owner",
		EnvVars:  []string{"FINPRO_USER"},
		Required: true,
	}
	asOfFlag = &cli.StringFlag{
		Name:  "as-of",
		Usage: "derive the portfolio as of this date (YYYY-MM-DD, default now)",
	}
	rawFlag = &cli.BoolFlag{
		Name:  "raw",
		Usage: "print markdown instead of styled terminal output",
	}
	widthFlag = &cli.IntFlag{
		Name:  "width",
		Usage: "terminal word wrap width",
		Value: 100,
	}
)

// viewFlags are shared by the read-only portfolio commands.
func viewFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{userFlag, asOfFlag, rawFlag, widthFlag}, extra...)
}

// printMarkdown writes md styled for the terminal, or raw with --raw.
func printMarkdown(c *cli.Context, md string) error {
	if c.Bool("raw") {
		_, err := fmt.Fprint(c.App.Writer, md)
		return err
	}
	out, err := render.Terminal(md, c.Int("width"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(c.App.Writer, out)
	return err
}

// asOf reads --as-of. A date covers the whole day.
func asOf(c *cli.Context) (time.Time, error) {
	return parseDay(c.String("as-of"), time.Now().UTC())
}

// parseDay parses YYYY-MM-DD as the last instant of that UTC day.
// An empty string returns def.
func parseDay(s string, def time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

// decimalFlag parses an optional decimal flag; empty means zero.
func decimalFlag(c *cli.Context, name string) (decimal.Decimal, error) {
	s := strings.TrimSpace(c.String(name))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q: %w", name, s, err)
	}
	return d, nil
}
