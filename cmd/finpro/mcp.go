package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v2"

	"github.com/rafhmansano/finpro/internal/api"
	"github.com/rafhmansano/finpro/internal/config"
	"github.com/rafhmansano/finpro/internal/render"
)

const mcpVersion = "1.0.0"

func mcpCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "serve the portfolio views as MCP tools over stdio",
		Action: func(c *cli.Context) error {
			return withRuntime(c.Context, cfg, func(rt *runtime) error {
				s := newMCPServer(rt.portfolio)
				slog.Info("MCP server starting on stdio")
				return server.ServeStdio(s)
			})
		},
	}
}

func newMCPServer(p api.Portfolio) *server.MCPServer {
	s := server.NewMCPServer("finpro", mcpVersion, server.WithToolCapabilities(true))
	s.AddTool(createGetPositionsTool(), handleGetPositions(p))
	s.AddTool(createGetValuationsTool(), handleGetValuations(p))
	s.AddTool(createGetDividendsTool(), handleGetDividends(p))
	s.AddTool(createGetReportTool(), handleGetReport(p))
	return s
}

// --- Tool definitions ---

func userParam() mcp.ToolOption {
	return mcp.WithString("user", mcp.Required(), mcp.Description("Portfolio owner"))
}

func asOfParam() mcp.ToolOption {
	return mcp.WithString("as_of", mcp.Description("Date to derive the portfolio at, YYYY-MM-DD (default: today)"))
}

func createGetPositionsTool() mcp.Tool {
	return mcp.NewTool("get_positions",
		mcp.WithDescription("Open positions with quantity, average cost and invested amount, plus closed positions and totals."),
		userParam(),
		asOfParam(),
	)
}

func createGetValuationsTool() mcp.Tool {
	return mcp.NewTool("get_valuations",
		mcp.WithDescription("Fair price, upside and BUY/HOLD/SELL signal for every open position. Positions without a quote or fundamentals are listed as skipped."),
		userParam(),
		asOfParam(),
	)
}

func createGetDividendsTool() mcp.Tool {
	return mcp.NewTool("get_dividends",
		mcp.WithDescription("Dividends received per month over a trailing window and totals per ticker."),
		userParam(),
		mcp.WithNumber("months", mcp.Description("Trailing window in months (default: server setting, max: 120)")),
		mcp.WithString("ref", mcp.Description("Last month of the window, YYYY-MM-DD (default: today)")),
	)
}

func createGetReportTool() mcp.Tool {
	return mcp.NewTool("get_report",
		mcp.WithDescription("Full portfolio report: holdings, allocation by class, valuations, dividends and cash."),
		userParam(),
		asOfParam(),
	)
}

// --- Handlers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// toolArgs reads the user and the as_of date shared by the read tools.
func toolArgs(request mcp.CallToolRequest) (string, time.Time, *mcp.CallToolResult) {
	user, err := request.RequireString("user")
	if err != nil || user == "" {
		return "", time.Time{}, errorResult("Error: user parameter is required")
	}
	at, err := parseDay(request.GetString("as_of", ""), time.Now().UTC())
	if err != nil {
		return "", time.Time{}, errorResult("Error: " + err.Error())
	}
	return user, at, nil
}

func handleGetPositions(p api.Portfolio) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user, at, bad := toolArgs(request)
		if bad != nil {
			return bad, nil
		}
		res, err := p.Positions(ctx, user, at)
		if err != nil {
			slog.Error("mcp: positions failed", "user", user, "error", err)
			return errorResult("Error: failed to derive positions"), nil
		}
		md, err := render.Positions(res, at)
		if err != nil {
			return errorResult("Error: " + err.Error()), nil
		}
		return textResult(md), nil
	}
}

func handleGetValuations(p api.Portfolio) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user, at, bad := toolArgs(request)
		if bad != nil {
			return bad, nil
		}
		batch, err := p.Valuations(ctx, user, at)
		if err != nil {
			slog.Error("mcp: valuations failed", "user", user, "error", err)
			return errorResult("Error: failed to value positions"), nil
		}
		md, err := render.Valuations(batch, at)
		if err != nil {
			return errorResult("Error: " + err.Error()), nil
		}
		return textResult(md), nil
	}
}

func handleGetDividends(p api.Portfolio) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user, err := request.RequireString("user")
		if err != nil || user == "" {
			return errorResult("Error: user parameter is required"), nil
		}
		months := request.GetInt("months", 0)
		if months < 0 || months > 120 {
			return errorResult("Error: months must be between 1 and 120"), nil
		}
		ref, err := parseDay(request.GetString("ref", ""), time.Now().UTC())
		if err != nil {
			return errorResult("Error: " + err.Error()), nil
		}
		summary, warnings, err := p.Dividends(ctx, user, ref, months)
		if err != nil {
			slog.Error("mcp: dividends failed", "user", user, "error", err)
			return errorResult("Error: failed to aggregate dividends"), nil
		}
		md, err := render.Dividends(summary, warnings)
		if err != nil {
			return errorResult("Error: " + err.Error()), nil
		}
		return textResult(md), nil
	}
}

func handleGetReport(p api.Portfolio) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user, at, bad := toolArgs(request)
		if bad != nil {
			return bad, nil
		}
		report, err := p.Report(ctx, user, at)
		if err != nil {
			slog.Error("mcp: report failed", "user", user, "error", err)
			return errorResult("Error: failed to build report"), nil
		}
		md, err := render.Report(report)
		if err != nil {
			return errorResult("Error: " + err.Error()), nil
		}
		return textResult(md), nil
	}
}
