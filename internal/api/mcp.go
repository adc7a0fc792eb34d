package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/wsr/internal/review"
	"github.com/kalambet/wsr/internal/storage"
)

// NewMCPServer creates an MCP server exposing the weekly review to chat
// clients over stdio. The bridge text exists to be critiqued by a model;
// serving it as a tool removes the copy-paste hop.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"wsr",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("wsr — weekly sector review and daily habit log. Use get_weekly_review to pull the current self-assessment for critique."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("get_weekly_review",
			mcp.WithDescription("Return the current week's self-review as structured text, ready to be challenged for blind spots."),
			mcp.WithString("week_label", mcp.Description("Label for the week, e.g. \"Week 7 (Feb 3-9, 2026)\"")),
			mcp.WithBoolean("include_sensitive", mcp.Description("Include sectors marked sensitive (default false)")),
		),
		mcpGetWeeklyReview(deps),
	)

	s.AddTool(
		mcp.NewTool("get_sector_scores",
			mcp.WithDescription("Return per-sector scores and the overall average for the current week."),
		),
		mcpGetSectorScores(deps),
	)

	s.AddTool(
		mcp.NewTool("log_food",
			mcp.WithDescription("Estimate nutrition for a food description and append it to today's log."),
			mcp.WithString("input", mcp.Description("Free-text food description"), mcp.Required()),
		),
		mcpLogFood(deps),
	)

	s.AddTool(
		mcp.NewTool("list_daily_logs",
			mcp.WithDescription("List daily habit/food logs, optionally for a single day."),
			mcp.WithString("day", mcp.Description("Calendar day in YYYY-MM-DD form (default: all)")),
		),
		mcpListDailyLogs(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"review://insights",
			"Reflection Insights",
			mcp.WithResourceDescription("Facts, patterns, and the primary open loop derived from current scores"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceInsights(deps),
	)

	return s
}

func mcpGetWeeklyReview(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		contracts, entries, err := loadReviewState(deps)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load review state: %v", err)), nil
		}

		text := review.BuildBridgeText(review.BridgeArgs{
			WeekLabel:        req.GetString("week_label", ""),
			Contracts:        contracts,
			Entries:          entries,
			IncludeSensitive: req.GetBool("include_sensitive", false),
		})
		return mcpText(text), nil
	}
}

func mcpGetSectorScores(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		contracts, entries, err := loadReviewState(deps)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load review state: %v", err)), nil
		}

		scores := review.BuildSectorScores(contracts, entries)
		if scores == nil {
			scores = []review.SectorScore{}
		}
		b, err := json.Marshal(map[string]any{
			"scores":  scores,
			"overall": review.OverallScore(scores),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal scores: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpLogFood(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := req.RequireString("input")
		if err != nil {
			return mcpError("input is required"), nil
		}

		estimate, err := deps.Food.AnalyzeText(ctx, input)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		confidence := estimate.Confidence
		entry := storage.DailyLog{
			ID:         uuid.New().String(),
			Kind:       storage.LogFood,
			Item:       estimate.Item,
			Calories:   estimate.Calories,
			Protein:    estimate.Protein,
			Confidence: &confidence,
			CreatedAt:  time.Now().UTC(),
		}
		if err := deps.Store.AppendDailyLog(entry); err != nil {
			return mcpError(fmt.Sprintf("estimated but failed to log: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Logged %s: %.0f kcal, %.0fg protein (confidence %.2f)",
			entry.Item, entry.Calories, entry.Protein, confidence)), nil
	}
}

func mcpListDailyLogs(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logs, err := deps.Store.ListDailyLogs(req.GetString("day", ""))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list logs: %v", err)), nil
		}
		if logs == nil {
			logs = []storage.DailyLog{}
		}

		b, err := json.Marshal(logs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal logs: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceInsights(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		contracts, entries, err := loadReviewState(deps)
		if err != nil {
			return nil, fmt.Errorf("failed to load review state: %w", err)
		}

		insights := review.BuildInsights(review.BuildSectorScores(contracts, entries))
		b, err := json.Marshal(insights)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal insights: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
