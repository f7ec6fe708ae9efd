package mcpadapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
	"github.com/kirillkom/solar-panel-monitor/internal/core/ports"
	"github.com/kirillkom/solar-panel-monitor/internal/core/usecase"
)

// Server exposes the retrieval pipeline as MCP tools so desktop
// assistants can query the knowledge base directly over stdio.
type Server struct {
	mcpServer *server.MCPServer
}

func NewServer(version string, retriever ports.ContextRetriever) *Server {
	s := server.NewMCPServer(
		"solar-panel-monitor",
		version,
		server.WithToolCapabilities(false),
	)

	retrieveTool := mcp.NewTool("retrieve_context",
		mcp.WithDescription("Search the solar panel maintenance knowledge base and return the formatted context blocks for a free-text query."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text query, e.g. 'hotspot risk from bird droppings'."),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of context chunks to retrieve (default 3)."),
		),
	)
	s.AddTool(retrieveTool, retrieveHandler(retriever))

	buildQueryTool := mcp.NewTool("build_query",
		mcp.WithDescription("Build the canonical retrieval query for a classifier verdict, the same query the analysis pipeline uses."),
		mcp.WithString("primary_defect",
			mcp.Required(),
			mcp.Description("Detected defect class, e.g. 'Dusty' or 'Electrical-damage'."),
		),
		mcp.WithNumber("confidence",
			mcp.Description("Classifier confidence between 0 and 1."),
		),
		mcp.WithString("panel_id",
			mcp.Description("Panel identifier, omitted from the query when empty."),
		),
		mcp.WithString("top_predictions",
			mcp.Description("Comma-separated label:score pairs, e.g. 'Dusty:0.92, Bird-drop:0.05'."),
		),
	)
	s.AddTool(buildQueryTool, buildQueryHandler())

	return &Server{mcpServer: s}
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func retrieveHandler(retriever ports.ContextRetriever) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query must not be empty"), nil
		}
		k := request.GetInt("k", usecase.DefaultTopK)

		contexts, err := retriever.Retrieve(ctx, query, k)
		if err != nil {
			return nil, fmt.Errorf("retrieve context: %w", err)
		}
		return mcp.NewToolResultText(usecase.FormatContext(contexts)), nil
	}
}

func buildQueryHandler() server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		defect, err := request.RequireString("primary_defect")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result := domain.ClassificationResult{
			PanelID:        request.GetString("panel_id", ""),
			PrimaryDefect:  defect,
			Confidence:     request.GetFloat("confidence", 0),
			TopPredictions: parsePredictions(request.GetString("top_predictions", "")),
		}
		return mcp.NewToolResultText(usecase.BuildQuery(result)), nil
	}
}

func parsePredictions(raw string) []domain.Prediction {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	predictions := make([]domain.Prediction, 0, len(parts))
	for _, part := range parts {
		label, scoreRaw, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(scoreRaw), 64)
		if err != nil {
			continue
		}
		predictions = append(predictions, domain.Prediction{
			Label: strings.TrimSpace(label),
			Score: score,
		})
	}
	return predictions
}
