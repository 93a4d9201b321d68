// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes liblearn decks for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/liblearn/internal/deck"
	"github.com/starford/liblearn/internal/deckservice"
)

const cardFormatURI = "liblearn://card-format"

// Server wraps the MCP server with liblearn tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *deckservice.Service
	defaults deck.Options
}

// New creates a new MCP server with all liblearn tools registered.
func New(svc *deckservice.Service, defaults deck.Options, version string) *Server {
	s := &Server{svc: svc, defaults: defaults}

	s.mcp = server.NewMCPServer(
		"liblearn",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	pathArg := mcp.WithString("path", mcp.Required(),
		mcp.Description("Dotted path of a class or module (e.g. json, os.path, net/http.Client)"))

	s.mcp.AddTool(mcp.NewTool("build_deck",
		mcp.WithDescription("Build the flash-card deck of a class or module. "+
			"Returns JSON with the cards, the eligible routine count and the deck quality. "+
			"Read the card format via get_card_format or the "+cardFormatURI+" resource."),
		pathArg,
		mcp.WithBoolean("full", mcp.Description("Keep the full documentation instead of the synopsis")),
		mcp.WithBoolean("shuffle", mcp.Description("Shuffle the cards")),
		mcp.WithBoolean("private", mcp.Description("Include private routines")),
		mcp.WithBoolean("special", mcp.Description("Include special routines")),
		mcp.WithBoolean("placeholder", mcp.Description("Keep routines without a signature, using a placeholder")),
	), s.buildDeck)

	s.mcp.AddTool(mcp.NewTool("deck_quality",
		mcp.WithDescription("Percentage of eligible routines of a class or module that produce a card."),
		pathArg,
		mcp.WithBoolean("full", mcp.Description("Keep the full documentation instead of the synopsis")),
		mcp.WithBoolean("private", mcp.Description("Include private routines")),
		mcp.WithBoolean("special", mcp.Description("Include special routines")),
	), s.deckQuality)

	s.mcp.AddTool(mcp.NewTool("draw_prompts",
		mcp.WithDescription("Draw prompts in presentation order, cycling through the deck."),
		pathArg,
		mcp.WithNumber("n", mcp.Description("Number of prompts (default one pass over the deck)")),
		mcp.WithBoolean("shuffle", mcp.Description("Shuffle initially and before every repeated pass")),
	), s.drawPrompts)

	s.mcp.AddTool(mcp.NewTool("get_card_format",
		mcp.WithDescription("Returns the liblearn card format: how prompts, answers and quality are derived."),
	), s.getCardFormat)

	s.mcp.AddResource(
		mcp.NewResource(cardFormatURI, "Card Format",
			mcp.WithResourceDescription("How liblearn turns documented routines into flash cards."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCardFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) options(req mcp.CallToolRequest) deck.Options {
	opts := s.defaults
	opts.Short = !req.GetBool("full", !opts.Short)
	opts.Shuffle = req.GetBool("shuffle", opts.Shuffle)
	opts.AllowPrivate = req.GetBool("private", opts.AllowPrivate)
	opts.AllowSpecial = req.GetBool("special", opts.AllowSpecial)
	if req.GetBool("placeholder", opts.Unresolved == deck.UnresolvedPlaceholder) {
		opts.Unresolved = deck.UnresolvedPlaceholder
	} else {
		opts.Unresolved = deck.UnresolvedDrop
	}
	return opts
}

func (s *Server) buildDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetDeck(ctx, path, s.options(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(d, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deckQuality(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := s.options(req)
	opts.Shuffle = false
	q, err := s.svc.Quality(ctx, path, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %.2f (%d of %d eligible routines)", q.Path, q.Quality, q.Cards, q.Eligible)), nil
}

func (s *Server) drawPrompts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n := req.GetInt("n", 0)
	if n < 0 {
		return mcp.NewToolResultError("n must not be negative"), nil
	}
	opts := s.options(req)
	prompts, err := s.svc.Draw(ctx, path, opts, n, opts.Shuffle)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(prompts, "\n")), nil
}

func (s *Server) getCardFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CardFormatContract), nil
}

func (s *Server) readCardFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      cardFormatURI,
			MIMEType: "text/markdown",
			Text:     CardFormatContract,
		},
	}, nil
}
