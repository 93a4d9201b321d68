package mcpserver

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/liblearn/internal/batch"
	"github.com/starford/liblearn/internal/deck"
	"github.com/starford/liblearn/internal/deckservice"
	"github.com/starford/liblearn/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	p := testutil.NewProvider(map[string]testutil.Entity{"calc.Calculator": testutil.Calculator()})
	logger := testutil.Logger()
	b := deck.NewBuilder(p, rand.New(rand.NewPCG(1, 2)), logger)
	svc := deckservice.NewService(b, batch.NewRunner(b, 1, logger), nil, "python", rand.New(rand.NewPCG(3, 4)), logger)
	return New(svc, deck.Options{Short: true}, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "build_deck":
		result, err = srv.buildDeck(ctx, req)
	case "deck_quality":
		result, err = srv.deckQuality(ctx, req)
	case "draw_prompts":
		result, err = srv.drawPrompts(ctx, req)
	case "get_card_format":
		result, err = srv.getCardFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestBuildDeck(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "build_deck", map[string]any{"path": "calc.Calculator"})
	if r.IsError {
		t.Fatalf("build_deck failed: %s", resultText(r))
	}
	var d deckservice.DeckDetail
	if err := json.Unmarshal([]byte(resultText(r)), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(d.Cards) != 2 || d.Eligible != 3 {
		t.Errorf("deck = %+v", d)
	}
}

func TestBuildDeckFlags(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "build_deck", map[string]any{"path": "calc.Calculator", "private": true, "special": true, "full": true})
	var d deckservice.DeckDetail
	if err := json.Unmarshal([]byte(resultText(r)), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(d.Cards) != 4 {
		t.Errorf("cards = %d, want 4", len(d.Cards))
	}
}

func TestBuildDeckErrors(t *testing.T) {
	srv := testServer(t)

	for _, args := range []map[string]any{
		{},
		{"path": "calc.Missing"},
		{"path": "calc.Calculator.add"},
	} {
		if r := callTool(t, srv, "build_deck", args); !r.IsError {
			t.Errorf("build_deck(%v) succeeded", args)
		}
	}
}

func TestDeckQuality(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "deck_quality", map[string]any{"path": "calc.Calculator"})
	if got, want := resultText(r), "calc.Calculator: 66.67 (2 of 3 eligible routines)"; got != want {
		t.Errorf("deck_quality = %q, want %q", got, want)
	}
}

func TestDrawPrompts(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "draw_prompts", map[string]any{"path": "calc.Calculator", "n": float64(5)})
	lines := strings.Split(resultText(r), "\n")
	if len(lines) != 5 {
		t.Fatalf("prompts = %q, want 5 lines", lines)
	}
	if lines[0] != lines[2] || lines[1] != lines[3] || lines[0] == lines[1] {
		t.Errorf("unshuffled cycle order broken: %q", lines)
	}

	if r := callTool(t, srv, "draw_prompts", map[string]any{"path": "calc.Calculator", "n": float64(-1)}); !r.IsError {
		t.Error("negative n accepted")
	}
}

func TestGetCardFormat(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_card_format", nil)
	if !strings.Contains(resultText(r), "# liblearn Card Format") {
		t.Errorf("unexpected contract: %q", resultText(r))
	}

	contents, err := srv.readCardFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != cardFormatURI || tc.Text != CardFormatContract {
		t.Errorf("resource = %+v", contents[0])
	}
}
