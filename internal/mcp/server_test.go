package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// connectClient wires a client session to server over in-memory transports.
func connectClient(t *testing.T, server *Server) *sdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := sdk.NewInMemoryTransports()

	ss, err := server.server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server Connect failed: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client Connect failed: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func decodeStructured(t *testing.T, res *sdk.CallToolResult, out any) {
	t.Helper()
	data, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
}

func TestServer_ListTools(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	cs := connectClient(t, server)

	res, err := cs.ListTools(context.Background(), &sdk.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	got := make(map[string]bool)
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{"geotree_build", "geotree_snapshot", "geotree_list", "geotree_delete"} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestE2E_BuildSaveRead(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	server, _ := setupTestServer(t)
	defer server.Close()
	cs := connectClient(t, server)
	ctx := context.Background()

	var runID string
	t.Run("Build", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &sdk.CallToolParams{
			Name:      "geotree_build",
			Arguments: map[string]any{"hints": sampleHints, "save": true},
		})
		if err != nil {
			t.Fatalf("CallTool failed: %v", err)
		}
		if res.IsError {
			t.Fatalf("geotree_build returned a tool error: %+v", res.Content)
		}
		var out BuildOutput
		decodeStructured(t, res, &out)
		if out.RunID == "" {
			t.Fatal("run_id is empty")
		}
		if len(out.Roots) != 3 {
			t.Errorf("roots = %v, want 3 roots", out.Roots)
		}
		runID = out.RunID
	})

	t.Run("InvalidHintsAreToolErrors", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &sdk.CallToolParams{
			Name:      "geotree_build",
			Arguments: map[string]any{"hints": "correlations: [{a: 1, b: 1, relation: parent, score: 1}]"},
		})
		if err != nil {
			t.Fatalf("CallTool failed: %v", err)
		}
		if !res.IsError {
			t.Error("expected IsError for a self correlation")
		}
	})

	t.Run("List", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &sdk.CallToolParams{Name: "geotree_list", Arguments: map[string]any{}})
		if err != nil {
			t.Fatalf("CallTool failed: %v", err)
		}
		var out ListOutput
		decodeStructured(t, res, &out)
		if out.Count != 1 || out.Runs[0].ID != runID {
			t.Errorf("list = %+v, want only %s", out, runID)
		}
	})

	t.Run("ReadResource", func(t *testing.T) {
		res, err := cs.ReadResource(ctx, &sdk.ReadResourceParams{URI: runURIPrefix + runID})
		if err != nil {
			t.Fatalf("ReadResource failed: %v", err)
		}
		if len(res.Contents) != 1 || !strings.Contains(res.Contents[0].Text, "2\n..0\n") {
			t.Errorf("resource contents = %+v", res.Contents)
		}
	})
}
