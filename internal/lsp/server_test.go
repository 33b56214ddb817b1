package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/grr-sub002/internal/testutil"
)

// testClient speaks framed JSON-RPC to a Server running on pipes.
type testClient struct {
	t       *testing.T
	w       io.Writer
	msgs    chan *JSONRPCMessage
	pending []*JSONRPCMessage
	nextID  int
	done    chan error
	srv     *Server
}

func startServer(t *testing.T, debounce time.Duration) *testClient {
	t.Helper()
	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()

	srv := NewServer(serverR, serverW, newTestProvider(t), Options{
		Debounce: debounce,
		Logger:   testutil.NewTestLogger(t),
		Version:  "test",
	})

	c := &testClient{
		t:    t,
		w:    clientW,
		msgs: make(chan *JSONRPCMessage, 64),
		done: make(chan error, 1),
		srv:  srv,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		c.done <- srv.Run(ctx)
		_ = serverW.Close()
	}()
	go c.readLoop(bufio.NewReader(clientR))

	t.Cleanup(func() {
		cancel()
		_ = clientW.Close()
		_ = clientR.Close()
	})
	return c
}

func (c *testClient) readLoop(r *bufio.Reader) {
	defer close(c.msgs)
	for {
		var length int
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if line == "\r\n" {
				break
			}
			_, _ = fmt.Sscanf(line, "Content-Length: %d", &length)
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return
		}
		var msg JSONRPCMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return
		}
		c.msgs <- &msg
	}
}

func (c *testClient) write(msg map[string]any) {
	c.t.Helper()
	msg["jsonrpc"] = "2.0"
	body, err := json.Marshal(msg)
	require.NoError(c.t, err)
	_, err = fmt.Fprintf(c.w, "Content-Length: %d\r\n\r\n%s", len(body), body)
	require.NoError(c.t, err)
}

func (c *testClient) notify(method string, params any) {
	c.t.Helper()
	c.write(map[string]any{"method": method, "params": params})
}

// request sends a request and waits for its response. Notifications that
// arrive first are kept for next.
func (c *testClient) request(method string, params any) *JSONRPCMessage {
	c.t.Helper()
	c.nextID++
	id := strconv.Itoa(c.nextID)
	c.write(map[string]any{"id": c.nextID, "method": method, "params": params})

	for {
		msg := c.receive()
		if msg.ID != nil && string(*msg.ID) == id {
			return msg
		}
		c.pending = append(c.pending, msg)
	}
}

// next returns the next notification with the given method.
func (c *testClient) next(method string) *JSONRPCMessage {
	c.t.Helper()
	for i, msg := range c.pending {
		if msg.Method == method {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return msg
		}
	}
	for {
		msg := c.receive()
		if msg.Method == method {
			return msg
		}
		c.pending = append(c.pending, msg)
	}
}

func (c *testClient) receive() *JSONRPCMessage {
	c.t.Helper()
	select {
	case msg, ok := <-c.msgs:
		require.True(c.t, ok, "server closed the stream")
		return msg
	case <-time.After(3 * time.Second):
		c.t.Fatal("timed out waiting for a message")
		return nil
	}
}

func (c *testClient) diagnostics() PublishDiagnosticsParams {
	c.t.Helper()
	var params PublishDiagnosticsParams
	require.NoError(c.t, json.Unmarshal(c.next("textDocument/publishDiagnostics").Params, &params))
	return params
}

func (c *testClient) wait() error {
	c.t.Helper()
	select {
	case err := <-c.done:
		return err
	case <-time.After(3 * time.Second):
		c.t.Fatal("server did not stop")
		return nil
	}
}

func diagnosticCodes(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func textDocument(uri, text string, version int) map[string]any {
	return map[string]any{"textDocument": map[string]any{
		"uri": uri, "languageId": "sql", "version": version, "text": text,
	}}
}

func change(uri, text string, version int) map[string]any {
	return map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": version},
		"contentChanges": []map[string]any{{"text": text}},
	}
}

func TestServer_Session(t *testing.T) {
	c := startServer(t, 100*time.Millisecond)
	const uri = "file:///queries/q.sql"

	resp := c.request("initialize", map[string]any{
		"processId":             1,
		"rootUri":               "file:///queries",
		"initializationOptions": map[string]any{"platform": "windows"},
	})
	require.Nil(t, resp.Error)
	var init InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &init))
	assert.True(t, init.Capabilities.HoverProvider)
	assert.Equal(t, TextDocumentSyncKindFull, init.Capabilities.TextDocumentSync.Change)
	require.NotNil(t, init.ServerInfo)
	assert.Equal(t, ServerName, init.ServerInfo.Name)
	assert.Equal(t, "test", init.ServerInfo.Version)

	c.notify("initialized", map[string]any{})
	assert.Contains(t, string(c.next("window/logMessage").Params), "target platform windows")

	// kernel_modules is linux only; the client asked for windows.
	c.notify("textDocument/didOpen", textDocument(uri, "SELECT name FROM kernel_modules", 1))
	diags := c.diagnostics()
	assert.Equal(t, uri, diags.URI)
	require.NotNil(t, diags.Version)
	assert.Equal(t, 1, *diags.Version)
	assert.Equal(t, []string{"OSQ010"}, diagnosticCodes(diags.Diagnostics))

	// Rapid edits are debounced into one analysis of the last version.
	c.notify("textDocument/didChange", change(uri, "SELECT * FROM pro", 2))
	c.notify("textDocument/didChange", change(uri, "SELECT * FROM proc", 3))
	c.notify("textDocument/didChange", change(uri, "SELECT * FROM proceses", 4))
	diags = c.diagnostics()
	assert.Equal(t, 4, *diags.Version)
	require.Equal(t, []string{"OSQ001"}, diagnosticCodes(diags.Diagnostics))
	unknown := diags.Diagnostics[0]

	resp = c.request("textDocument/completion", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": 0, "character": 18},
	})
	require.Nil(t, resp.Error)
	var list CompletionList
	require.NoError(t, json.Unmarshal(resp.Result, &list))
	require.NotEmpty(t, list.Items)
	assert.Equal(t, "process_envs", list.Items[0].Label)

	resp = c.request("textDocument/codeAction", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"range":        unknown.Range,
		"context":      map[string]any{"diagnostics": []Diagnostic{unknown}},
	})
	require.Nil(t, resp.Error)
	var actions []CodeAction
	require.NoError(t, json.Unmarshal(resp.Result, &actions))
	require.Len(t, actions, 1)
	assert.Equal(t, "processes", actions[0].Edit.Changes[uri][0].NewText)

	resp = c.request("textDocument/definition", map[string]any{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)

	c.notify("textDocument/didClose", map[string]any{"textDocument": map[string]any{"uri": uri}})
	diags = c.diagnostics()
	assert.Empty(t, diags.Diagnostics)
	assert.Nil(t, diags.Version)

	resp = c.request("shutdown", nil)
	assert.Nil(t, resp.Error)

	resp = c.request("textDocument/hover", map[string]any{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidRequest, resp.Error.Code)

	c.notify("exit", nil)
	assert.NoError(t, c.wait())
}

func TestServer_ExitWithoutShutdown(t *testing.T) {
	c := startServer(t, time.Millisecond)
	c.notify("exit", nil)
	assert.ErrorIs(t, c.wait(), ErrExitWithoutShutdown)
}

func TestServer_InvalidPlatform(t *testing.T) {
	c := startServer(t, time.Millisecond)
	resp := c.request("initialize", map[string]any{
		"initializationOptions": map[string]any{"platform": "beos"},
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestServer_Refresh(t *testing.T) {
	c := startServer(t, time.Millisecond)
	c.request("initialize", map[string]any{})

	c.notify("textDocument/didOpen", textDocument("file:///a.sql", "SELECT * FROM proceses", 1))
	c.notify("textDocument/didOpen", textDocument("file:///b.sql", "SELECT 1", 1))
	c.diagnostics()
	c.diagnostics()

	c.srv.Refresh()

	got := map[string]int{}
	for range 2 {
		d := c.diagnostics()
		got[d.URI] = len(d.Diagnostics)
	}
	assert.Equal(t, map[string]int{"file:///a.sql": 1, "file:///b.sql": 0}, got)
}
