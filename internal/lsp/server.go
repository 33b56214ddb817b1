package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/grr-sub002/internal/provider"
	"github.com/google/grr-sub002/pkg/assist"
	"github.com/google/grr-sub002/pkg/schema"
)

// ServerName is reported to clients in the initialize result.
const ServerName = "osqhelper"

// DefaultDebounce is the delay between the last edit and re-analysis.
const DefaultDebounce = 150 * time.Millisecond

// ErrExitWithoutShutdown is returned by Run when the client sends exit
// without a prior shutdown request.
var ErrExitWithoutShutdown = errors.New("lsp: exit before shutdown")

// JSON-RPC error codes.
const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// Options configures a Server.
type Options struct {
	// Debounce is the delay before an edited document is re-analyzed.
	Debounce time.Duration
	Logger   *slog.Logger
	// Version is reported as the server version.
	Version string
}

// Server implements the Language Server Protocol over one stream pair.
type Server struct {
	documents *DocumentStore
	provider  *provider.Provider
	debounce  time.Duration
	version   string

	// One scheduler per open document.
	schedulers   map[string]*assist.Scheduler
	schedulersMu sync.Mutex

	initialized bool

	// I/O
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex

	logger *slog.Logger

	shutdown   bool
	shutdownMu sync.RWMutex
}

// NewServer creates a server that reads requests from reader and writes
// responses to writer.
func NewServer(reader io.Reader, writer io.Writer, prov *provider.Provider, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Server{
		documents:  NewDocumentStore(),
		provider:   prov,
		debounce:   debounce,
		version:    opts.Version,
		schedulers: make(map[string]*assist.Scheduler),
		reader:     bufio.NewReader(reader),
		writer:     writer,
		logger:     logger,
	}
}

// Run processes messages until the client sends exit, the input ends or ctx
// is done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("language server starting", "version", s.version)
	defer s.stopSchedulers()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Info("client disconnected")
				return nil
			}
			s.logger.Error("error reading message", "error", err)
			continue
		}

		if msg.Method == "exit" {
			s.logger.Info("server exit")
			if !s.isShutdown() {
				return ErrExitWithoutShutdown
			}
			return nil
		}

		if err := s.handleMessage(ctx, msg); err != nil {
			s.logger.Error("error handling message", "method", msg.Method, "error", err)
		}
	}
}

// JSONRPCMessage represents a JSON-RPC 2.0 message.
type JSONRPCMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *JSONRPCError    `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (s *Server) readMessage() (*JSONRPCMessage, error) {
	var contentLength int
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break
		}

		if v, ok := strings.CutPrefix(line, "Content-Length: "); ok {
			contentLength, err = strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
		}
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, body); err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	var msg JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}
	return &msg, nil
}

func (s *Server) sendResponse(id *json.RawMessage, result any, rpcErr *JSONRPCError) {
	msg := JSONRPCMessage{JSONRPC: "2.0", ID: id}
	if rpcErr != nil {
		msg.Error = rpcErr
	} else {
		body, err := json.Marshal(result)
		if err != nil {
			s.logger.Error("error marshaling result", "error", err)
			body = []byte("null")
		}
		msg.Result = body
	}
	s.writeMessage(&msg)
}

func (s *Server) sendNotification(method string, params any) {
	msg := JSONRPCMessage{JSONRPC: "2.0", Method: method}
	if params != nil {
		body, err := json.Marshal(params)
		if err != nil {
			s.logger.Error("error marshaling params", "method", method, "error", err)
			return
		}
		msg.Params = body
	}
	s.writeMessage(&msg)
}

func (s *Server) writeMessage(msg *JSONRPCMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	body, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("error marshaling message", "error", err)
		return
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	if _, err := io.WriteString(s.writer, header); err != nil {
		s.logger.Error("error writing message", "error", err)
		return
	}
	_, _ = s.writer.Write(body)
}

func (s *Server) isShutdown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.shutdown
}

func (s *Server) handleMessage(ctx context.Context, msg *JSONRPCMessage) error {
	s.logger.Debug("received", "method", msg.Method)

	if s.isShutdown() && msg.ID != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidRequest, Message: "server is shut down"})
		return nil
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return s.handleInitialized(msg)
	case "shutdown":
		return s.handleShutdown(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/completion":
		return s.handleCompletion(ctx, msg)
	case "textDocument/hover":
		return s.handleHover(ctx, msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	default:
		if msg.ID != nil {
			s.sendResponse(msg.ID, nil, &JSONRPCError{
				Code:    codeMethodNotFound,
				Message: "Method not found: " + msg.Method,
			})
		}
		return nil
	}
}

// --- Lifecycle handlers ---

func (s *Server) handleInitialize(msg *JSONRPCMessage) error {
	var params InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	if opts := params.InitializationOptions; opts != nil && opts.Platform != "" {
		p, err := schema.ParsePlatform(opts.Platform)
		if err != nil {
			s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
			return err
		}
		s.provider.SetPlatform(p)
	}

	s.logger.Info("initialize",
		"root", URIToPath(params.RootURI),
		"schema_version", s.provider.Index().Version(),
		"platform", s.provider.Platform().String())

	s.sendResponse(msg.ID, InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
			},
			CompletionProvider: &CompletionOptions{
				TriggerCharacters: []string{".", " "},
			},
			HoverProvider: true,
			CodeActionProvider: &CodeActionOptions{
				CodeActionKinds: []CodeActionKind{CodeActionKindQuickFix},
			},
		},
		ServerInfo: &ServerInfo{Name: ServerName, Version: s.version},
	}, nil)
	return nil
}

func (s *Server) handleInitialized(_ *JSONRPCMessage) error {
	s.initialized = true
	idx := s.provider.Index()
	s.sendNotification("window/logMessage", &ShowMessageParams{
		Type: MessageTypeInfo,
		Message: fmt.Sprintf("osquery schema %s (%d tables), target platform %s",
			idx.Version(), idx.Len(), s.provider.Platform()),
	})
	return nil
}

func (s *Server) handleShutdown(msg *JSONRPCMessage) error {
	s.shutdownMu.Lock()
	s.shutdown = true
	s.shutdownMu.Unlock()

	s.stopSchedulers()
	s.sendResponse(msg.ID, nil, nil)
	s.logger.Info("server shutdown")
	return nil
}

// --- Document handlers ---

func (s *Server) handleDidOpen(msg *JSONRPCMessage) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	doc := s.documents.Open(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	s.logger.Debug("opened", "uri", doc.URI, "version", doc.Version)
	s.schedule(doc)
	return nil
}

func (s *Server) handleDidChange(msg *JSONRPCMessage) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}

	// Full sync: the last change holds the whole text.
	last := params.ContentChanges[len(params.ContentChanges)-1]
	doc := s.documents.Update(params.TextDocument.URI, last.Text, params.TextDocument.Version)
	if doc == nil {
		return fmt.Errorf("change to unopened document %s", params.TextDocument.URI)
	}
	if doc.Version != params.TextDocument.Version {
		s.logger.Debug("ignoring stale change", "uri", doc.URI, "version", params.TextDocument.Version)
		return nil
	}
	s.schedule(doc)
	return nil
}

func (s *Server) handleDidClose(msg *JSONRPCMessage) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	s.schedulersMu.Lock()
	if sched, ok := s.schedulers[uri]; ok {
		sched.Stop()
		delete(s.schedulers, uri)
	}
	s.schedulersMu.Unlock()

	s.documents.Close(uri)
	s.provider.Invalidate(uri)
	s.logger.Debug("closed", "uri", uri)

	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []Diagnostic{},
	})
	return nil
}

// schedule queues a debounced analysis of doc.
func (s *Server) schedule(doc *Document) {
	s.schedulersMu.Lock()
	sched, ok := s.schedulers[doc.URI]
	if !ok {
		sched = s.newScheduler(doc.URI)
		s.schedulers[doc.URI] = sched
	}
	s.schedulersMu.Unlock()

	gen := sched.Schedule(assist.Request{Text: doc.Content, Cursor: len(doc.Content), Limit: -1})
	s.logger.Debug("scheduled analysis", "uri", doc.URI, "version", doc.Version, "generation", gen)
}

func (s *Server) newScheduler(uri string) *assist.Scheduler {
	return assist.NewScheduler(s.debounce, s.provider.Analyze, func(gen uint64, res *assist.Result) {
		doc := s.documents.Get(uri)
		if doc == nil {
			return
		}
		s.logger.Debug("publishing diagnostics", "uri", uri, "generation", gen, "count", len(res.Diagnostics))
		s.publishDiagnostics(doc, res.Diagnostics)
	})
}

// Refresh re-analyzes every open document. Call it after the schema index
// or target platform changes.
func (s *Server) Refresh() {
	for _, uri := range s.documents.List() {
		if doc := s.documents.Get(uri); doc != nil {
			s.schedule(doc)
		}
	}
}

func (s *Server) stopSchedulers() {
	s.schedulersMu.Lock()
	defer s.schedulersMu.Unlock()
	for uri, sched := range s.schedulers {
		sched.Stop()
		delete(s.schedulers, uri)
	}
}

// --- Feature handlers ---

func (s *Server) handleCompletion(ctx context.Context, msg *JSONRPCMessage) error {
	var params CompletionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	items := s.getCompletions(ctx, params)
	s.sendResponse(msg.ID, &CompletionList{Items: items}, nil)
	return nil
}

func (s *Server) handleHover(ctx context.Context, msg *JSONRPCMessage) error {
	var params HoverParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	s.sendResponse(msg.ID, s.getHover(ctx, params), nil)
	return nil
}

func (s *Server) handleCodeAction(msg *JSONRPCMessage) error {
	var params CodeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	s.sendResponse(msg.ID, getCodeActions(params), nil)
	return nil
}
