// Package server exposes the assistant over HTTP and a websocket.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"calc-assistant/internal/assistant"
	"calc-assistant/internal/automation"
	"calc-assistant/internal/credential"
	"calc-assistant/internal/interpreter"
	"calc-assistant/internal/service"
	"calc-assistant/internal/ui"
)

// Runner is the assistant as the server sees it.
type Runner interface {
	Run(ctx context.Context, text string) assistant.RunResult
	Parse(ctx context.Context, text string) (service.ParsedRequest, error)
	Busy() bool
	Exclusive(ctx context.Context, fn func(ctx context.Context) error) error
}

// Page is the browser tab the assistant automates.
type Page interface {
	ui.Document
	ui.PageInfo
	Navigate(ctx context.Context, url string) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// navigationReporter is implemented by drivers that know whether they have
// loaded a page yet.
type navigationReporter interface {
	IsNavigated() bool
}

type Options struct {
	Addr          string
	CalculatorURL string
	Assistant     Runner
	Page          Page
	Credentials   credential.Store
	Hub           *Hub
	Logger        *zap.Logger
}

type Server struct {
	router        *mux.Router
	assistant     Runner
	page          Page
	creds         credential.Store
	calculatorURL string
	hub           *Hub
	httpServer    *http.Server
	wsUpgrader    websocket.Upgrader
	logger        *zap.Logger
}

type ActionRequest struct {
	Action string                 `json:"action"`
	Params map[string]interface{} `json:"params"`
}

type ActionResponse struct {
	Type    string      `json:"type,omitempty"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	s := &Server{
		router:        mux.NewRouter(),
		assistant:     opts.Assistant,
		page:          opts.Page,
		creds:         opts.Credentials,
		calculatorURL: opts.CalculatorURL,
		hub:           hub,
		logger:        logger.Named("server"),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:        opts.Addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// Runs are answered synchronously and take seconds per service.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/run", s.handleRun).Methods("POST")
	api.HandleFunc("/parse", s.handleParse).Methods("POST")
	api.HandleFunc("/credential", s.handleCredentialStatus).Methods("GET")
	api.HandleFunc("/credential", s.handleCredentialSet).Methods("PUT")
	api.HandleFunc("/credential", s.handleCredentialClear).Methods("DELETE")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/navigate", s.handleNavigate).Methods("POST")
	api.HandleFunc("/screenshot", s.handleScreenshot).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.sendError(w, interpreter.ErrEmptyQuery.Error(), http.StatusBadRequest)
		return
	}
	if s.assistant.Busy() {
		s.sendError(w, assistant.ErrRunInProgress.Error(), http.StatusConflict)
		return
	}

	// A run cannot be interrupted once started, so it outlives the request.
	res := s.assistant.Run(context.WithoutCancel(r.Context()), req.Query)
	if !res.Success {
		s.send(w, http.StatusUnprocessableEntity, ActionResponse{Success: false, Message: res.Error, Data: res})
		return
	}
	s.sendSuccess(w, fmt.Sprintf("Configured %d of %d services", res.Data.SuccessCount, res.Data.Total()), res)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	parsed, err := s.assistant.Parse(r.Context(), req.Query)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, interpreter.ErrEmptyQuery) {
			status = http.StatusBadRequest
		}
		s.sendError(w, err.Error(), status)
		return
	}
	s.sendSuccess(w, "Request parsed", parsed)
}

func (s *Server) handleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	key, err := s.creds.Get(r.Context())
	if err != nil {
		s.sendError(w, fmt.Sprintf("Credential lookup failed: %v", err), http.StatusInternalServerError)
		return
	}
	s.sendSuccess(w, "Credential status", map[string]bool{"configured": key != ""})
}

func (s *Server) handleCredentialSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		s.sendError(w, "apiKey is required", http.StatusBadRequest)
		return
	}
	if err := s.creds.Set(r.Context(), req.APIKey); err != nil {
		s.sendError(w, fmt.Sprintf("Saving credential failed: %v", err), http.StatusInternalServerError)
		return
	}
	s.sendSuccess(w, "API key saved", nil)
}

func (s *Server) handleCredentialClear(w http.ResponseWriter, r *http.Request) {
	clearer, ok := s.creds.(credential.Clearer)
	if !ok {
		s.sendError(w, "Credential backend cannot be cleared", http.StatusMethodNotAllowed)
		return
	}
	if err := clearer.Clear(r.Context()); err != nil {
		s.sendError(w, fmt.Sprintf("Clearing credential failed: %v", err), http.StatusInternalServerError)
		return
	}
	s.sendSuccess(w, "API key removed", nil)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	url, urlErr := s.page.URL(ctx)
	title, titleErr := s.page.Title(ctx)

	if urlErr != nil {
		url = "Error retrieving URL"
	}
	if titleErr != nil {
		title = "Error retrieving title"
	}

	busy := s.assistant.Busy()
	status := map[string]interface{}{
		"url":          url,
		"title":        title,
		"onCalculator": urlErr == nil && automation.IsCalculatorURL(url, s.calculatorURL),
		"busy":         busy,
		"clients":      s.hub.Clients(),
	}
	if n, ok := s.page.(navigationReporter); ok {
		status["navigated"] = n.IsNavigated()
	}
	// Reading the page while a run is driving it would race the run's own
	// snapshots; report only what is cheap.
	if !busy {
		ready, err := automation.PageReady(ctx, s.page)
		status["ready"] = err == nil && ready
		if current, err := automation.DetectCurrentService(ctx, s.page); err == nil {
			status["currentService"] = current
		}
	}
	s.sendSuccess(w, "Status retrieved", status)
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		req.URL = s.calculatorURL
	}
	if req.URL == "" {
		s.sendError(w, "URL is required", http.StatusBadRequest)
		return
	}
	err := s.assistant.Exclusive(r.Context(), func(ctx context.Context) error {
		return s.page.Navigate(ctx, req.URL)
	})
	if errors.Is(err, assistant.ErrRunInProgress) {
		s.sendError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		s.sendError(w, fmt.Sprintf("Navigation failed: %v", err), http.StatusInternalServerError)
		return
	}

	s.sendSuccess(w, "Navigation successful", nil)
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	buf, err := s.page.Screenshot(r.Context())
	if err != nil {
		s.sendError(w, fmt.Sprintf("Screenshot failed: %v", err), http.StatusInternalServerError)
		return
	}

	encoded := base64.StdEncoding.EncodeToString(buf)
	s.sendSuccess(w, "Screenshot captured", map[string]string{
		"image": encoded,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	s.hub.add(c)
	defer func() {
		s.hub.remove(c)
		conn.Close()
	}()

	s.logger.Debug("websocket client connected")

	for {
		var req ActionRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read error", zap.Error(err))
			}
			break
		}

		response := s.handleSocketAction(r.Context(), req)
		if err := c.writeJSON(response); err != nil {
			s.logger.Debug("websocket write error", zap.Error(err))
			break
		}
	}

	s.logger.Debug("websocket client disconnected")
}

func (s *Server) handleSocketAction(ctx context.Context, req ActionRequest) ActionResponse {
	response := ActionResponse{Type: "response", Success: true, Message: "Action completed"}

	switch req.Action {
	case "run":
		query, _ := req.Params["query"].(string)
		if strings.TrimSpace(query) == "" {
			response.Success = false
			response.Message = interpreter.ErrEmptyQuery.Error()
			break
		}
		res := s.assistant.Run(context.WithoutCancel(ctx), query)
		response.Success = res.Success
		response.Data = res
		if !res.Success {
			response.Message = res.Error
		}

	case "parse":
		query, _ := req.Params["query"].(string)
		parsed, err := s.assistant.Parse(ctx, query)
		if err != nil {
			response.Success = false
			response.Message = err.Error()
			break
		}
		response.Data = parsed

	case "ping":
		response.Message = "pong"

	default:
		response.Success = false
		response.Message = "Unknown action"
	}
	return response
}

func (s *Server) send(w http.ResponseWriter, status int, resp ActionResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Debug("response not written", zap.Error(err))
	}
}

func (s *Server) sendSuccess(w http.ResponseWriter, message string, data interface{}) {
	s.send(w, http.StatusOK, ActionResponse{Success: true, Message: message, Data: data})
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	s.send(w, statusCode, ActionResponse{Success: false, Message: message})
}

func (s *Server) Start() error {
	s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
