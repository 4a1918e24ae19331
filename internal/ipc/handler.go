package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aatumaykin/agentpilot/internal/automation"
	"github.com/aatumaykin/agentpilot/internal/dispatch"
	"github.com/aatumaykin/agentpilot/internal/logger"
)

// Backend is the daemon side of the protocol.
type Backend interface {
	Submit(text string) (*dispatch.Receipt, error)
	Status() Status
	StartAutomation(ctx context.Context, cfg automation.StartConfig) error
	StopAutomation()
}

// Handler обрабатывает IPC запросы
type Handler struct {
	logger  *logger.Logger
	backend Backend

	mu         sync.Mutex
	socket     net.Listener
	socketPath string
	ctx        context.Context
	wg         sync.WaitGroup
}

// NewHandler создаёт новый IPC Handler
func NewHandler(l *logger.Logger, backend Backend) *Handler {
	return &Handler{
		logger:  l.Component("ipc"),
		backend: backend,
		ctx:     context.Background(),
	}
}

// Start запускает IPC сервер
func (h *Handler) Start(ctx context.Context, socketPath string) error {
	// Удаляем старый socket если существует
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	h.mu.Lock()
	h.ctx = ctx
	h.socket = listener
	h.socketPath = socketPath
	h.mu.Unlock()

	h.wg.Add(1)
	go h.acceptConnections(ctx, listener)

	h.logger.Info("IPC server started", logger.Field{Key: "socket", Value: socketPath})
	return nil
}

// acceptConnections принимает новые подключения
func (h *Handler) acceptConnections(ctx context.Context, listener net.Listener) {
	defer h.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			h.logger.Error("failed to accept connection", err)
			continue
		}

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.handleConnection(conn)
		}()
	}
}

// handleConnection обрабатывает одно подключение
func (h *Handler) handleConnection(conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		h.sendResponse(conn, Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	h.logger.Debug("ipc request", logger.Field{Key: "type", Value: req.Type})
	h.sendResponse(conn, h.handle(&req))
}

func (h *Handler) handle(req *Request) Response {
	switch req.Type {
	case TypeSubmit:
		return h.handleSubmit(req)
	case TypeStatus:
		status := h.backend.Status()
		return Response{Success: true, Status: &status}
	case TypeStart:
		return h.handleStart(req)
	case TypeStop:
		h.backend.StopAutomation()
		return Response{Success: true}
	default:
		return Response{Error: fmt.Sprintf("unknown request type: %s", req.Type)}
	}
}

// handleSubmit ставит prompt в очередь и при Wait ждёт доставки
func (h *Handler) handleSubmit(req *Request) Response {
	if strings.TrimSpace(req.Text) == "" {
		return Response{Error: dispatch.ErrEmptyPrompt.Error()}
	}

	receipt, err := h.backend.Submit(req.Text)
	if err != nil {
		return Response{Error: err.Error()}
	}

	resp := Response{Success: true, CommandID: receipt.ID(), CommandStatus: dispatch.StatusPending}
	if !req.Wait {
		return resp
	}

	status, err := receipt.Wait(h.context())
	resp.CommandStatus = status
	if err != nil {
		resp.Success = false
		resp.Error = err.Error()
	}
	return resp
}

func (h *Handler) handleStart(req *Request) Response {
	cfg := automation.StartConfig{
		IsBackgroundMode: req.Background,
		IsPro:            req.Pro,
		IDE:              req.IDE,
		PollInterval:     time.Duration(req.PollIntervalMS) * time.Millisecond,
	}
	if err := h.backend.StartAutomation(h.context(), cfg); err != nil {
		return Response{Error: err.Error()}
	}
	return Response{Success: true, SessionID: h.backend.Status().Session.SessionID}
}

func (h *Handler) context() context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctx
}

func (h *Handler) sendResponse(conn net.Conn, resp Response) {
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		h.logger.Error("failed to send response", err)
	}
}

// Stop останавливает IPC сервер
func (h *Handler) Stop() error {
	h.mu.Lock()
	socket, path := h.socket, h.socketPath
	h.socket = nil
	h.mu.Unlock()

	if socket == nil {
		return nil
	}
	if err := socket.Close(); err != nil {
		return fmt.Errorf("failed to close socket: %w", err)
	}
	h.wg.Wait()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		h.logger.Warn("failed to remove socket", logger.Field{Key: "error", Value: err.Error()})
	}
	h.logger.Info("IPC server stopped")
	return nil
}
