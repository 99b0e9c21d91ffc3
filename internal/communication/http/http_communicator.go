package httpcomm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/AnishMulay/sandfile/internal/communication"
	"github.com/AnishMulay/sandfile/internal/log_service"
	"github.com/gin-gonic/gin"
)

// CodeHeader carries the SandCode next to the HTTP status, since several
// codes share one status. Other response headers under headerPrefix are
// handed back to the caller in Response.Headers.
const (
	CodeHeader   = "X-Sand-Code"
	headerPrefix = "X-Sand-"
)

type HTTPCommunicator struct {
	listenAddress string
	httpServer    *http.Server
	handler       communication.MessageHandler
	ls            log_service.LogService
	payloads      *communication.PayloadRegistry
	client        *http.Client
	mu            sync.RWMutex
}

func NewHTTPCommunicator(listenAddress string, ls log_service.LogService) *HTTPCommunicator {
	return &HTTPCommunicator{
		listenAddress: listenAddress,
		ls:            ls,
		payloads:      communication.NewPayloadRegistry(),
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *HTTPCommunicator) Address() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listenAddress
}

func (c *HTTPCommunicator) RegisterPayloadType(msgType string, sample any) {
	c.payloads.Register(msgType, sample)
}

// Engine builds the gin router serving handler. Start uses it; tests can
// drive it through httptest without opening a socket.
func (c *HTTPCommunicator) Engine(handler communication.MessageHandler) *gin.Engine {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.POST("/message", c.handleMessage)
	engine.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "address": c.Address()})
	})
	return engine
}

func (c *HTTPCommunicator) Start(handler communication.MessageHandler) error {
	c.ls.Info(log_service.LogEvent{
		Message:  "Starting HTTP communicator",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	lis, err := net.Listen("tcp", c.listenAddress)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to listen on address",
			Metadata: map[string]any{"address": c.listenAddress, "error": err.Error()},
		})
		return fmt.Errorf("%w: %s: %v", communication.ErrListenFailed, c.listenAddress, err)
	}

	engine := c.Engine(handler)

	c.mu.Lock()
	c.listenAddress = lis.Addr().String()
	c.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := c.httpServer
	c.mu.Unlock()

	c.ls.Info(log_service.LogEvent{
		Message:  "HTTP communicator started successfully",
		Metadata: map[string]any{"address": lis.Addr().String()},
	})

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.ls.Error(log_service.LogEvent{
				Message:  "HTTP server error",
				Metadata: map[string]any{"address": lis.Addr().String(), "error": err.Error()},
			})
		}
	}()

	return nil
}

func (c *HTTPCommunicator) Stop() error {
	c.mu.Lock()
	srv := c.httpServer
	c.httpServer = nil
	c.mu.Unlock()

	if srv == nil {
		return nil
	}

	c.ls.Info(log_service.LogEvent{
		Message:  "Stopping HTTP communicator",
		Metadata: map[string]any{"address": c.Address()},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to stop HTTP server",
			Metadata: map[string]any{"address": c.Address(), "error": err.Error()},
		})
		return fmt.Errorf("%w: %v", communication.ErrServerStopFailed, err)
	}

	c.ls.Info(log_service.LogEvent{
		Message:  "HTTP communicator stopped successfully",
		Metadata: map[string]any{"address": c.Address()},
	})
	return nil
}

func statusFor(code communication.SandCode) int {
	switch code {
	case communication.CodeOK:
		return http.StatusOK
	case communication.CodeBadRequest, communication.CodeInvalidHandle:
		return http.StatusBadRequest
	case communication.CodeNotFound:
		return http.StatusNotFound
	case communication.CodeAlreadyExists, communication.CodeConflict:
		return http.StatusConflict
	case communication.CodeCapacityExceeded:
		return http.StatusInsufficientStorage
	case communication.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func mapFromHTTPCode(code int) communication.SandCode {
	switch code {
	case http.StatusOK:
		return communication.CodeOK
	case http.StatusBadRequest:
		return communication.CodeBadRequest
	case http.StatusNotFound:
		return communication.CodeNotFound
	case http.StatusConflict:
		return communication.CodeConflict
	case http.StatusInsufficientStorage:
		return communication.CodeCapacityExceeded
	case http.StatusServiceUnavailable:
		return communication.CodeUnavailable
	default:
		return communication.CodeInternal
	}
}

func (c *HTTPCommunicator) Send(ctx context.Context, to string, msg communication.Message) (*communication.Response, error) {
	c.ls.Debug(log_service.LogEvent{
		Message:  "Sending HTTP message",
		Metadata: map[string]any{"to": to, "type": msg.Type, "from": msg.From},
	})

	data, err := communication.EncodeMessage(msg)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to marshal message",
			Metadata: map[string]any{"to": to, "type": msg.Type, "error": err.Error()},
		})
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("http://%s/message", to), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", communication.ErrClientCreateFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to send HTTP request",
			Metadata: map[string]any{"to": to, "type": msg.Type, "error": err.Error()},
		})
		return nil, fmt.Errorf("%w: %v", communication.ErrMessageSendFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to read HTTP response",
			Metadata: map[string]any{"to": to, "type": msg.Type, "error": err.Error()},
		})
		return nil, fmt.Errorf("%w: %v", communication.ErrResponseReadFailed, err)
	}

	code := communication.SandCode(resp.Header.Get(CodeHeader))
	if code == "" {
		code = mapFromHTTPCode(resp.StatusCode)
	}

	var headers map[string]string
	for k := range resp.Header {
		if k == CodeHeader || !strings.HasPrefix(k, headerPrefix) {
			continue
		}
		if headers == nil {
			headers = make(map[string]string)
		}
		headers[k] = resp.Header.Get(k)
	}

	c.ls.Debug(log_service.LogEvent{
		Message:  "HTTP message sent successfully",
		Metadata: map[string]any{"to": to, "type": msg.Type, "status": resp.StatusCode, "responseCode": code},
	})

	return &communication.Response{Code: code, Body: body, Headers: headers}, nil
}

func (c *HTTPCommunicator) writeResponse(ctx *gin.Context, resp *communication.Response) {
	for k, v := range resp.Headers {
		ctx.Header(k, v)
	}
	ctx.Header(CodeHeader, string(resp.Code))
	ctx.Data(statusFor(resp.Code), "application/octet-stream", resp.Body)
}

func (c *HTTPCommunicator) handleMessage(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to read HTTP request body",
			Metadata: map[string]any{"error": err.Error()},
		})
		c.writeResponse(ctx, &communication.Response{Code: communication.CodeBadRequest, Body: []byte(err.Error())})
		return
	}

	msg, err := c.payloads.DecodeMessage(body)
	if err != nil {
		c.ls.Warn(log_service.LogEvent{
			Message:  "Rejected malformed HTTP message",
			Metadata: map[string]any{"error": err.Error()},
		})
		c.writeResponse(ctx, &communication.Response{Code: communication.CodeBadRequest, Body: []byte(err.Error())})
		return
	}

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler == nil {
		c.writeResponse(ctx, &communication.Response{
			Code: communication.CodeUnavailable,
			Body: []byte(communication.ErrHandlerNotSet.Error()),
		})
		return
	}

	resp, err := handler(ctx.Request.Context(), msg)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Message handler failed",
			Metadata: map[string]any{"type": msg.Type, "error": err.Error()},
		})
		c.writeResponse(ctx, &communication.Response{Code: communication.CodeInternal, Body: []byte(err.Error())})
		return
	}
	if resp == nil {
		c.writeResponse(ctx, &communication.Response{
			Code: communication.CodeInternal,
			Body: []byte(communication.ErrMessageHandlerFailed.Error()),
		})
		return
	}

	c.writeResponse(ctx, resp)
}
