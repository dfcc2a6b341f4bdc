// Package webhook implements the deploy listener: a small HTTP server that
// receives push events, checks their HMAC signature and runs the deploy
// script when the configured branch moves.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	// SignatureHeader carries "sha256=<hex hmac of the body>"
	SignatureHeader = "X-Hub-Signature-256"
	// EventHeader names the event type, e.g. "push" or "ping"
	EventHeader = "X-GitHub-Event"

	maxPayloadBytes = 5 << 20
	signaturePrefix = "sha256="
)

// ErrBadSignature is returned when the signature header is missing or wrong
var ErrBadSignature = errors.New("invalid signature")

// Config holds the listener configuration
type Config struct {
	Port     string `env:"WEBHOOK_PORT" env-default:"9000"`
	Secret   string `env:"WEBHOOK_SECRET"`
	Script   string `env:"DEPLOY_SCRIPT" env-default:"./deploy.sh"`
	Branch   string `env:"DEPLOY_BRANCH" env-default:"main"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	Env      string `env:"GO_ENV" env-default:"production"`
}

// LoadConfig reads .env (when present) and the environment. An empty
// WEBHOOK_SECRET is accepted only in development.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if strings.TrimSpace(cfg.Script) == "" {
		return nil, fmt.Errorf("DEPLOY_SCRIPT is required")
	}
	if strings.TrimSpace(cfg.Secret) == "" && cfg.Env != "development" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required when GO_ENV is %q", cfg.Env)
	}
	return &cfg, nil
}

// Runner executes one deployment
type Runner interface {
	Run(ctx context.Context) error
}

// ScriptRunner runs a shell script with bash and logs its output
type ScriptRunner struct {
	Path   string
	Logger *slog.Logger
}

// Run blocks until the script exits
func (r *ScriptRunner) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "bash", r.Path)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.Logger.Info("deploy output", "script", r.Path, "output", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("deploy script %s failed: %w", r.Path, err)
	}
	return nil
}

type pushEvent struct {
	Ref        string `json:"ref"`
	After      string `json:"after"`
	HeadCommit *struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"head_commit"`
	Pusher struct {
		Name string `json:"name"`
	} `json:"pusher"`
}

// Handler receives push events and starts deployments, one at a time
type Handler struct {
	secret []byte
	ref    string
	runner Runner
	logger *slog.Logger

	running sync.Mutex
	wg      sync.WaitGroup
}

// NewHandler creates a handler deploying pushes to branch
func NewHandler(secret, branch string, runner Runner, logger *slog.Logger) *Handler {
	return &Handler{
		secret: []byte(secret),
		ref:    "refs/heads/" + strings.TrimPrefix(branch, "refs/heads/"),
		runner: runner,
		logger: logger.With("component", "deploy_webhook"),
	}
}

// Verify checks the signature of body. With no secret configured, which
// LoadConfig allows only in development, every payload is accepted.
func (h *Handler) Verify(body []byte, signature string) error {
	if len(h.secret) == 0 {
		return nil
	}
	hexSum, ok := strings.CutPrefix(strings.TrimSpace(signature), signaturePrefix)
	if !ok {
		return ErrBadSignature
	}
	got, err := hex.DecodeString(hexSum)
	if err != nil {
		return ErrBadSignature
	}
	if !hmac.Equal(got, Sign(h.secret, body)) {
		return ErrBadSignature
	}
	return nil
}

// Sign returns the raw HMAC-SHA256 of body
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureFor formats the header value GitHub would send for body
func SignatureFor(secret string, body []byte) string {
	return signaturePrefix + hex.EncodeToString(Sign([]byte(secret), body))
}

// Deploy handles POST /webhook
func (h *Handler) Deploy(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Failed to read body", "code": "BAD_REQUEST"})
		return
	}

	if err := h.Verify(body, c.GetHeader(SignatureHeader)); err != nil {
		h.logger.Warn("rejected webhook", "error", err, "remote", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid signature", "code": "INVALID_SIGNATURE"})
		return
	}

	if event := c.GetHeader(EventHeader); event != "" && event != "push" {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Ignored " + event + " event"})
		return
	}

	var push pushEvent
	if err := json.Unmarshal(body, &push); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid push payload", "code": "VALIDATION_ERROR"})
		return
	}
	if push.Ref != h.ref {
		h.logger.Info("skipping push", "ref", push.Ref, "want", h.ref)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Skipped " + push.Ref})
		return
	}

	if !h.running.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Deploy already running", "code": "DEPLOY_RUNNING"})
		return
	}

	commit := push.After
	if push.HeadCommit != nil && push.HeadCommit.ID != "" {
		commit = push.HeadCommit.ID
	}
	h.logger.Info("deploy started", "ref", push.Ref, "commit", commit, "pusher", push.Pusher.Name)

	h.wg.Add(1)
	go func(ctx context.Context) {
		defer h.wg.Done()
		defer h.running.Unlock()
		if err := h.runner.Run(ctx); err != nil {
			h.logger.Error("deploy failed", "commit", commit, "error", err)
			return
		}
		h.logger.Info("deploy finished", "commit", commit)
	}(context.WithoutCancel(c.Request.Context()))

	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Deploy started"})
}

// Wait blocks until running deployments finish
func (h *Handler) Wait() {
	h.wg.Wait()
}

// NewRouter wires the listener routes
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/webhook", h.Deploy)
	router.POST("/deploy", h.Deploy)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook server running"})
	})
	return router
}
