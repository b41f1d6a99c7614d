package service

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/wognsths/MarketSage/pkg/auth"
	hosterrors "github.com/wognsths/MarketSage/pkg/errors"
	"github.com/wognsths/MarketSage/pkg/hostagent"
	"github.com/wognsths/MarketSage/pkg/notify"
)

/*
TaskRequest is the inbound payload for task creation. SessionID continues an
existing conversation; NotificationURL subscribes the caller to push updates
for the resulting task.
*/
type TaskRequest struct {
	Message         string `json:"message"`
	SessionID       string `json:"session_id,omitempty"`
	NotificationURL string `json:"notification_url,omitempty"`
}

/*
HostServer exposes the coordinator over HTTP: task creation, agent listing
and the JWKS document subscribers verify notification tokens against.
*/
type HostServer struct {
	app        *fiber.App
	host       *hostagent.HostAgent
	dispatcher *notify.Dispatcher
	auth       *notify.SenderAuth
	limiter    *auth.RateLimiter
}

// NewHostServer wires the HTTP surface. A nil limiter disables rate limiting
// on the task-creation endpoint.
func NewHostServer(
	host *hostagent.HostAgent,
	dispatcher *notify.Dispatcher,
	senderAuth *notify.SenderAuth,
	limiter *auth.RateLimiter,
) *HostServer {
	srv := &HostServer{
		app: fiber.New(fiber.Config{
			AppName:           "MarketSage Host",
			ServerHeader:      "MarketSage-Host-Server",
			StreamRequestBody: true,
		}),
		host:       host,
		dispatcher: dispatcher,
		auth:       senderAuth,
		limiter:    limiter,
	}

	srv.app.Use(logger.New())
	srv.app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	srv.app.Get(healthcheck.ReadinessEndpoint, healthcheck.New())
	srv.app.Get(healthcheck.StartupEndpoint, healthcheck.New())
	srv.app.Get("/", srv.handleRoot)
	srv.app.Get("/host/agents", srv.handleListAgents)
	srv.app.Get("/host/metrics", srv.handleMetrics)
	srv.app.Post("/host/tasks/:agent", srv.handleCreateTask)
	srv.app.Get("/.well-known/jwks.json", srv.handleJWKS)

	return srv
}

func (srv *HostServer) Start(addr string) error {
	return srv.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// App exposes the fiber app for in-process testing.
func (srv *HostServer) App() *fiber.App {
	return srv.app
}

func (srv *HostServer) handleRoot(ctx fiber.Ctx) error {
	return ctx.SendString("OK")
}

func (srv *HostServer) handleListAgents(ctx fiber.Ctx) error {
	return ctx.Status(fiber.StatusOK).JSON(srv.host.ListAgents())
}

func (srv *HostServer) handleJWKS(ctx fiber.Ctx) error {
	return ctx.Status(fiber.StatusOK).JSON(srv.auth.JWKS())
}

func (srv *HostServer) handleMetrics(ctx fiber.Ctx) error {
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"notifications": srv.dispatcher.Metrics().Snapshot(),
	})
}

func (srv *HostServer) handleCreateTask(ctx fiber.Ctx) error {
	if srv.limiter != nil && !srv.limiter.Allow() {
		return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "rate limit exceeded",
		})
	}

	var request TaskRequest

	if err := ctx.Bind().Body(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body: " + err.Error(),
		})
	}

	if request.Message == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message is required",
		})
	}

	agentName := ctx.Params("agent")

	result, err := srv.host.SendTask(
		ctx.Context(), agentName, request.Message, request.SessionID,
	)

	if err != nil {
		log.Error("task delegation failed", "agent", agentName, "error", err)
		return ctx.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	if request.NotificationURL != "" {
		srv.dispatcher.RegisterSubscriber(result.TaskID, request.NotificationURL)
	}

	return ctx.Status(fiber.StatusOK).JSON(result)
}

func statusFor(err error) int {
	var notFound *hosterrors.AgentNotFound
	if errors.As(err, &notFound) {
		return fiber.StatusNotFound
	}

	var unavailable *hosterrors.ConnectionUnavailable
	if errors.As(err, &unavailable) {
		return fiber.StatusServiceUnavailable
	}

	var failed *hosterrors.TaskFailed
	var canceled *hosterrors.TaskCanceled
	if errors.As(err, &failed) || errors.As(err, &canceled) {
		return fiber.StatusBadGateway
	}

	return fiber.StatusInternalServerError
}
