package devserver

import (
	"github.com/birbparty/flat-client/internal/telemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
)

// SetupRoutes configures all routes
func SetupRoutes(app *fiber.App, h *Handler, gatherer prometheus.Gatherer) {
	// Flat
	app.Post("/v2/login/phone", h.Login)
	app.Post("/v2/login/email", h.Login)

	v1 := app.Group("/v1", h.RequireAuth)
	v1.Post("/logout", h.Logout)
	v1.Post("/room/list/all", h.ListRooms)
	v1.Post("/room/join", h.JoinRoom)
	v1.Post("/room/info/users", h.Members)

	app.Post("/v2/cloud-storage/convert/start", h.RequireAuth, h.StartConvert)

	// Netless
	app.Get("/services/conversion/tasks/:uuid", h.ConversionStatus)

	// Agora
	const history = "/dev/v2/project/:appid/rtm/message/history/query"
	app.Post(history, h.HistoryQuery)
	app.Get(history+"/:handle", h.HistoryResult)

	app.Get("/health", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(telemetry.PrometheusHandlerFor(gatherer)))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "flat-devserver",
			"status":  "running",
			"endpoints": fiber.Map{
				"login":    "POST /v2/login/{phone,email}",
				"rooms":    "POST /v1/room/list/all?page=N",
				"join":     "POST /v1/room/join",
				"members":  "POST /v1/room/info/users",
				"convert":  "POST /v2/cloud-storage/convert/start",
				"progress": "GET /services/conversion/tasks/:uuid",
				"history":  "POST /dev/v2/project/:appid/rtm/message/history/query",
			},
		})
	})

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Endpoint not found"})
	})
}
