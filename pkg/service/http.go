package service

import (
	"bytes"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"

	"github.com/dendrite-ai/dendrite/pkg/engine"
)

/*
HTTPServer is a small sidecar next to the MCP surface: health checking,
engine statistics and export download for operators and scripts that do not
speak MCP.
*/
type HTTPServer struct {
	app    *fiber.App
	engine *engine.Engine
}

func NewHTTPServer(eng *engine.Engine) *HTTPServer {
	return &HTTPServer{
		app: fiber.New(fiber.Config{
			AppName:      "Dendrite",
			ServerHeader: "Dendrite-Engine",
		}),
		engine: eng,
	}
}

// Run registers the routes and blocks serving on addr.
func (srv *HTTPServer) Run(addr string) error {
	srv.app.Get("/healthz", func(ctx fiber.Ctx) error {
		return ctx.SendString("OK")
	})

	srv.app.Get("/stats", func(ctx fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(srv.engine.Stats())
	})

	srv.app.Get("/export", func(ctx fiber.Ctx) error {
		var buf bytes.Buffer
		if err := srv.engine.Export(&buf); err != nil {
			return ctx.Status(fiber.StatusInternalServerError).SendString(err.Error())
		}
		ctx.Set("Content-Type", "application/x-ndjson")
		return ctx.Send(buf.Bytes())
	})

	log.Info("http sidecar listening", "addr", addr)
	return srv.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (srv *HTTPServer) Shutdown() error {
	return srv.app.Shutdown()
}
