package server

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ImageHandler describes the component serving asset files. It allows
// injecting fake handlers during tests.
type ImageHandler interface {
	Handle(fiber.Ctx) error
}

// ImageHandlerFunc adapts a function to the ImageHandler interface.
type ImageHandlerFunc func(fiber.Ctx) error

// Handle makes ImageHandlerFunc satisfy ImageHandler.
func (f ImageHandlerFunc) Handle(c fiber.Ctx) error {
	return f(c)
}

// AppOptions controls how the Fiber application should be assembled.
type AppOptions struct {
	Logger *logrus.Logger
	Images ImageHandler
}

// LocalImagePaths 列出资源接口的对外路径，/api 前缀兼容旧版前端。
var LocalImagePaths = []string{"/local-image", "/api/local-image"}

const contextKeyRequestID = "_lsu_request_id"

// NewApp builds a Fiber application with request-id, CORS and panic recovery
// middlewares, then mounts the asset handler on every LocalImagePaths entry.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Images == nil {
		return nil, errors.New("image handler is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		AppName:       "lsu-assets",
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())
	app.Use(cors.New(corsConfig()))

	for _, path := range LocalImagePaths {
		app.Add([]string{fiber.MethodGet, fiber.MethodHead}, path, opts.Images.Handle)
	}

	return app, nil
}

// corsConfig 对任意来源开放并允许携带凭证。fiber 禁止 "*" 与凭证同时出现，
// 因此通过 AllowOriginsFunc 回显请求的 Origin。
func corsConfig() cors.Config {
	return cors.Config{
		AllowOriginsFunc: func(string) bool { return true },
		AllowMethods: []string{
			fiber.MethodGet,
			fiber.MethodHead,
			fiber.MethodPost,
			fiber.MethodPut,
			fiber.MethodPatch,
			fiber.MethodDelete,
			fiber.MethodOptions,
		},
		AllowCredentials: true,
		ExposeHeaders: []string{
			fiber.HeaderETag,
			fiber.HeaderContentLength,
			fiber.HeaderAcceptRanges,
			"X-Request-ID",
		},
	}
}

// requestIDMiddleware 为每个请求生成 ID，写入 Locals 与响应头。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
