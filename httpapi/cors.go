package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORSConfig lists the browser-facing cross-origin settings.
type CORSConfig struct {
	AllowOrigins string
	MaxAge       int
}

// CORS builds the fiber cross-origin middleware for the dashboard.
// Credentials are only allowed for an explicit origin list; fiber rejects
// credentials combined with a wildcard origin.
func CORS(cfg CORSConfig) fiber.Handler {
	origins := strings.TrimSpace(cfg.AllowOrigins)
	if origins == "" {
		origins = "*"
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 86400
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Authorization,X-Client-Info,Apikey,Content-Type," + HeaderRequestID,
		ExposeHeaders:    HeaderRequestID,
		AllowCredentials: origins != "*",
		MaxAge:           maxAge,
	})
}
