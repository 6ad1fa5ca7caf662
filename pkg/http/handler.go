package http

import "github.com/labstack/echo/v4"

// Handler mounts its routes on the server's Echo instance. NewServer calls
// it after the recover, logging, metrics and CORS middleware are installed,
// so every registered route passes through them.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
