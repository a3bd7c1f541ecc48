package web

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"go-portwatch/internal/guard"
	"go-portwatch/internal/inventory"
	"go-portwatch/internal/models"
	"go-portwatch/internal/parser"
	"go-portwatch/internal/poller"
	"go-portwatch/internal/probe"
	"go-portwatch/internal/session"
)

// Service is the part of the poller the routes use.
type Service interface {
	Poll(ctx context.Context, id string, force bool) (*models.Snapshot, error)
	Refresh(ctx context.Context, id string) (*models.Snapshot, error)
	MACTable(ctx context.Context, id, port string) ([]models.MACEntry, error)
	Probe(ctx context.Context, id string) (probe.Result, error)
	Inventory(ctx context.Context) ([]poller.SwitchStatus, error)
	Forget(id string)
	CachedHosts() int
}

type Store interface {
	List(ctx context.Context) ([]models.Switch, error)
	Replace(ctx context.Context, switches []models.Switch) error
}

type handlers struct {
	svc    Service
	store  Store
	logger zerolog.Logger
}

func SetupRoutes(app *fiber.App, svc Service, store Store, logger zerolog.Logger) {
	h := &handlers{svc: svc, store: store, logger: logger}

	app.Get("/health", h.health)

	api := app.Group("/api")
	api.Get("/switches", h.listSwitches)
	api.Get("/switches/:id/ports", h.ports)
	// port names contain slashes: /api/switches/sw1/ports/Gi1/0/1/mac
	api.Get("/switches/:id/ports/*", h.macTable)
	api.Post("/switches/:id/refresh", h.refresh)
	api.Get("/switches/:id/ping", h.ping)
	api.Get("/inventory", h.getInventory)
	api.Put("/inventory", h.putInventory)

	app.Get("/", h.indexPage)
	app.Get("/switches/:id", h.portsPage)
}

// StatusCode maps service errors to HTTP status codes.
func StatusCode(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, inventory.ErrUnknownSwitch):
		return fiber.StatusNotFound
	case errors.Is(err, poller.ErrInvalidPort), errors.Is(err, inventory.ErrInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, guard.ErrCommandRejected):
		return fiber.StatusInternalServerError
	case errors.Is(err, session.ErrAuthFailure):
		return fiber.StatusUnauthorized
	case errors.Is(err, session.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, session.ErrUnreachable), errors.Is(err, session.ErrProtocol), errors.Is(err, parser.ErrParse):
		return fiber.StatusBadGateway
	}
	var pe *poller.PollError
	if errors.As(err, &pe) {
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func (h *handlers) fail(c *fiber.Ctx, err error) error {
	code := StatusCode(err)
	ev := h.logger.Warn()
	if code == fiber.StatusInternalServerError {
		ev = h.logger.Error()
	}
	ev.Err(err).Str("path", c.Path()).Int("status", code).Msg("request failed")
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (h *handlers) health(c *fiber.Ctx) error {
	switches, err := h.svc.Inventory(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"status":   "ok",
		"switches": len(switches),
		"cached":   h.svc.CachedHosts(),
		"time":     time.Now().UTC(),
	})
}

func (h *handlers) listSwitches(c *fiber.Ctx) error {
	switches, err := h.svc.Inventory(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(switches)
}

func (h *handlers) ports(c *fiber.Ctx) error {
	snap, err := h.svc.Poll(c.UserContext(), c.Params("id"), c.QueryBool("refresh"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(snap)
}

func (h *handlers) macTable(c *fiber.Ctx) error {
	rest := c.Params("*")
	if !strings.HasSuffix(rest, "/mac") {
		return h.fail(c, fiber.ErrNotFound)
	}
	port, err := url.PathUnescape(strings.TrimSuffix(rest, "/mac"))
	if err != nil {
		return h.fail(c, fiber.NewError(fiber.StatusBadRequest, "bad port name"))
	}

	entries, err := h.svc.MACTable(c.UserContext(), c.Params("id"), port)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"switchId": c.Params("id"),
		"port":     port,
		"entries":  entries,
	})
}

func (h *handlers) refresh(c *fiber.Ctx) error {
	snap, err := h.svc.Refresh(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(snap)
}

func (h *handlers) ping(c *fiber.Ctx) error {
	res, err := h.svc.Probe(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

func (h *handlers) getInventory(c *fiber.Ctx) error {
	switches, err := h.store.List(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"switches": switches})
}

func (h *handlers) putInventory(c *fiber.Ctx) error {
	var body struct {
		Switches []models.Switch `json:"switches"`
	}
	if err := c.BodyParser(&body); err != nil {
		return h.fail(c, fiber.NewError(fiber.StatusBadRequest, err.Error()))
	}

	ctx := c.UserContext()
	old, err := h.store.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.store.Replace(ctx, body.Switches); err != nil {
		return h.fail(c, err)
	}

	keep := make(map[string]bool, len(body.Switches))
	for _, sw := range body.Switches {
		keep[sw.Name] = true
	}
	for _, sw := range old {
		if !keep[sw.Name] {
			h.svc.Forget(sw.Name)
		}
	}

	h.logger.Info().Int("switches", len(body.Switches)).Msg("inventory replaced")
	return h.getInventory(c)
}
