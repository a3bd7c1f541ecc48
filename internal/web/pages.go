package web

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"

	"go-portwatch/internal/models"
)

//go:embed templates/*.html
var templates embed.FS

// NewEngine loads the embedded page templates.
func NewEngine() *html.Engine {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("mod", func(a, b int) int { return a % b })
	engine.AddFunc("stamp", stamp)
	return engine
}

func stamp(v interface{}) string {
	const layout = "2006-01-02 15:04"
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Local().Format(layout)
	case *time.Time:
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Local().Format(layout)
	}
	return ""
}

type portView struct {
	models.PortRecord
	Class string
}

// idleClass buckets an unused port into the 14/30/90 day display bands.
func idleClass(p models.PortRecord, now time.Time) string {
	class := string(p.Status)
	if p.IsUnused && p.UnusedSince != nil {
		switch idle := now.Sub(*p.UnusedSince); {
		case idle > 90*24*time.Hour:
			class = "idle-90"
		case idle > 30*24*time.Hour:
			class = "idle-30"
		default:
			class = "idle-14"
		}
	}
	if p.Stale {
		class += " stale"
	}
	return class
}

func (h *handlers) indexPage(c *fiber.Ctx) error {
	switches, err := h.svc.Inventory(c.UserContext())
	if err != nil {
		h.logger.Error().Err(err).Msg("list switches")
		return c.Status(StatusCode(err)).Render("index", fiber.Map{"Error": err.Error()})
	}
	return c.Render("index", fiber.Map{
		"Switches": switches,
	})
}

func (h *handlers) portsPage(c *fiber.Ctx) error {
	id := c.Params("id")
	snap, err := h.svc.Poll(c.UserContext(), id, c.QueryBool("refresh"))
	if err != nil {
		h.logger.Warn().Err(err).Str("switch", id).Msg("ports page")
		return c.Status(StatusCode(err)).Render("ports", fiber.Map{"ID": id, "Error": err.Error()})
	}

	ports := make([]portView, 0, len(snap.Ports))
	for _, p := range snap.Ports {
		ports = append(ports, portView{PortRecord: p, Class: idleClass(p, snap.CapturedAt)})
	}
	return c.Render("ports", fiber.Map{
		"ID":       id,
		"Snapshot": snap,
		"Ports":    ports,
	})
}
