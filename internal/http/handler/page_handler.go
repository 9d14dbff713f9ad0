package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/spectra/internal/app/apperror"
	"github.com/sifan077/spectra/internal/app/model"
	"github.com/sifan077/spectra/internal/app/service"
	"github.com/sifan077/spectra/internal/http/view"
	"go.uber.org/zap"
)

// PageDeps groups dependencies required by the item page route.
type PageDeps struct {
	Logger   *zap.Logger
	Items    service.ItemService
	Sessions *Sessions
}

// PageHandler serves items at their short path.
type PageHandler struct {
	logger   *zap.Logger
	items    service.ItemService
	sessions *Sessions
}

func NewPageHandler(deps PageDeps) *PageHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageHandler{
		logger:   logger,
		items:    deps.Items,
		sessions: deps.Sessions,
	}
}

// Register wires the catch-all item route. It must be registered last.
func (h *PageHandler) Register(router fiber.Router) {
	router.Get("/:path", h.Serve)
	router.Post("/:path", h.Serve)
}

// Serve handles GET|POST /:path. POST carries the password from the prompt form.
func (h *PageHandler) Serve(c *fiber.Ctx) error {
	path := c.Params("path")
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}

	d, err := h.items.Open(userContext(c), service.OpenRequest{
		Path:     path,
		Actor:    actor,
		Password: passwordParam(c),
		RemoteIP: c.IP(),
	})
	if apperror.Is(err, apperror.KindNotFound) {
		return h.html(c, fiber.StatusNotFound, func() (string, error) { return view.RenderNotFoundPage(path) })
	}
	if err != nil {
		return err
	}

	switch d.Auth {
	case service.AuthPrompt, service.AuthDenied:
		status := fiber.StatusOK
		if d.Auth == service.AuthDenied {
			status = fiber.StatusUnauthorized
		}
		return h.html(c, status, func() (string, error) {
			return view.RenderPasswordPage(view.PasswordPageData{Path: path, Failed: d.Auth == service.AuthDenied})
		})
	}

	switch d.Item.ItemType {
	case model.ItemLink:
		h.logger.Debug("redirecting link item", zap.String("path", path), zap.String("target", d.RedirectURL))
		return c.Redirect(d.RedirectURL, fiber.StatusFound)
	case model.ItemCode:
		return h.html(c, fiber.StatusOK, func() (string, error) {
			return view.RenderCodePage(view.CodePageData{Path: path, Content: d.Code, Language: d.Language})
		})
	default:
		return sendFile(c, d)
	}
}

func (h *PageHandler) html(c *fiber.Ctx, status int, render func() (string, error)) error {
	body, err := render()
	if err != nil {
		h.logger.Error("failed to render page", zap.Error(err), zap.String("path", c.Path()))
		return apperror.Internal("failed to render page").WithCause(err)
	}
	return c.Status(status).Type("html", "utf-8").SendString(body)
}

// passwordParam returns the password query or form field. A present but
// empty field is an attempt, not an absence.
func passwordParam(c *fiber.Ctx) *string {
	if args := c.Context().QueryArgs(); args.Has("password") {
		v := string(args.Peek("password"))
		return &v
	}
	if c.Method() != fiber.MethodPost {
		return nil
	}
	if args := c.Context().PostArgs(); args.Has("password") {
		v := string(args.Peek("password"))
		return &v
	}
	if form, err := c.MultipartForm(); err == nil {
		if vs, ok := form.Value["password"]; ok && len(vs) > 0 {
			return &vs[0]
		}
	}
	return nil
}
