package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/spectra/internal/app/apperror"
	"github.com/sifan077/spectra/internal/app/model"
	"github.com/sifan077/spectra/internal/app/repository"
	"github.com/sifan077/spectra/internal/app/service"
	"go.uber.org/zap"
)

// ItemDeps groups dependencies required by the item API. CreateLimit is an
// optional rate limiter mounted on item creation.
type ItemDeps struct {
	Logger      *zap.Logger
	Items       service.ItemService
	Sessions    *Sessions
	CreateLimit fiber.Handler
}

// ItemHandler implements the item management API.
type ItemHandler struct {
	logger      *zap.Logger
	items       service.ItemService
	sessions    *Sessions
	createLimit fiber.Handler
}

// NewItemHandler creates an item handler with the provided dependencies.
func NewItemHandler(deps ItemDeps) *ItemHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemHandler{
		logger:      logger,
		items:       deps.Items,
		sessions:    deps.Sessions,
		createLimit: deps.CreateLimit,
	}
}

// Register wires item routes onto the /api group.
func (h *ItemHandler) Register(api fiber.Router) {
	api.Get("/item/:path", h.Describe)
	api.Post("/item/:path", withLimit(h.createLimit, h.Create)...)
	api.Delete("/item/:path", h.Delete)
	api.Get("/code-content/:path", h.CodeContent)
	api.Put("/file/:path", h.Upload)
	api.Post("/file/:path", h.Upload)
	api.Get("/items", h.ListOwned)
	api.Get("/items/all", h.ListAll)
	api.Get("/items/img", h.ListImages)
	api.Get("/logs/:path", h.AccessLogs)
}

func withLimit(limit fiber.Handler, h fiber.Handler) []fiber.Handler {
	if limit == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{limit, h}
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	if !c.Context().QueryArgs().Has(key) {
		return nil
	}
	v := c.Query(key)
	return &v
}

func pageOf(c *fiber.Ctx) repository.Page {
	return repository.Page{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}
}

// Describe handles GET /api/item/:path. With detailed=true the owner or a
// manager also sees the payload reference and creator.
func (h *ItemHandler) Describe(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	item, err := h.items.Describe(userContext(c), actor, c.Params("path"), optionalQuery(c, "password"))
	if err != nil {
		return err
	}
	detailed := c.QueryBool("detailed") && (actor.Owns(item) || actor.Can(model.PermManage))
	return ok(c, newItemResponse(item, detailed))
}

// CodeContent handles GET /api/code-content/:path
func (h *ItemHandler) CodeContent(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	content, err := h.items.CodeContent(userContext(c), actor, c.Params("path"), optionalQuery(c, "password"))
	if err != nil {
		return err
	}
	return ok(c, codeContentResponse{
		Item:     newItemResponse(content.Item, false),
		Content:  content.Content,
		Language: content.Language,
	})
}

// Create handles POST /api/item/:path. Guests pass a turnstile-token query
// parameter and receive a temporary cookie for the follow-up upload.
func (h *ItemHandler) Create(c *fiber.Ctx) error {
	var req createItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}

	res, err := h.items.Create(userContext(c), actor, service.CreateInput{
		Path:           c.Params("path"),
		ItemType:       req.ItemType,
		Data:           req.Data,
		ExpiresAt:      req.ExpiresAt,
		MaxVisits:      req.MaxVisits,
		Password:       req.Password,
		ExtraData:      req.ExtraData,
		TurnstileToken: optionalQuery(c, "turnstile-token"),
		RemoteIP:       c.IP(),
	})
	if err != nil {
		return err
	}
	if res.SessionKey != "" {
		if err := h.sessions.Set(c, res.SessionKey); err != nil {
			return apperror.Internal("failed to issue upload token").WithCause(err)
		}
	}
	return respond(c, fiber.StatusCreated, newItemResponse(res.Item, true))
}

// Upload handles PUT|POST /api/file/:path with a multipart "file" field.
func (h *ItemHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperror.Invalid("Missing file field").WithCause(err)
	}
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}

	f, err := fh.Open()
	if err != nil {
		return apperror.Invalid("Unreadable upload").WithCause(err)
	}
	defer f.Close()

	item, err := h.items.Upload(userContext(c), actor, service.UploadInput{
		Path:     c.Params("path"),
		Filename: fh.Filename,
		Body:     f,
		RemoteIP: c.IP(),
	})
	if err != nil {
		return err
	}
	if actor.Temporary {
		h.sessions.Clear(c)
	}
	return ok(c, newItemResponse(item, true))
}

// Delete handles DELETE /api/item/:path
func (h *ItemHandler) Delete(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	item, err := h.items.Delete(userContext(c), actor, c.Params("path"))
	if err != nil {
		return err
	}
	return ok(c, newItemResponse(item, true))
}

// ListOwned handles GET /api/items. The user query lists another account's
// items and needs Manage.
func (h *ItemHandler) ListOwned(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	items, err := h.items.ListOwned(userContext(c), actor, c.Query("user"), pageOf(c))
	if err != nil {
		return err
	}
	return ok(c, newItemList(items))
}

func (h *ItemHandler) ListAll(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	items, err := h.items.ListAll(userContext(c), actor, pageOf(c))
	if err != nil {
		return err
	}
	return ok(c, newItemList(items))
}

// ListImages handles GET /api/items/img. It takes the same user query as
// ListOwned.
func (h *ItemHandler) ListImages(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	items, err := h.items.ListImages(userContext(c), actor, c.Query("user"), pageOf(c))
	if err != nil {
		return err
	}
	return ok(c, newItemList(items))
}

// AccessLogs handles GET /api/logs/:path
func (h *ItemHandler) AccessLogs(c *fiber.Ctx) error {
	actor, err := h.sessions.Actor(c)
	if err != nil {
		return err
	}
	logs, err := h.items.AccessLogs(userContext(c), actor, c.Params("path"))
	if err != nil {
		return err
	}
	return ok(c, logs)
}
