package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sifan077/spectra/internal/app/apperror"
	"github.com/sifan077/spectra/internal/app/model"
	"github.com/sifan077/spectra/internal/app/repository"
	"github.com/sifan077/spectra/internal/app/validation"
	"github.com/sifan077/spectra/internal/infra/turnstile"
	"go.uber.org/zap"
)

const (
	sniffLength       = 3072
	guestPrefix       = "guest-"
	randomPathRetries = 3
)

// Paths that collide with fixed routes.
var reservedPaths = map[string]struct{}{
	"api":         {},
	"health":      {},
	"favicon.ico": {},
}

// CreateInput captures data required to create an item.
type CreateInput struct {
	Path           string         `validate:"required,max=255"`
	ItemType       model.ItemType `validate:"oneof=link code file"`
	Data           string         `validate:"required_unless=ItemType file"`
	ExpiresAt      *string
	MaxVisits      *int64 `validate:"omitempty,gt=0"`
	Password       *string
	ExtraData      *string
	TurnstileToken *string
	RemoteIP       string
}

// CreateResult is the new item plus, for guest File items, the key of the
// temporary upload token.
type CreateResult struct {
	Item       *model.Item
	SessionKey string
}

// UploadInput carries a File item's payload.
type UploadInput struct {
	Path     string
	Filename string
	Body     io.Reader
	RemoteIP string
}

// validatePath applies the routing rules tags cannot express.
func validatePath(path string) error {
	if path == model.RandomPath {
		return nil
	}
	if strings.ContainsAny(path, "/?#%\\ \t\r\n") {
		return apperror.Invalid("Invalid path")
	}
	if _, ok := reservedPaths[strings.ToLower(path)]; ok {
		return apperror.Invalid("Path is reserved")
	}
	return nil
}

func (s *itemService) Create(ctx context.Context, actor *Actor, in CreateInput) (*CreateResult, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := validatePath(in.Path); err != nil {
		return nil, err
	}
	if in.ItemType == model.ItemLink {
		if err := validation.Var("data", in.Data, "url"); err != nil {
			return nil, err
		}
	}

	var expiresAt *time.Time
	if in.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *in.ExpiresAt)
		if err != nil {
			return nil, apperror.Invalid("Invalid expires_at, expected RFC 3339").WithCause(err)
		}
		t = t.UTC()
		expiresAt = &t
	}

	creator, guest, err := s.creatorFor(ctx, actor, in)
	if err != nil {
		return nil, err
	}

	path := in.Path
	if path == model.RandomPath {
		path, err = s.paths.Generate(ctx, s.items.Exists)
		if err != nil {
			return nil, fmt.Errorf("generate path: %w", err)
		}
	} else {
		taken, err := s.items.Exists(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("check path: %w", err)
		}
		if taken {
			return nil, apperror.Conflict("Item already exists")
		}
	}

	data := in.Data
	switch in.ItemType {
	case model.ItemCode:
		data = newID() + ".txt"
		if _, err := s.files.Write(data, strings.NewReader(in.Data)); err != nil {
			return nil, fmt.Errorf("store code: %w", err)
		}
	case model.ItemFile:
		data = s.files.Placeholder()
	}

	item := &model.Item{
		ID:        newID(),
		ShortPath: path,
		ItemType:  in.ItemType,
		Data:      data,
		ExpiresAt: expiresAt,
		MaxVisits: in.MaxVisits,
		CreatedAt: s.now(),
		ExtraData: in.ExtraData,
		Creator:   &creator,
		Available: true,
	}
	if in.Password != nil {
		digest := model.HashPassword(*in.Password)
		item.PasswordHash = &digest
	}

	if err := s.insert(ctx, item, in.Path == model.RandomPath); err != nil {
		if in.ItemType == model.ItemCode {
			_ = s.files.Remove(data)
		}
		if errors.Is(err, repository.ErrItemExists) {
			return nil, apperror.Conflict("Item already exists")
		}
		return nil, fmt.Errorf("create item: %w", err)
	}
	path = item.ShortPath
	s.paths.Add(path)
	s.record(ctx, item, &Actor{UserID: creator, Temporary: guest}, path, in.RemoteIP, model.OpSet, true)

	result := &CreateResult{Item: item}
	if guest && item.ItemType == model.ItemFile {
		key, err := s.sessions.Issue(creator, true)
		if err != nil {
			return nil, fmt.Errorf("issue upload token: %w", err)
		}
		result.SessionKey = key
	}

	s.logger.Info("item created",
		zap.String("path", path),
		zap.String("type", string(item.ItemType)),
		zap.String("creator", creator),
		zap.Bool("guest", guest),
	)
	return result, nil
}

// insert stores item. A random path can be claimed by a concurrent create
// between generation and insert, so it is redrawn a few times.
func (s *itemService) insert(ctx context.Context, item *model.Item, random bool) error {
	err := s.items.Create(ctx, item)
	for attempt := 1; random && errors.Is(err, repository.ErrItemExists) && attempt < randomPathRetries; attempt++ {
		s.paths.Add(item.ShortPath)
		next, genErr := s.paths.Generate(ctx, s.items.Exists)
		if genErr != nil {
			return fmt.Errorf("generate path: %w", genErr)
		}
		item.ShortPath = next
		err = s.items.Create(ctx, item)
	}
	return err
}

// creatorFor decides who owns a new item. Logged-in users need the matching
// permission. Guests need a passing challenge and may only create File
// items at a random path.
func (s *itemService) creatorFor(ctx context.Context, actor *Actor, in CreateInput) (string, bool, error) {
	if actor.Authenticated() {
		if !actor.Can(model.RequiredPermission(in.ItemType)) {
			return "", false, apperror.Forbidden("Forbidden")
		}
		return actor.UserID, false, nil
	}

	if in.TurnstileToken == nil || s.verifier == nil || !s.verifier.Enabled() {
		return "", false, apperror.Unauthorized("Unauthorized")
	}
	if in.Path != model.RandomPath {
		return "", false, apperror.Forbidden("Guests can only create items at a random path")
	}
	if in.ItemType != model.ItemFile {
		return "", false, apperror.Forbidden("Guests can only share files")
	}

	if err := s.verifier.Verify(ctx, *in.TurnstileToken, in.RemoteIP); err != nil {
		var rejected *turnstile.RejectedError
		if errors.As(err, &rejected) {
			return "", false, apperror.Unprocessable(rejected.Error())
		}
		return "", false, apperror.Upstream("Turnstile verification failed").WithCause(err)
	}
	return guestPrefix + newID(), true, nil
}

func (s *itemService) Upload(ctx context.Context, actor *Actor, in UploadInput) (*model.Item, error) {
	if !actor.Authenticated() && (actor == nil || !actor.Temporary) {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	item, err := s.Resolve(ctx, in.Path)
	if err != nil {
		return nil, err
	}
	if !actor.Can(model.PermManage) && !actor.Owns(item) {
		return nil, apperror.Forbidden("Forbidden")
	}
	if item.ItemType != model.ItemFile {
		return nil, apperror.Conflict("Item is not a File")
	}
	if in.Body == nil {
		return nil, apperror.Invalid("No part named 'file' uploaded")
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(in.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	kind := mimetype.Detect(head)
	ext := kind.Extension()
	if ext == "" {
		ext = ".bin"
	}
	isImage := strings.HasPrefix(kind.String(), "image/")

	name := newID() + ext
	if _, err := s.files.Write(name, io.MultiReader(bytes.NewReader(head), in.Body)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	var display *string
	if item.ExtraData == nil && in.Filename != "" {
		base := filepath.Base(strings.ReplaceAll(in.Filename, "\\", "/"))
		display = &base
	}
	if err := s.items.UpdateData(ctx, item.ID, name, isImage, display); err != nil {
		_ = s.files.Remove(name)
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, apperror.NotFound(msgItemNotFound)
		}
		return nil, fmt.Errorf("update item: %w", err)
	}

	previous := item.Data
	item.Data = name
	item.IsImage = isImage
	if display != nil {
		item.ExtraData = display
	}
	if previous != s.files.Placeholder() {
		if err := s.files.Remove(previous); err != nil {
			s.logger.Warn("failed to remove replaced payload", zap.Error(err), zap.String("file", previous))
		}
	}

	s.record(ctx, item, actor, in.Path, in.RemoteIP, model.OpSet, true)
	if actor.Temporary {
		s.sessions.Remove(actor.SessionKey)
	}

	s.logger.Info("file uploaded",
		zap.String("path", in.Path),
		zap.String("mime", kind.String()),
		zap.Bool("image", isImage),
	)
	return item, nil
}
