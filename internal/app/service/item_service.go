package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/spectra/internal/app/apperror"
	"github.com/sifan077/spectra/internal/app/model"
	"github.com/sifan077/spectra/internal/app/repository"
	"github.com/sifan077/spectra/internal/infra/filestore"
	"go.uber.org/zap"
)

// ItemService implements the item lifecycle and its access rules.
type ItemService interface {
	Resolve(ctx context.Context, path string) (*model.Item, error)
	Authorize(item *model.Item, actor *Actor, password *string) AuthOutcome
	RecordAccess(ctx context.Context, item *model.Item, in AccessInput) error
	Open(ctx context.Context, req OpenRequest) (*Delivery, error)
	Describe(ctx context.Context, actor *Actor, path string, password *string) (*model.Item, error)
	CodeContent(ctx context.Context, actor *Actor, path string, password *string) (*CodeContent, error)
	Create(ctx context.Context, actor *Actor, in CreateInput) (*CreateResult, error)
	Upload(ctx context.Context, actor *Actor, in UploadInput) (*model.Item, error)
	Delete(ctx context.Context, actor *Actor, path string) (*model.Item, error)
	ListOwned(ctx context.Context, actor *Actor, owner string, page repository.Page) ([]model.Item, error)
	ListImages(ctx context.Context, actor *Actor, owner string, page repository.Page) ([]model.Item, error)
	ListAll(ctx context.Context, actor *Actor, page repository.Page) ([]model.Item, error)
	AccessLogs(ctx context.Context, actor *Actor, path string) ([]model.AccessLog, error)
}

// ItemDeps groups what the item service needs. Sink, Observer, Verifier
// and Paths are optional.
type ItemDeps struct {
	Logger   *zap.Logger
	Items    repository.ItemRepository
	Logs     repository.AccessLogRepository
	Files    FileStore
	Sessions SessionStore
	Verifier Verifier
	Sink     AccessSink
	Observer AccessObserver
	Paths    *PathIndex
	Now      func() time.Time
}

type itemService struct {
	logger   *zap.Logger
	items    repository.ItemRepository
	logs     repository.AccessLogRepository
	files    FileStore
	sessions SessionStore
	verifier Verifier
	sink     AccessSink
	observer AccessObserver
	paths    *PathIndex
	now      func() time.Time
}

// NewItemService returns an ItemService backed by deps.
func NewItemService(deps ItemDeps) ItemService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	paths := deps.Paths
	if paths == nil {
		paths = NewPathIndex()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &itemService{
		logger:   logger,
		items:    deps.Items,
		logs:     deps.Logs,
		files:    deps.Files,
		sessions: deps.Sessions,
		verifier: deps.Verifier,
		sink:     deps.Sink,
		observer: deps.Observer,
		paths:    paths,
		now:      func() time.Time { return now().UTC() },
	}
}

// AuthOutcome is the result of checking an item's password gate.
type AuthOutcome int

const (
	AuthGranted AuthOutcome = iota
	// AuthPrompt means a password is required and none was supplied.
	AuthPrompt
	// AuthDenied means the supplied password was wrong.
	AuthDenied
)

// AccessInput describes one access for the log.
type AccessInput struct {
	Path      string
	Operation model.Operation
	Success   bool
	RemoteIP  string
	Initiator *string
}

// OpenRequest asks to serve the item at Path.
type OpenRequest struct {
	Path     string
	Actor    *Actor
	Password *string
	RemoteIP string
}

// Delivery is what the page route sends back. Exactly one payload field is
// set when Auth is AuthGranted.
type Delivery struct {
	Item *model.Item
	Auth AuthOutcome

	RedirectURL string

	Code     string
	Language string

	File *os.File
	Size int64
	// Filename is the display name for downloads. Empty means inline.
	Filename string
}

// CodeContent is a Code item's text.
type CodeContent struct {
	Item     *model.Item
	Content  string
	Language string
}

const msgItemNotFound = "Item not found"

func (s *itemService) Resolve(ctx context.Context, path string) (*model.Item, error) {
	item, err := s.items.GetByPath(ctx, path)
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil, apperror.NotFound(msgItemNotFound).WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	if !item.Available {
		return nil, apperror.NotFound(msgItemNotFound)
	}

	now := s.now()
	if item.Exhausted(now) {
		item.MarkUnavailable(now)
		if err := s.items.MarkUnavailable(ctx, item.ID, *item.ShouldDropAt); err != nil {
			s.logger.Warn("failed to mark item unavailable", zap.Error(err), zap.String("path", path))
		}
		return nil, apperror.NotFound(msgItemNotFound)
	}
	return item, nil
}

func (s *itemService) Authorize(item *model.Item, actor *Actor, password *string) AuthOutcome {
	if !item.Protected() {
		return AuthGranted
	}
	if actor.Authenticated() && (actor.Role() == model.RoleRoot || item.OwnedBy(actor.UserID)) {
		return AuthGranted
	}
	if password == nil {
		return AuthPrompt
	}
	if model.PasswordMatches(*password, *item.PasswordHash) {
		return AuthGranted
	}
	return AuthDenied
}

func (s *itemService) RecordAccess(ctx context.Context, item *model.Item, in AccessInput) error {
	// The entry outlives the request when published, and callers may pass
	// views into a reused request buffer.
	entry := &model.AccessLog{
		ID:         newID(),
		ItemID:     item.ID,
		AccessedAt: s.now(),
		Path:       strings.Clone(in.Path),
		Operation:  in.Operation,
		Success:    in.Success,
		IPAddress:  strings.Clone(in.RemoteIP),
		Initiator:  in.Initiator,
	}
	if err := s.logs.Record(ctx, entry); err != nil {
		return fmt.Errorf("record access: %w", err)
	}
	if in.Success && in.Operation == model.OpGet {
		item.Visits++
	}
	if s.observer != nil {
		s.observer.ObserveAccess(item.ItemType, in.Operation, in.Success)
	}
	if s.sink != nil {
		go s.publish(entry)
	}
	return nil
}

func (s *itemService) publish(entry *model.AccessLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sink.Publish(ctx, entry); err != nil {
		s.logger.Warn("failed to publish access event", zap.Error(err), zap.String("path", entry.Path))
	}
}

// record logs an access without failing the request.
func (s *itemService) record(ctx context.Context, item *model.Item, actor *Actor, path, ip string, op model.Operation, success bool) {
	err := s.RecordAccess(ctx, item, AccessInput{
		Path:      path,
		Operation: op,
		Success:   success,
		RemoteIP:  ip,
		Initiator: actor.initiator(),
	})
	if err != nil {
		s.logger.Error("failed to record access", zap.Error(err), zap.String("path", path))
	}
}

func (s *itemService) Open(ctx context.Context, req OpenRequest) (*Delivery, error) {
	item, err := s.Resolve(ctx, req.Path)
	if err != nil {
		return nil, err
	}

	d := &Delivery{Item: item, Auth: s.Authorize(item, req.Actor, req.Password)}
	switch d.Auth {
	case AuthPrompt:
		return d, nil
	case AuthDenied:
		s.record(ctx, item, req.Actor, req.Path, req.RemoteIP, model.OpGet, false)
		return d, nil
	}
	s.record(ctx, item, req.Actor, req.Path, req.RemoteIP, model.OpGet, true)

	switch item.ItemType {
	case model.ItemLink:
		d.RedirectURL = item.Data
	case model.ItemCode:
		text, err := s.files.ReadString(item.Data)
		if err != nil {
			return nil, s.fileError(err, item)
		}
		d.Code = text
		d.Language = language(item)
	case model.ItemFile:
		f, size, err := s.files.Open(item.Data)
		if err != nil {
			return nil, s.fileError(err, item)
		}
		d.File, d.Size = f, size
		if item.ExtraData != nil {
			d.Filename = *item.ExtraData
		}
	}
	return d, nil
}

func (s *itemService) fileError(err error, item *model.Item) error {
	if errors.Is(err, filestore.ErrFileNotFound) {
		s.logger.Warn("backing file missing", zap.String("path", item.ShortPath), zap.String("file", item.Data))
		return apperror.NotFound(msgItemNotFound).WithCause(err)
	}
	return fmt.Errorf("read payload: %w", err)
}

func language(item *model.Item) string {
	if item.ExtraData == nil || *item.ExtraData == "" {
		return "text"
	}
	return *item.ExtraData
}

func (s *itemService) Describe(ctx context.Context, actor *Actor, path string, password *string) (*model.Item, error) {
	item, err := s.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	if s.Authorize(item, actor, password) != AuthGranted {
		return nil, apperror.Unauthorized("Authentication required")
	}
	return item, nil
}

func (s *itemService) CodeContent(ctx context.Context, actor *Actor, path string, password *string) (*CodeContent, error) {
	item, err := s.Describe(ctx, actor, path, password)
	if err != nil {
		return nil, err
	}
	if item.ItemType != model.ItemCode {
		return nil, apperror.Invalid("Item is not a Code")
	}
	text, err := s.files.ReadString(item.Data)
	if err != nil {
		return nil, s.fileError(err, item)
	}
	return &CodeContent{Item: item, Content: text, Language: language(item)}, nil
}

func (s *itemService) Delete(ctx context.Context, actor *Actor, path string) (*model.Item, error) {
	if !actor.Authenticated() {
		return nil, apperror.Unauthorized("Invalid token")
	}
	item, err := s.items.GetByPath(ctx, path)
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil, apperror.NotFound(msgItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	if !actor.Can(model.PermManage) && !actor.Owns(item) {
		return nil, apperror.Forbidden("Forbidden")
	}

	if err := s.items.Delete(ctx, item.ID); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, apperror.NotFound(msgItemNotFound)
		}
		return nil, fmt.Errorf("delete item: %w", err)
	}
	if item.HasBackingFile() {
		if err := s.files.Remove(item.Data); err != nil {
			s.logger.Warn("failed to remove payload", zap.Error(err), zap.String("file", item.Data))
		}
	}
	s.logger.Info("item deleted", zap.String("path", path), zap.String("by", actor.UserID))
	return item, nil
}

func (s *itemService) ListOwned(ctx context.Context, actor *Actor, owner string, page repository.Page) ([]model.Item, error) {
	owner, err := listingOwner(actor, owner)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByCreator(ctx, owner, page)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *itemService) ListImages(ctx context.Context, actor *Actor, owner string, page repository.Page) ([]model.Item, error) {
	owner, err := listingOwner(actor, owner)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListImagesByCreator(ctx, owner, page)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return items, nil
}

// listingOwner picks whose items a listing shows. An empty owner means the
// caller. Anyone else's items need Manage.
func listingOwner(actor *Actor, owner string) (string, error) {
	if !actor.Authenticated() {
		return "", apperror.Unauthorized("Invalid or missing token")
	}
	if owner == "" {
		return actor.UserID, nil
	}
	if owner != actor.UserID && !actor.Can(model.PermManage) {
		return "", apperror.Forbidden("Insufficient permission")
	}
	return owner, nil
}

func (s *itemService) ListAll(ctx context.Context, actor *Actor, page repository.Page) ([]model.Item, error) {
	if !actor.Authenticated() {
		return nil, apperror.Unauthorized("Invalid or missing token")
	}
	if !actor.Can(model.PermManage) {
		return nil, apperror.Forbidden("Insufficient permission")
	}
	items, err := s.items.ListAll(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list all items: %w", err)
	}
	return items, nil
}

func (s *itemService) AccessLogs(ctx context.Context, actor *Actor, path string) ([]model.AccessLog, error) {
	if !actor.Authenticated() {
		return nil, apperror.Unauthorized("Invalid or missing token")
	}
	item, err := s.items.GetByPath(ctx, path)
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil, apperror.NotFound(msgItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	if !actor.Can(model.PermManage) && !actor.Owns(item) {
		return nil, apperror.Forbidden("Insufficient permission")
	}
	logs, err := s.logs.ListByItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	return logs, nil
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
