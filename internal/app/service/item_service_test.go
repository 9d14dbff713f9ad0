package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sifan077/spectra/internal/app/apperror"
	"github.com/sifan077/spectra/internal/app/model"
	"github.com/sifan077/spectra/internal/app/repository"
	"github.com/sifan077/spectra/internal/infra/filestore"
	"github.com/sifan077/spectra/internal/infra/turnstile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestOpen_LinkRedirectCountsOneVisit(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermLink)
	item := e.create(t, alice, CreateInput{Path: "gh", ItemType: model.ItemLink, Data: "https://github.com"})

	d, err := e.svc.Open(ctx, OpenRequest{Path: "gh", Actor: Anonymous(), RemoteIP: "10.1.1.1"})
	require.NoError(t, err)
	assert.Equal(t, AuthGranted, d.Auth)
	assert.Equal(t, "https://github.com", d.RedirectURL)

	stored, err := e.items.GetByPath(ctx, "gh")
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.Visits)
	assert.Equal(t, 1, e.countLogs(t, item, model.OpGet, true))
	assert.Equal(t, 1, e.countLogs(t, item, model.OpSet, true), "creation is logged as a set")
}

func TestOpen_PasswordGate(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermCode)
	bob := e.member(t, "bob", model.PermCode)
	root := e.root(t)
	item := e.create(t, alice, CreateInput{
		Path: "secret", ItemType: model.ItemCode, Data: "fmt.Println(42)", Password: ptr("pw"), ExtraData: ptr("go"),
	})

	d, err := e.svc.Open(ctx, OpenRequest{Path: "secret", Actor: Anonymous()})
	require.NoError(t, err)
	assert.Equal(t, AuthPrompt, d.Auth)
	assert.Empty(t, d.Code)
	assert.Zero(t, e.countLogs(t, item, model.OpGet, false), "a prompt is not an access")

	d, err = e.svc.Open(ctx, OpenRequest{Path: "secret", Actor: Anonymous(), Password: ptr("wrong")})
	require.NoError(t, err)
	assert.Equal(t, AuthDenied, d.Auth)
	assert.Equal(t, 1, e.countLogs(t, item, model.OpGet, false))

	d, err = e.svc.Open(ctx, OpenRequest{Path: "secret", Actor: bob})
	require.NoError(t, err)
	assert.Equal(t, AuthPrompt, d.Auth, "another member still needs the password")

	d, err = e.svc.Open(ctx, OpenRequest{Path: "secret", Actor: Anonymous(), Password: ptr("pw")})
	require.NoError(t, err)
	assert.Equal(t, AuthGranted, d.Auth)
	assert.Equal(t, "fmt.Println(42)", d.Code)
	assert.Equal(t, "go", d.Language)

	for _, a := range []*Actor{alice, root} {
		d, err = e.svc.Open(ctx, OpenRequest{Path: "secret", Actor: a})
		require.NoError(t, err)
		assert.Equal(t, AuthGranted, d.Auth, "creator and root skip the password")
	}

	stored, err := e.items.GetByPath(ctx, "secret")
	require.NoError(t, err)
	assert.EqualValues(t, 3, stored.Visits)
	assert.Equal(t, 3, e.countLogs(t, item, model.OpGet, true))
}

func TestOpen_MaxVisitsExhausts(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermLink)
	e.create(t, alice, CreateInput{Path: "once", ItemType: model.ItemLink, Data: "https://example.com", MaxVisits: ptr(int64(1))})

	_, err := e.svc.Open(ctx, OpenRequest{Path: "once", Actor: Anonymous()})
	require.NoError(t, err)

	_, err = e.svc.Open(ctx, OpenRequest{Path: "once", Actor: Anonymous()})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	stored, err := e.items.GetByPath(ctx, "once")
	require.NoError(t, err)
	assert.False(t, stored.Available)
	require.NotNil(t, stored.ShouldDropAt)
	assert.WithinDuration(t, e.clock.Now().Add(model.GracePeriod), *stored.ShouldDropAt, time.Second)
	assert.EqualValues(t, 1, stored.Visits)

	_, err = e.svc.Open(ctx, OpenRequest{Path: "once", Actor: Anonymous()})
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "unavailable items stay hidden")
}

func TestOpen_ExpiresByTime(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermLink)
	expires := e.clock.Now().Add(time.Hour).Format(time.RFC3339)
	e.create(t, alice, CreateInput{Path: "soon", ItemType: model.ItemLink, Data: "https://example.com", ExpiresAt: &expires})

	_, err := e.svc.Open(ctx, OpenRequest{Path: "soon", Actor: Anonymous()})
	require.NoError(t, err)

	e.clock.Advance(2 * time.Hour)
	_, err = e.svc.Open(ctx, OpenRequest{Path: "soon", Actor: Anonymous()})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	stored, err := e.items.GetByPath(ctx, "soon")
	require.NoError(t, err)
	assert.False(t, stored.Available)
}

func TestOpen_MissingItemAndMissingFile(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	_, err := e.svc.Open(ctx, OpenRequest{Path: "nope", Actor: Anonymous()})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	alice := e.member(t, "alice", model.PermCode)
	item := e.create(t, alice, CreateInput{Path: "code", ItemType: model.ItemCode, Data: "x"})
	require.NoError(t, os.Remove(filepath.Join(e.files.Dir(), item.Data)))

	_, err = e.svc.Open(ctx, OpenRequest{Path: "code", Actor: Anonymous()})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.ErrorIs(t, err, filestore.ErrFileNotFound)
}

func TestOpen_FileDelivery(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermFile)
	e.create(t, alice, CreateInput{Path: "doc", ItemType: model.ItemFile, ExtraData: ptr("notes.txt")})
	_, err := e.svc.Upload(ctx, alice, UploadInput{Path: "doc", Filename: "ignored.txt", Body: strings.NewReader("hello file")})
	require.NoError(t, err)

	d, err := e.svc.Open(ctx, OpenRequest{Path: "doc", Actor: Anonymous()})
	require.NoError(t, err)
	require.NotNil(t, d.File)
	defer d.File.Close()
	assert.EqualValues(t, 10, d.Size)
	assert.Equal(t, "notes.txt", d.Filename, "display name recorded at creation wins")
	body, err := io.ReadAll(d.File)
	require.NoError(t, err)
	assert.Equal(t, "hello file", string(body))
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	manager := e.member(t, "manager", model.PermManage)
	e.create(t, manager, CreateInput{Path: "taken", ItemType: model.ItemLink, Data: "https://a.example"})

	tcs := []struct {
		name string
		in   CreateInput
		kind apperror.Kind
	}{
		{name: "UnknownType", in: CreateInput{Path: "x1", ItemType: "folder"}, kind: apperror.KindInvalid},
		{name: "BadExpiry", in: CreateInput{Path: "x2", ItemType: model.ItemLink, Data: "https://a.example", ExpiresAt: ptr("tomorrow")}, kind: apperror.KindInvalid},
		{name: "NonPositiveVisits", in: CreateInput{Path: "x3", ItemType: model.ItemLink, Data: "https://a.example", MaxVisits: ptr(int64(0))}, kind: apperror.KindInvalid},
		{name: "RelativeLink", in: CreateInput{Path: "x4", ItemType: model.ItemLink, Data: "not a url"}, kind: apperror.KindInvalid},
		{name: "EmptyLink", in: CreateInput{Path: "x5", ItemType: model.ItemLink}, kind: apperror.KindInvalid},
		{name: "EmptyCode", in: CreateInput{Path: "x6", ItemType: model.ItemCode}, kind: apperror.KindInvalid},
		{name: "EmptyPath", in: CreateInput{ItemType: model.ItemLink, Data: "https://a.example"}, kind: apperror.KindInvalid},
		{name: "ReservedPath", in: CreateInput{Path: "api", ItemType: model.ItemLink, Data: "https://a.example"}, kind: apperror.KindInvalid},
		{name: "SlashInPath", in: CreateInput{Path: "a/b", ItemType: model.ItemLink, Data: "https://a.example"}, kind: apperror.KindInvalid},
		{name: "PathTaken", in: CreateInput{Path: "taken", ItemType: model.ItemLink, Data: "https://b.example"}, kind: apperror.KindConflict},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.Create(ctx, manager, tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperror.KindOf(err))
		})
	}

	entries, err := os.ReadDir(e.files.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "rejected Code items leave no payload behind")
}

func TestCreate_RandomPathRedrawnAfterConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermLink)

	// A concurrent create stored "aaaa" without reaching this index yet.
	require.NoError(t, e.items.Create(ctx, &model.Item{
		ID: "other", ShortPath: "aaaa", ItemType: model.ItemLink, Data: "https://other.example", Available: true,
	}))

	idx := NewPathIndex()
	draws := 0
	idx.intN = func(int) int {
		draws++
		if draws <= 2*randomPathLength {
			return 0
		}
		return 1
	}
	svc := NewItemService(ItemDeps{
		Items:    e.items,
		Logs:     e.logs,
		Files:    e.files,
		Sessions: e.sessions,
		Paths:    idx,
		Now:      e.clock.Now,
	})

	res, err := svc.Create(ctx, alice, CreateInput{Path: model.RandomPath, ItemType: model.ItemLink, Data: "https://a.example"})
	require.NoError(t, err)
	assert.Equal(t, "bbbb", res.Item.ShortPath)
	assert.True(t, idx.MayContain("aaaa"))
	assert.True(t, idx.MayContain("bbbb"))

	stored, err := e.items.GetByPath(ctx, "bbbb")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example", stored.Data)
}

func TestCreate_Permissions(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	linker := e.member(t, "linker", model.PermLink)
	manager := e.member(t, "manager", model.PermManage)
	root := e.root(t)

	_, err := e.svc.Create(ctx, linker, CreateInput{Path: "c1", ItemType: model.ItemCode, Data: "x"})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = e.svc.Create(ctx, Anonymous(), CreateInput{Path: "c2", ItemType: model.ItemLink, Data: "https://a.example"})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	item := e.create(t, manager, CreateInput{Path: "c3", ItemType: model.ItemCode, Data: "manage implies code"})
	require.NotNil(t, item.Creator)
	assert.Equal(t, "manager", *item.Creator)
	content, err := e.files.ReadString(item.Data)
	require.NoError(t, err)
	assert.Equal(t, "manage implies code", content)
	assert.True(t, strings.HasSuffix(item.Data, ".txt"))

	file := e.create(t, root, CreateInput{Path: "c4", ItemType: model.ItemFile})
	assert.Equal(t, filestore.PlaceholderName, file.Data)
}

func TestCreate_RandomPathAndPassword(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermLink)

	item := e.create(t, alice, CreateInput{Path: model.RandomPath, ItemType: model.ItemLink, Data: "https://a.example", Password: ptr("pw")})
	assert.Len(t, item.ShortPath, 4)
	require.NotNil(t, item.PasswordHash)
	assert.Equal(t, model.HashPassword("pw"), *item.PasswordHash)

	stored, err := e.items.GetByPath(ctx, item.ShortPath)
	require.NoError(t, err)
	assert.Equal(t, item.ID, stored.ID)
}

func TestCreate_GuestGate(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.verifier.enabled = true
	token := ptr("cf-token")

	_, err := e.svc.Create(ctx, Anonymous(), CreateInput{Path: "mine", ItemType: model.ItemFile, TurnstileToken: token})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err), "fixed path")

	_, err = e.svc.Create(ctx, Anonymous(), CreateInput{Path: model.RandomPath, ItemType: model.ItemLink, Data: "https://a.example", TurnstileToken: token})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err), "non-file type")
	assert.Zero(t, e.verifier.calls)

	e.verifier.err = &turnstile.RejectedError{Codes: []string{"invalid-input-response"}}
	_, err = e.svc.Create(ctx, Anonymous(), CreateInput{Path: model.RandomPath, ItemType: model.ItemFile, TurnstileToken: token})
	assert.Equal(t, apperror.KindUnprocessable, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "invalid-input-response")

	e.verifier.err = errors.New("connection refused")
	_, err = e.svc.Create(ctx, Anonymous(), CreateInput{Path: model.RandomPath, ItemType: model.ItemFile, TurnstileToken: token})
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))

	e.verifier.err = nil
	res, err := e.svc.Create(ctx, Anonymous(), CreateInput{Path: model.RandomPath, ItemType: model.ItemFile, TurnstileToken: token})
	require.NoError(t, err)
	require.NotNil(t, res.Item.Creator)
	assert.True(t, strings.HasPrefix(*res.Item.Creator, "guest-"))
	require.NotEmpty(t, res.SessionKey)

	tok, ok := e.sessions.Lookup(res.SessionKey)
	require.True(t, ok)
	assert.True(t, tok.Temporary)
	assert.Equal(t, *res.Item.Creator, tok.UserID)
}

func TestCreate_GuestWithoutTurnstile(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.svc.Create(context.Background(), Anonymous(), CreateInput{
		Path: model.RandomPath, ItemType: model.ItemFile, TurnstileToken: ptr("x"),
	})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}

func TestUpload_GuestTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.verifier.enabled = true
	res, err := e.svc.Create(ctx, Anonymous(), CreateInput{Path: model.RandomPath, ItemType: model.ItemFile, TurnstileToken: ptr("t")})
	require.NoError(t, err)

	guest, err := e.userSvc.ActorFor(ctx, res.SessionKey)
	require.NoError(t, err)
	require.True(t, guest.Temporary)
	assert.False(t, guest.Authenticated())

	item, err := e.svc.Upload(ctx, guest, UploadInput{Path: res.Item.ShortPath, Filename: "dir/pixel.png", Body: strings.NewReader(string(pngHeader))})
	require.NoError(t, err)
	assert.True(t, item.IsImage)
	assert.True(t, strings.HasSuffix(item.Data, ".png"))
	require.NotNil(t, item.ExtraData)
	assert.Equal(t, "pixel.png", *item.ExtraData)

	stored, err := e.items.GetByPath(ctx, res.Item.ShortPath)
	require.NoError(t, err)
	assert.Equal(t, item.Data, stored.Data)
	assert.True(t, stored.IsImage)

	_, ok := e.sessions.Lookup(res.SessionKey)
	assert.False(t, ok, "temporary token is consumed by the upload")

	again, err := e.userSvc.ActorFor(ctx, res.SessionKey)
	require.NoError(t, err)
	_, err = e.svc.Upload(ctx, again, UploadInput{Path: res.Item.ShortPath, Body: strings.NewReader("x")})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}

func TestUpload_Rules(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermFile, model.PermCode)
	bob := e.member(t, "bob", model.PermFile)
	manager := e.member(t, "manager", model.PermManage)
	e.create(t, alice, CreateInput{Path: "f", ItemType: model.ItemFile})
	e.create(t, alice, CreateInput{Path: "c", ItemType: model.ItemCode, Data: "x"})

	_, err := e.svc.Upload(ctx, Anonymous(), UploadInput{Path: "f", Body: strings.NewReader("x")})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, err = e.svc.Upload(ctx, bob, UploadInput{Path: "f", Body: strings.NewReader("x")})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = e.svc.Upload(ctx, alice, UploadInput{Path: "c", Body: strings.NewReader("x")})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	_, err = e.svc.Upload(ctx, alice, UploadInput{Path: "f"})
	assert.Equal(t, apperror.KindInvalid, apperror.KindOf(err))

	first, err := e.svc.Upload(ctx, alice, UploadInput{Path: "f", Body: strings.NewReader("first")})
	require.NoError(t, err)
	firstName := first.Data

	second, err := e.svc.Upload(ctx, manager, UploadInput{Path: "f", Body: strings.NewReader("second")})
	require.NoError(t, err)
	assert.NotEqual(t, firstName, second.Data)
	_, err = os.Stat(filepath.Join(e.files.Dir(), firstName))
	assert.True(t, os.IsNotExist(err), "replaced payload is removed")
	_, err = os.Stat(filepath.Join(e.files.Dir(), filestore.PlaceholderName))
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermCode)
	bob := e.member(t, "bob", model.PermCode)
	item := e.create(t, alice, CreateInput{Path: "del", ItemType: model.ItemCode, Data: "bye"})

	_, err := e.svc.Delete(ctx, Anonymous(), "del")
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, err = e.svc.Delete(ctx, bob, "del")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = e.svc.Delete(ctx, alice, "missing")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	deleted, err := e.svc.Delete(ctx, alice, "del")
	require.NoError(t, err)
	assert.Equal(t, item.ID, deleted.ID)

	_, err = e.items.GetByPath(ctx, "del")
	assert.ErrorIs(t, err, repository.ErrItemNotFound)
	_, err = e.files.ReadString(item.Data)
	assert.ErrorIs(t, err, filestore.ErrFileNotFound)
}

func TestDescribeAndCodeContent(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermCode, model.PermLink)
	e.create(t, alice, CreateInput{Path: "snip", ItemType: model.ItemCode, Data: "SELECT 1;", ExtraData: ptr("sql"), Password: ptr("pw")})
	e.create(t, alice, CreateInput{Path: "lnk", ItemType: model.ItemLink, Data: "https://a.example"})

	_, err := e.svc.Describe(ctx, Anonymous(), "snip", nil)
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	item, err := e.svc.Describe(ctx, Anonymous(), "snip", ptr("pw"))
	require.NoError(t, err)
	assert.Equal(t, model.ItemCode, item.ItemType)

	code, err := e.svc.CodeContent(ctx, alice, "snip", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", code.Content)
	assert.Equal(t, "sql", code.Language)

	_, err = e.svc.CodeContent(ctx, alice, "lnk", nil)
	assert.Equal(t, apperror.KindInvalid, apperror.KindOf(err))

	stored, err := e.items.GetByPath(ctx, "snip")
	require.NoError(t, err)
	assert.Zero(t, stored.Visits, "metadata reads do not count as visits")
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermLink)
	bob := e.member(t, "bob", model.PermLink)
	manager := e.member(t, "manager", model.PermManage)
	e.create(t, alice, CreateInput{Path: "a1", ItemType: model.ItemLink, Data: "https://a.example"})
	e.create(t, bob, CreateInput{Path: "b1", ItemType: model.ItemLink, Data: "https://b.example"})

	own, err := e.svc.ListOwned(ctx, alice, "", repository.Page{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "a1", own[0].ShortPath)

	_, err = e.svc.ListOwned(ctx, alice, "bob", repository.Page{})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	bobs, err := e.svc.ListOwned(ctx, manager, "bob", repository.Page{})
	require.NoError(t, err)
	assert.Len(t, bobs, 1)

	_, err = e.svc.ListAll(ctx, alice, repository.Page{})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
	all, err := e.svc.ListAll(ctx, manager, repository.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = e.svc.ListImages(ctx, Anonymous(), "", repository.Page{})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, err = e.svc.Open(ctx, OpenRequest{Path: "a1", Actor: Anonymous(), RemoteIP: "1.1.1.1"})
	require.NoError(t, err)
	logs, err := e.svc.AccessLogs(ctx, alice, "a1")
	require.NoError(t, err)
	assert.Len(t, logs, 2)
	_, err = e.svc.AccessLogs(ctx, bob, "a1")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestListImages_Owner(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	alice := e.member(t, "alice", model.PermFile)
	bob := e.member(t, "bob", model.PermFile)
	manager := e.member(t, "manager", model.PermManage)

	pic := e.create(t, bob, CreateInput{Path: "pic", ItemType: model.ItemFile})
	_, err := e.svc.Upload(ctx, bob, UploadInput{Path: pic.ShortPath, Filename: "pixel.png", Body: strings.NewReader(string(pngHeader))})
	require.NoError(t, err)
	e.create(t, bob, CreateInput{Path: "doc", ItemType: model.ItemFile})

	own, err := e.svc.ListImages(ctx, bob, "", repository.Page{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "pic", own[0].ShortPath)

	none, err := e.svc.ListImages(ctx, alice, "", repository.Page{})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = e.svc.ListImages(ctx, alice, "bob", repository.Page{})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	bobs, err := e.svc.ListImages(ctx, manager, "bob", repository.Page{})
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, "pic", bobs[0].ShortPath)
}
