package handler

import (
	"strings"
	"time"

	"github.com/sifan077/spectra/internal/app/model"
)

type itemResponse struct {
	ShortPath string         `json:"short_path"`
	ItemType  model.ItemType `json:"item_type"`
	Data      *string        `json:"data,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at"`
	MaxVisits *int64         `json:"max_visits"`
	Visits    int64          `json:"visits"`
	Protected bool           `json:"password_protected"`
	CreatedAt time.Time      `json:"created_at"`
	ExtraData *string        `json:"extra_data"`
	Creator   *string        `json:"creator,omitempty"`
	Available bool           `json:"available"`
	IsImage   bool           `json:"is_image"`
}

// newItemResponse hides the payload reference and creator unless detailed.
func newItemResponse(item *model.Item, detailed bool) itemResponse {
	resp := itemResponse{
		ShortPath: item.ShortPath,
		ItemType:  item.ItemType,
		ExpiresAt: item.ExpiresAt,
		MaxVisits: item.MaxVisits,
		Visits:    item.Visits,
		Protected: item.Protected(),
		CreatedAt: item.CreatedAt,
		ExtraData: item.ExtraData,
		Available: item.Available,
		IsImage:   item.IsImage,
	}
	if detailed {
		data := item.Data
		resp.Data = &data
		resp.Creator = item.Creator
	}
	return resp
}

func newItemList(items []model.Item) []itemResponse {
	out := make([]itemResponse, len(items))
	for i := range items {
		out[i] = newItemResponse(&items[i], true)
	}
	return out
}

type createItemRequest struct {
	ItemType  model.ItemType `json:"item_type" validate:"required"`
	Data      string         `json:"data" validate:"required_unless=ItemType file"`
	ExpiresAt *string        `json:"expires_at"`
	MaxVisits *int64         `json:"max_visits" validate:"omitempty,gt=0"`
	Password  *string        `json:"password"`
	ExtraData *string        `json:"extra_data"`
}

type codeContentResponse struct {
	Item     itemResponse `json:"item"`
	Content  string       `json:"content"`
	Language string       `json:"language"`
}

type userResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Avatar      *string           `json:"avatar"`
	CreatedAt   time.Time         `json:"created_at"`
	Permissions model.Permissions `json:"permissions"`
	Role        string            `json:"role"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Avatar:      u.Avatar,
		CreatedAt:   u.CreatedAt,
		Permissions: u.Descriptor,
		Role:        u.Role().String(),
	}
}

// Login does not require an email-shaped address: the root account may sit
// on a bare host such as admin@localhost.
type loginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

type createUserRequest struct {
	Name        string            `json:"name" validate:"required,max=64"`
	Email       string            `json:"email" validate:"required,email,max=255"`
	Password    string            `json:"password" validate:"required"`
	Avatar      *string           `json:"avatar"`
	Permissions model.Permissions `json:"permissions"`
}

func (r *createUserRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}
