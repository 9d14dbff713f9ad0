package validation

import (
	"errors"
	"testing"

	"github.com/sifan077/spectra/internal/app/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	MaxVisits *int64 `json:"max_visits" validate:"omitempty,gt=0"`
	Kind      string `json:"kind" validate:"omitempty,oneof=link code file"`
	Data      string `json:"data" validate:"required_unless=Kind file"`
}

func TestStruct(t *testing.T) {
	zero := int64(0)
	tcs := []struct {
		name    string
		in      signup
		message string
	}{
		{name: "MissingName", in: signup{Data: "x"}, message: "name is required"},
		{name: "BadEmail", in: signup{Name: "a", Email: "no-at", Data: "x"}, message: "Invalid email"},
		{name: "ZeroVisits", in: signup{Name: "a", MaxVisits: &zero, Data: "x"}, message: "max_visits must be greater than 0"},
		{name: "UnknownKind", in: signup{Name: "a", Kind: "folder", Data: "x"}, message: "kind must be one of: link code file"},
		{name: "DataRequired", in: signup{Name: "a", Kind: "code"}, message: "data is required"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(tc.in)
			require.Error(t, err)
			assert.Equal(t, apperror.KindInvalid, apperror.KindOf(err))
			assert.Equal(t, tc.message, err.Error())
		})
	}

	assert.NoError(t, Struct(signup{Name: "a", Kind: "file"}))
	assert.NoError(t, Struct(&signup{Name: "a", Email: "a@example.com", Data: "x"}))
}

func TestStruct_NotAStruct(t *testing.T) {
	err := Struct(42)
	require.Error(t, err)
	var appErr *apperror.Error
	assert.False(t, errors.As(err, &appErr))
}

func TestVar(t *testing.T) {
	err := Var("data", "not a url", "url")
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalid, apperror.KindOf(err))
	assert.Equal(t, "data must be an absolute URL", err.Error())

	assert.NoError(t, Var("data", "https://example.com/docs", "url"))
}
