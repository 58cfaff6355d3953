package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	Name string `json:"name" validate:"required,max=5"`
}

type sample struct {
	Title  string   `json:"title" validate:"required,max=10"`
	Token  string   `json:"push_token" validate:"omitempty,pushtoken"`
	Tags   []string `json:"tags" validate:"omitempty,dive,required"`
	Inner  nested   `json:"inner"`
	Hidden string   `json:"-" validate:"omitempty,max=1"`
}

func TestStruct(t *testing.T) {
	fields, err := Struct(sample{Title: "ok", Inner: nested{Name: "abc"}})
	require.NoError(t, err)
	assert.Empty(t, fields)

	fields, err = Struct(sample{
		Title: strings.Repeat("t", 11),
		Token: "not-a-token",
		Tags:  []string{"a", ""},
		Inner: nested{Name: "toolong"},
	})
	require.NoError(t, err)
	assert.Equal(t, "title must be a maximum of 10 characters in length", fields["title"])
	assert.Equal(t, "Invalid Expo push token format", fields["push_token"])
	assert.Contains(t, fields, "tags[1]")
	assert.Contains(t, fields, "inner.name")
	assert.Len(t, fields, 4)
}

func TestStructNotAStruct(t *testing.T) {
	_, err := Struct(42)
	assert.Error(t, err)
}
