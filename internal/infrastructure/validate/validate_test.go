package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestField(t *testing.T) {
	question := Field("question", Required(), MaxLength(10))

	assert.NoError(t, question("hello"))

	err := question("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "question")

	assert.Error(t, question("this is far too long"))
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name      string
		validator Validator
		value     string
		wantErr   bool
	}{
		{name: "required ok", validator: Required(), value: "x"},
		{name: "required empty", validator: Required(), value: "", wantErr: true},
		{name: "required whitespace", validator: Required(), value: "   ", wantErr: true},
		{name: "min length ok", validator: MinLength(3), value: "abc"},
		{name: "min length short", validator: MinLength(3), value: "ab", wantErr: true},
		{name: "max length counts runes", validator: MaxLength(3), value: "héllo", wantErr: true},
		{name: "max length runes ok", validator: MaxLength(5), value: "héllo"},
		{name: "between ok", validator: LengthBetween(2, 4), value: "abc"},
		{name: "between low", validator: LengthBetween(2, 4), value: "a", wantErr: true},
		{name: "between high", validator: LengthBetween(2, 4), value: "abcde", wantErr: true},
		{name: "one of match", validator: OneOf("a", "b"), value: "b"},
		{name: "one of empty passes", validator: OneOf("a", "b"), value: ""},
		{name: "one of miss", validator: OneOf("a", "b"), value: "c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validator(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
