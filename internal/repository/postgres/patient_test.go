package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Asha", "Asha"},
		{"%", `\%`},
		{"_", `\_`},
		{`100% _sure\`, `100\% \_sure\\`},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, escapeLike(tc.in), "input %q", tc.in)
	}
}
