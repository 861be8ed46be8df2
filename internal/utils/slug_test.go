package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Men's Running Shoes": "men-s-running-shoes",
		"  Hello   World  ":   "hello-world",
		"ALL CAPS":            "all-caps",
		"product #42 (blue)":  "product-42-blue",
		"---":                 "",
		"café au lait":        "café-au-lait",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input: %q", in)
	}
}
