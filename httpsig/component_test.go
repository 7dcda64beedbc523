package httpsig

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentLine(t *testing.T) {
	h := http.Header{}
	h.Set("Signify-Resource", "EAbc")
	h.Add("X-Multi", "one")
	h.Add("X-Multi", "two   three")

	tests := []struct {
		name   string
		id     string
		method string
		path   string
		want   string
		ok     bool
	}{
		{name: "method", id: "@method", method: "DELETE", path: "/", want: `"@method": DELETE`, ok: true},
		{name: "path", id: "@path", method: "GET", path: "/status/EAbc", want: `"@path": /status/EAbc`, ok: true},
		{name: "empty path", id: "@path", method: "GET", path: "", want: `"@path": /`, ok: true},
		{name: "header lowercased", id: "Signify-Resource", method: "GET", path: "/", want: `"signify-resource": EAbc`, ok: true},
		{name: "multi value header", id: "x-multi", method: "GET", path: "/", want: `"x-multi": one, two three`, ok: true},
		{name: "absent header", id: "x-absent", method: "GET", path: "/", want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, ok, err := componentLine(tt.id, h, tt.method, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, line)
		})
	}

	t.Run("unknown derived", func(t *testing.T) {
		_, _, err := componentLine("@target-uri", h, "GET", "/")
		assert.ErrorIs(t, err, ErrUnknownComponent)
	})

	t.Run("invalid header name", func(t *testing.T) {
		_, _, err := componentLine("bad:name", h, "GET", "/")
		assert.ErrorIs(t, err, ErrInvalidComponent)
	})
}

func TestHeaderValues(t *testing.T) {
	t.Run("canonical key", func(t *testing.T) {
		h := http.Header{}
		h.Set("signify-timestamp", "ts")
		assert.Equal(t, []string{"ts"}, headerValues(h, "SIGNIFY-TIMESTAMP"))
	})

	t.Run("non-canonical key", func(t *testing.T) {
		h := http.Header{"signify-timestamp": {"ts"}}
		assert.Equal(t, []string{"ts"}, headerValues(h, "Signify-Timestamp"))
	})

	t.Run("absent", func(t *testing.T) {
		assert.Nil(t, headerValues(http.Header{}, "Signature"))
	})
}

func TestHeaderValue(t *testing.T) {
	h := http.Header{"Signature": {"", "  ", " sig "}}
	assert.Equal(t, "sig", headerValue(h, "signature"))
	assert.Empty(t, headerValue(h, "signature-input"))
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"":                "",
		"plain":           "plain",
		"  padded  ":      "padded",
		"a \t b\n\nc":     "a b c",
		"already normal ": "already normal",
	}

	for in, want := range tests {
		assert.Equal(t, want, normalize(in), "input %q", in)
	}
}
