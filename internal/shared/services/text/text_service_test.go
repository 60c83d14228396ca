package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlain(t *testing.T) {
	svc := NewService()

	tests := []struct {
		in   string
		want string
	}{
		{"drop test 1.2m", "drop test 1.2m"},
		{"R&D sample", "R&D sample"},
		{"<b>bold</b> note", "<b>bold</b> note"},
		{"a<b && c>d", "a<b && c>d"},
		{"hold at <T_max> for 2h", "hold at <T_max> for 2h"},
		{"line1\r\nline2\x00", "line1\r\nline2"},
		{"tab\there\x07\x1b\x7f\u0085", "tab\there"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.Plain(tt.in))
		})
	}
}

func TestToHTML(t *testing.T) {
	svc := NewService()

	out, err := svc.ToHTML("**fail** at cycle 3\n<script>x()</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>fail</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestPlainThenHTMLNeutralisesMarkup(t *testing.T) {
	svc := NewService()

	kept := svc.Plain(`note <img src=x onerror=alert(1)>`)
	assert.Contains(t, kept, "<img")

	out, err := svc.ToHTML(kept)
	require.NoError(t, err)
	assert.NotContains(t, out, "onerror")
}
