// Package text cleans free text entered on requests and renders it for
// read-only HTML views.
package text

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

type Service interface {
	// Plain drops control characters other than tab, CR and LF. Everything
	// else, tag-like text included, is kept verbatim.
	Plain(s string) string
	// ToHTML renders markdown-ish notes as sanitized HTML. Markup is only
	// ever neutralised here.
	ToHTML(s string) (string, error)
}

type service struct {
	md  goldmark.Markdown
	ugc *bluemonday.Policy
}

func NewService() Service {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
		),
		goldmark.WithRendererOptions(
			ghtml.WithHardWraps(),
			ghtml.WithXHTML(),
		),
	)

	ugc := bluemonday.UGCPolicy()
	ugc.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")

	return &service{
		md:  md,
		ugc: ugc,
	}
}

func (s *service) Plain(in string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, in)
}

func (s *service) ToHTML(in string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(in), &buf); err != nil {
		return "", fmt.Errorf("failed to render text: %w", err)
	}
	return s.ugc.Sanitize(buf.String()), nil
}
