package view

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
	)
	richSanitizer  = bluemonday.UGCPolicy()
	plainSanitizer = bluemonday.StrictPolicy()
)

// RenderMarkdown 把习惯描述渲染为经过清洗的 HTML，空描述返回空串
func RenderMarkdown(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return string(richSanitizer.SanitizeBytes(buf.Bytes())), nil
}

// PlainText 去掉所有标签，只保留文本内容
func PlainText(value string) string {
	return strings.TrimSpace(html.UnescapeString(plainSanitizer.Sanitize(value)))
}
