package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/habitlog/internal/locale"
)

const (
	localeContextKey     = "__request_language"
	languageCookieName   = "hl_lang"
	languageCookieMaxAge = 365 * 24 * 60 * 60
)

// LocaleMiddleware 解析请求语言并设置缓存相关响应头
func LocaleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		language := requestLanguage(c)
		c.Header("Content-Language", language)
		appendVaryHeader(c, "Accept-Language", "Cookie")
		c.Next()
	}
}

// requestLanguage 依次使用 ?lang、语言 cookie 与 Accept-Language，显式参数会写回 cookie
func requestLanguage(c *gin.Context) string {
	if cached, exists := c.Get(localeContextKey); exists {
		if language, ok := cached.(string); ok {
			return language
		}
	}

	var language string
	if override := locale.NormalizeLanguage(c.Query("lang")); override != "" {
		language = override
		persistLanguage(c, language)
	} else {
		language = locale.Resolve(readLanguageCookie(c), c.GetHeader("Accept-Language"))
	}

	c.Set(localeContextKey, language)
	return language
}

func readLanguageCookie(c *gin.Context) string {
	value, err := c.Cookie(languageCookieName)
	if err != nil {
		return ""
	}
	return locale.NormalizeLanguage(value)
}

func persistLanguage(c *gin.Context, language string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     languageCookieName,
		Value:    language,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		MaxAge:   languageCookieMaxAge,
		SameSite: http.SameSiteLaxMode,
	})
}

func appendVaryHeader(c *gin.Context, headers ...string) {
	existing := c.Writer.Header().Get("Vary")
	seen := make(map[string]struct{})
	order := make([]string, 0, len(headers))
	for _, token := range append(strings.Split(existing, ","), headers...) {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		order = append(order, trimmed)
	}
	if len(order) > 0 {
		c.Header("Vary", strings.Join(order, ", "))
	}
}
