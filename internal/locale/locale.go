package locale

import "strings"

const (
	LanguageChinese = "zh"
	LanguageEnglish = "en"
)

func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "zh") || trimmed == "cn" {
		return LanguageChinese
	}
	if strings.HasPrefix(trimmed, "en") {
		return LanguageEnglish
	}
	return ""
}

// LanguageFromAcceptLanguage 取 Accept-Language 中排在最前的受支持语言
func LanguageFromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(part, ";")
		if language := NormalizeLanguage(tag); language != "" {
			return language
		}
	}
	return ""
}

// Resolve 依次使用显式参数与 Accept-Language，都无法识别时回退到英文
func Resolve(explicit, acceptLanguage string) string {
	if language := NormalizeLanguage(explicit); language != "" {
		return language
	}
	if language := LanguageFromAcceptLanguage(acceptLanguage); language != "" {
		return language
	}
	return LanguageEnglish
}
