// Package i18n 后台提示与表单错误的本地化
package i18n

import (
	"embed"
	"log"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

var (
	bundle      *i18n.Bundle
	defaultLang = language.English.String()
	initOnce    sync.Once
)

// Init 加载内置语言包，defaultLanguage 为空时使用英文
func Init(defaultLanguage string) {
	initOnce.Do(func() {
		if defaultLanguage != "" {
			defaultLang = defaultLanguage
		}
		bundle = i18n.NewBundle(language.English)
		bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

		entries, err := localeFS.ReadDir("locales")
		if err != nil {
			log.Printf("[I18n] Failed to read embedded locales: %v", err)
			return
		}
		for _, entry := range entries {
			if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+entry.Name()); err != nil {
				log.Printf("[I18n] Failed to load locale %s: %v", entry.Name(), err)
			}
		}
	})
}

// Localizer 按优先级返回本地化器，acceptLanguage 可直接传 Accept-Language 头
func Localizer(acceptLanguage ...string) *i18n.Localizer {
	Init("")
	langs := append(append([]string{}, acceptLanguage...), defaultLang)
	return i18n.NewLocalizer(bundle, langs...)
}

// Translate 翻译消息，缺失时使用 fallback 模板
func Translate(l *i18n.Localizer, id string, data map[string]interface{}, fallback string) string {
	if l == nil {
		l = Localizer()
	}
	msg, err := l.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{ID: id, Other: fallback},
		TemplateData:   data,
	})
	// 仅缺少目标语言时 go-i18n 会同时返回默认文案和错误
	if msg == "" && err != nil {
		return fallback
	}
	return msg
}

// Languages 已加载的语言标签
func Languages() []string {
	Init("")
	tags := bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.String())
	}
	return out
}
