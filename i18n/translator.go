package i18n

import (
	"strings"
	"sync/atomic"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "expected" or "key").
type Translator interface {
	Message(code string, data map[string]string) string
}

// message is a catalog entry. detailed is used when data carries a value
// for param; {param} in it is replaced by that value.
type message struct {
	plain    string
	param    string
	detailed string
}

var catalogs = map[string]map[string]message{
	"en": {
		"invalid_type":    {"invalid type", "expected", "invalid type, expected {expected}"},
		"required":        {plain: "required value missing"},
		"prohibited":      {"value not allowed", "method", "value not allowed for {method}"},
		"unknown_key":     {"unknown key", "key", "unknown key {key}"},
		"length_mismatch": {"element count does not match tuple arity", "want", "expected {want} elements"},
		"schema_mismatch": {plain: "state is not bound to the expected schema node"},
		"parse_error":     {plain: "parse error"},
		"duplicate_key":   {"duplicate key", "key", "duplicate key {key}"},
	},
	"ja": {
		"invalid_type":    {"型が不正です", "expected", "型が不正です (期待: {expected})"},
		"required":        {plain: "必須の値が不足しています"},
		"prohibited":      {"指定できない値です", "method", "{method} では指定できません"},
		"unknown_key":     {"未知のキーです", "key", "未知のキーです: {key}"},
		"length_mismatch": {"要素数が一致しません", "want", "要素数が一致しません (期待: {want})"},
		"schema_mismatch": {plain: "スキーマと状態が一致しません"},
		"parse_error":     {plain: "解析エラー"},
		"duplicate_key":   {"キーが重複しています", "key", "キーが重複しています: {key}"},
	},
}

// Languages lists the built-in catalogs.
func Languages() []string { return []string{"en", "ja"} }

// catalogTranslator is the built-in catalog-based Translator.
type catalogTranslator struct{ lang string }

func (t catalogTranslator) Message(code string, data map[string]string) string {
	m, ok := catalogs[t.lang][code]
	if !ok {
		return code
	}
	if v := data[m.param]; m.param != "" && v != "" {
		return strings.ReplaceAll(m.detailed, "{"+m.param+"}", v)
	}
	return m.plain
}

type holder struct{ tr Translator }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{tr: catalogTranslator{lang: "en"}}) }

// SetLanguage switches the built-in Translator language. Unknown languages
// select "en".
func SetLanguage(lang string) {
	if _, ok := catalogs[lang]; !ok {
		lang = "en"
	}
	current.Store(&holder{tr: catalogTranslator{lang: lang}})
}

// SetTranslator replaces the Translator implementation. nil restores the
// English catalog.
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = catalogTranslator{lang: "en"}
	}
	current.Store(&holder{tr: tr})
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return current.Load().tr.Message(code, data) }
