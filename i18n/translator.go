package i18n

import (
	"strings"
	"sync"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "got" or "supported").
type Translator interface {
	Message(code string, data map[string]string) string
}

// MessageKey values that are not Issue codes but still need localized text.
const (
	KeyUnsupportedVersion = "unsupported_version"
	KeyUnknownTarget      = "unknown_target"
)

var dictionaries = map[string]map[string]string{
	"en": {
		"invalid_type":        "invalid type",
		"required":            "required property missing",
		"invalid_value":       "invalid value",
		"unknown_key":         "unknown key",
		"too_small":           "too small",
		"too_big":             "too big",
		"too_short":           "too short",
		"too_long":            "too long",
		"invalid_enum":        "value is not one of the allowed values",
		"invalid_format":      "invalid format",
		"parse_error":         "parse error",
		KeyUnsupportedVersion: "invalid version {got}, expected one of: {supported}",
		KeyUnknownTarget:      "target version {target} is not registered. Supported versions: {supported}",
	},
	"ja": {
		"invalid_type":        "型が不正です",
		"required":            "必須プロパティが不足しています",
		"invalid_value":       "値が不正です",
		"unknown_key":         "未知のキーです",
		"too_small":           "小さすぎます",
		"too_big":             "大きすぎます",
		"too_short":           "短すぎます",
		"too_long":            "長すぎます",
		"invalid_enum":        "許可された値ではありません",
		"invalid_format":      "形式が不正です",
		"parse_error":         "解析エラー",
		KeyUnsupportedVersion: "バージョン {got} は不正です。有効なバージョン: {supported}",
		KeyUnknownTarget:      "対象バージョン {target} は登録されていません。有効なバージョン: {supported}",
	},
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	if len(data) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version). nil restores the English dictionary.
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
