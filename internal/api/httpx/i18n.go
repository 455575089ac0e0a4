package httpx

import (
	"net/http"

	"golang.org/x/text/language"
)

const (
	CodeUnauthenticated   = "unauthenticated"
	CodeTokenExpired      = "token_expired"
	CodeInvalidSignature  = "invalid_signature"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeUnknownUser       = "unknown_user"
	CodeConflict          = "conflict"
	CodeInsufficientFunds = "insufficient_funds"
	CodeDuplicateEvent    = "duplicate_event"
	CodeBadRequest        = "bad_request"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal_error"
)

var supported = []language.Tag{language.English, language.Russian}

var matcher = language.NewMatcher(supported)

var messages = map[string]map[language.Tag]string{
	CodeUnauthenticated: {
		language.English: "authentication required",
		language.Russian: "требуется авторизация",
	},
	CodeTokenExpired: {
		language.English: "session expired, please sign in again",
		language.Russian: "сессия истекла, войдите снова",
	},
	CodeInvalidSignature: {
		language.English: "invalid signature",
		language.Russian: "неверная подпись",
	},
	CodeForbidden: {
		language.English: "access denied",
		language.Russian: "доступ запрещён",
	},
	CodeNotFound: {
		language.English: "not found",
		language.Russian: "не найдено",
	},
	CodeUnknownUser: {
		language.English: "user not found",
		language.Russian: "пользователь не найден",
	},
	CodeConflict: {
		language.English: "already in use",
		language.Russian: "уже используется",
	},
	CodeInsufficientFunds: {
		language.English: "insufficient funds",
		language.Russian: "недостаточно средств",
	},
	CodeDuplicateEvent: {
		language.English: "event already processed",
		language.Russian: "событие уже обработано",
	},
	CodeBadRequest: {
		language.English: "invalid request",
		language.Russian: "некорректный запрос",
	},
	CodeRateLimited: {
		language.English: "too many requests",
		language.Russian: "слишком много запросов",
	},
	CodeInternal: {
		language.English: "internal error",
		language.Russian: "внутренняя ошибка",
	},
}

// Lang picks the response language from Accept-Language. English is the
// fallback.
func Lang(r *http.Request) language.Tag {
	_, idx := language.MatchStrings(matcher, r.Header.Get("Accept-Language"))
	return supported[idx]
}

func Message(r *http.Request, code string) string {
	byLang, ok := messages[code]
	if !ok {
		byLang = messages[CodeInternal]
	}
	if msg, ok := byLang[Lang(r)]; ok {
		return msg
	}
	return byLang[language.English]
}
