package analysis

import (
	"errors"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrTerminalState     = errors.New("record is in a terminal state")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedSource = errors.New("unsupported source")
	ErrNoJSON            = errors.New("Не удалось найти JSON в ответе AI")
	ErrInvalidJSON       = errors.New("Ошибка парсинга JSON ответа AI")
	ErrClientGone        = errors.New("client disconnected")
)

// UserMessage returns the client-facing part of a validation error.
func UserMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrInvalidInput, ErrUnsupportedSource} {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
			return rest
		}
	}
	return msg
}
