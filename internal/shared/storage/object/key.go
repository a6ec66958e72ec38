package object

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/seregajade-png/analysis-beauty/internal/shared/util"
)

// ErrInvalidName rejects file names that are empty or try to climb out of
// their folder.
var ErrInvalidName = errors.New("invalid file name")

const maxNameRunes = 100

// NewKey builds "<folder>/<namespace hash>/<random>_<clean name>". The
// user id never appears in the key in clear.
func NewKey(folder, namespace, fileName string) (string, error) {
	name, err := CleanFileName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join(strings.Trim(folder, "/"), namespaceDir(namespace), util.RandomHex(8)+"_"+name), nil
}

func namespaceDir(namespace string) string {
	sum := sha256.Sum256([]byte(namespace))
	return hex.EncodeToString(sum[:12])
}

// CleanFileName keeps letters (Cyrillic included), digits and a few
// punctuation marks, replaces everything else with "_" and trims long names
// while keeping the extension.
func CleanFileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "..") {
		return "", ErrInvalidName
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	clean := b.String()
	if utf8.RuneCountInString(clean) <= maxNameRunes {
		return clean, nil
	}
	ext := path.Ext(clean)
	if utf8.RuneCountInString(ext) > 10 {
		ext = ""
	}
	stem := []rune(strings.TrimSuffix(clean, ext))
	return string(stem[:maxNameRunes-utf8.RuneCountInString(ext)]) + ext, nil
}
