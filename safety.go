package scripttemplar

import (
	"regexp"
	"strings"
)

// Фильтр работает по строке уже после подстановки: значения полей тоже
// проходят через него.
var rxAllowedFormula = regexp.MustCompile(`^[\s\d+\-*/()."'\w\x{4e00}-\x{9fa5}><=!?:&|]+$`)

// Сравнение по подстроке, с учётом регистра.
var deniedKeywords = []string{"eval", "Function", "setTimeout", "setInterval", "require", "import", "export"}

type rejectReason int

const (
	rejectNone rejectReason = iota
	rejectCharacters
	rejectKeyword
)

func checkFormula(s string) rejectReason {
	if !rxAllowedFormula.MatchString(s) {
		return rejectCharacters
	}
	for _, kw := range deniedKeywords {
		if strings.Contains(s, kw) {
			return rejectKeyword
		}
	}
	return rejectNone
}

func (e *Evaluator) rejectError(r rejectReason) error {
	if r == rejectKeyword {
		return &FormulaError{Kind: KindRejectedKeyword, Message: e.opts.Messages.DisallowedKeyword}
	}
	return &FormulaError{Kind: KindRejectedCharacters, Message: e.opts.Messages.DisallowedChars}
}
