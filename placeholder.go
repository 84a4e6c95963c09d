package scripttemplar

import (
	"regexp"
	"strings"
)

// Синтаксис [[поле]] хранится в пользовательских шаблонах и истории,
// менять его нельзя.
var rxPlaceholder = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenField
)

type token struct {
	kind tokenKind
	text string // для tokenText исходный текст, для tokenField [[...]] целиком
	raw  string // имя как в шаблоне
	name string // имя после trim
}

// parseTokens разбивает строку на текст и ссылки на поля. Ссылки сверх
// limit не разбираются и остаются в тексте как есть.
func parseTokens(s string, limit int) []token {
	n := -1
	if limit > 0 {
		n = limit
	}
	ms := rxPlaceholder.FindAllStringSubmatchIndex(s, n)
	if len(ms) == 0 {
		if s == "" {
			return nil
		}
		return []token{{kind: tokenText, text: s}}
	}
	toks := make([]token, 0, 2*len(ms)+1)
	last := 0
	for _, m := range ms {
		start, end := m[0], m[1]
		ns, ne := m[2], m[3]
		if start > last {
			toks = append(toks, token{kind: tokenText, text: s[last:start]})
		}
		raw := s[ns:ne]
		toks = append(toks, token{kind: tokenField, text: s[start:end], raw: raw, name: strings.TrimSpace(raw)})
		last = end
	}
	if last < len(s) {
		toks = append(toks, token{kind: tokenText, text: s[last:]})
	}
	return toks
}

// substitute заменяет каждую ссылку результатом fn, текст копирует без изменений.
func substitute(s string, limit int, fn func(tk token) string) string {
	toks := parseTokens(s, limit)
	var sb strings.Builder
	sb.Grow(len(s))
	for _, tk := range toks {
		if tk.kind == tokenText {
			sb.WriteString(tk.text)
			continue
		}
		sb.WriteString(fn(tk))
	}
	return sb.String()
}

// FieldRefs возвращает имена полей, на которые ссылается шаблон или формула,
// в порядке первого появления.
func FieldRefs(s string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, tk := range parseTokens(s, -1) {
		if tk.kind != tokenField {
			continue
		}
		if _, ok := seen[tk.name]; ok {
			continue
		}
		seen[tk.name] = struct{}{}
		out = append(out, tk.name)
	}
	return out
}
