package scripttemplar

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Пошаговый вычислитель для предпросмотра: работает только с числами,
// + - * / и скобками, каждое сокращение пишет строкой в трассу.

var (
	rxArithmeticShape = regexp.MustCompile(`^[0-9+\-*/.()]+$`)
	rxSpaces          = regexp.MustCompile(`\s+`)
)

// "1 2" или "2 (3)": операнды разделены только пробелом.
var rxSpacedOperands = regexp.MustCompile(`[0-9.)]\s+[0-9.(]`)

var errStepper = errors.New("пошаговое вычисление невозможно")

func isArithmetic(formula string) bool {
	return rxArithmeticShape.MatchString(rxSpaces.ReplaceAllString(formula, ""))
}

type stepper struct {
	msg       *Messages
	trace     *Trace
	maxBraces int
}

// run сокращает скобки изнутри наружу, затем считает плоское выражение.
func (s *stepper) run(expression string) (float64, error) {
	if rxSpacedOperands.MatchString(expression) {
		return 0, errStepper
	}
	expr := rxSpaces.ReplaceAllString(expression, "")
	if expr != expression {
		s.trace.addf(s.msg.StepSimplify, expr)
	}
	for iter := 0; strings.Contains(expr, "(") && iter < s.maxBraces; iter++ {
		open, closing := innermostBrackets(expr)
		if open < 0 || closing < 0 {
			break
		}
		// 2(3) или (1)(2): неявное умножение не поддерживаем
		if open > 0 && isOperandEnd(expr[open-1]) {
			return 0, errStepper
		}
		if closing+1 < len(expr) && isOperandStart(expr[closing+1]) {
			return 0, errStepper
		}
		inner := expr[open+1 : closing]
		res, err := s.flat(inner)
		if err != nil {
			return 0, err
		}
		s.trace.addf(s.msg.StepBracket, inner, formatNumber(res))
		expr = expr[:open] + formatNumber(res) + expr[closing+1:]
		s.trace.addf(s.msg.StepAfterBracket, expr)
	}
	res, err := s.flat(expr)
	if err != nil {
		return 0, err
	}
	s.trace.addf(s.msg.StepFinal, expr, formatNumber(res))
	return res, nil
}

// innermostBrackets находит первую закрывающую скобку и ближайшую открывающую перед ней.
func innermostBrackets(expr string) (int, int) {
	open := -1
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			open = i
		case ')':
			if open < 0 {
				return -1, -1
			}
			return open, i
		}
	}
	return -1, -1
}

func isOperandEnd(c byte) bool   { return c == ')' || c == '.' || (c >= '0' && c <= '9') }
func isOperandStart(c byte) bool { return c == '(' || c == '.' || (c >= '0' && c <= '9') }

type flatToken struct {
	op  byte // 0 для числа
	num float64
	src string
}

// flat считает выражение без скобок: сначала * и / слева направо, затем + и -.
func (s *stepper) flat(expr string) (float64, error) {
	toks, err := tokenizeFlat(expr)
	if err != nil {
		return 0, err
	}
	for _, group := range []string{"*/", "+-"} {
		for {
			i := leftmostOp(toks, group)
			if i < 0 {
				break
			}
			a, b := toks[i-1], toks[i+1]
			res, err := applyOp(a.num, b.num, string(toks[i].op))
			if err != nil {
				return 0, err
			}
			s.trace.addf(s.msg.StepOperation, a.src, string(toks[i].op), b.src, formatNumber(res))
			merged := flatToken{num: res, src: formatNumber(res)}
			toks = append(toks[:i-1], append([]flatToken{merged}, toks[i+2:]...)...)
		}
	}
	if len(toks) != 1 || toks[0].op != 0 {
		return 0, ErrInvalidExpression
	}
	return toks[0].num, nil
}

func leftmostOp(toks []flatToken, group string) int {
	for i, t := range toks {
		if t.op != 0 && strings.IndexByte(group, t.op) >= 0 {
			return i
		}
	}
	return -1
}

// tokenizeFlat различает бинарный минус и знак числа: знак допустим только в
// начале выражения или сразу после другого оператора.
func tokenizeFlat(expr string) ([]flatToken, error) {
	if expr == "" {
		return nil, ErrInvalidExpression
	}
	var toks []flatToken
	expectNumber := true
	for i := 0; i < len(expr); {
		c := expr[i]
		if !expectNumber {
			if strings.IndexByte("+-*/", c) < 0 {
				return nil, ErrInvalidExpression
			}
			toks = append(toks, flatToken{op: c, src: string(c)})
			expectNumber = true
			i++
			continue
		}
		start := i
		if c == '-' || c == '+' {
			i++
		}
		digits := 0
		for i < len(expr) && expr[i] >= '0' && expr[i] <= '9' {
			i++
			digits++
		}
		if i < len(expr) && expr[i] == '.' {
			i++
			for i < len(expr) && expr[i] >= '0' && expr[i] <= '9' {
				i++
				digits++
			}
		}
		if digits == 0 {
			return nil, ErrInvalidExpression
		}
		src := expr[start:i]
		f, err := strconv.ParseFloat(src, 64)
		if err != nil {
			return nil, ErrInvalidExpression
		}
		toks = append(toks, flatToken{num: f, src: src})
		expectNumber = false
	}
	if expectNumber {
		return nil, ErrInvalidExpression
	}
	return toks, nil
}
