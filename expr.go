package scripttemplar

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/parser"
)

// Общий вычислитель: разбор выражения делает парсер expr-lang, а вычисляет
// собственный обход дерева. Обход принимает только узлы из узкой грамматики
// (литералы, + - * / **, сравнения, && || !, ?:, скобки и математические
// функции), всё остальное даёт ошибку. Окружения с данными хоста нет вообще.

type mathFunc struct {
	minArgs int
	maxArgs int // -1 без ограничения
	fn      func(args []float64) float64
}

var mathFuncs = map[string]mathFunc{
	"round": {1, 1, func(a []float64) float64 { return math.Floor(a[0] + 0.5) }},
	"floor": {1, 1, func(a []float64) float64 { return math.Floor(a[0]) }},
	"ceil":  {1, 1, func(a []float64) float64 { return math.Ceil(a[0]) }},
	"trunc": {1, 1, func(a []float64) float64 { return math.Trunc(a[0]) }},
	"abs":   {1, 1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"sqrt":  {1, 1, func(a []float64) float64 { return math.Sqrt(a[0]) }},
	"sign": {1, 1, func(a []float64) float64 {
		switch {
		case a[0] > 0:
			return 1
		case a[0] < 0:
			return -1
		}
		return a[0]
	}},
	"pow": {2, 2, func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"min": {1, -1, func(a []float64) float64 {
		m := a[0]
		for _, x := range a[1:] {
			m = math.Min(m, x)
		}
		return m
	}},
	"max": {1, -1, func(a []float64) float64 {
		m := a[0]
		for _, x := range a[1:] {
			m = math.Max(m, x)
		}
		return m
	}},
}

var mathConsts = map[string]float64{
	"PI": math.Pi,
	"E":  math.E,
}

// evalExpression вычисляет выражение, уже прошедшее фильтр безопасности.
func (e *Evaluator) evalExpression(src string) (Value, error) {
	msg := &e.opts.Messages
	tree, err := parser.Parse(normalizeEquality(src))
	if err != nil {
		col := 0
		var fe *file.Error
		if errors.As(err, &fe) {
			col = fe.Column
		}
		return Value{}, &evalError{kind: KindInvalidExpression, text: fmt.Sprintf(msg.SyntaxError, col)}
	}
	w := &walker{msg: msg}
	return w.eval(tree.Node)
}

// normalizeEquality переписывает === и !== в == и != вне строковых литералов.
func normalizeEquality(src string) string {
	if !strings.Contains(src, "==") {
		return src
	}
	var out strings.Builder
	quote := byte(0)
	for i := 0; i < len(src); i++ {
		ch := src[i]
		if quote != 0 {
			out.WriteByte(ch)
			if ch == '\\' && i+1 < len(src) {
				i++
				out.WriteByte(src[i])
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		if ch == '\'' || ch == '"' {
			quote = ch
			out.WriteByte(ch)
			continue
		}
		if (ch == '=' || ch == '!') && strings.HasPrefix(src[i+1:], "==") {
			out.WriteByte(ch)
			out.WriteByte('=')
			i += 2
			continue
		}
		out.WriteByte(ch)
	}
	return out.String()
}

type walker struct {
	msg *Messages
}

// unsupported отвечает пользователю общим текстом, сама конструкция остаётся
// только в причине ошибки.
func (w *walker) unsupported(what string) error {
	return &evalError{kind: KindExecution, text: w.msg.UnsupportedExpression, cause: fmt.Errorf("неподдерживаемая конструкция: %s", what)}
}

func (w *walker) unknownName(name string) error {
	return &evalError{kind: KindExecution, text: w.msg.UnsupportedExpression, cause: fmt.Errorf("неизвестное имя: %s", name)}
}

func (w *walker) eval(n ast.Node) (Value, error) {
	switch nn := n.(type) {
	case *ast.IntegerNode:
		return Number(float64(nn.Value)), nil
	case *ast.FloatNode:
		return Number(nn.Value), nil
	case *ast.StringNode:
		return Text(nn.Value), nil
	case *ast.BoolNode:
		return Bool(nn.Value), nil
	case *ast.NilNode:
		return Value{}, nil
	case *ast.UnaryNode:
		return w.evalUnary(nn)
	case *ast.BinaryNode:
		return w.evalBinary(nn)
	case *ast.ConditionalNode:
		cond, err := w.eval(nn.Cond)
		if err != nil {
			return Value{}, err
		}
		if cond.truthy() {
			return w.eval(nn.Exp1)
		}
		return w.eval(nn.Exp2)
	case *ast.BuiltinNode:
		return w.call(nn.Name, nn.Arguments)
	case *ast.CallNode:
		name, ok := calleeName(nn.Callee)
		if !ok {
			return Value{}, w.unsupported(nn.Callee.String())
		}
		return w.call(name, nn.Arguments)
	case *ast.MemberNode:
		if name, ok := mathMember(nn); ok {
			if c, ok := mathConsts[name]; ok {
				return Number(c), nil
			}
		}
		return Value{}, w.unsupported(nn.String())
	case *ast.IdentifierNode:
		return Value{}, w.unknownName(nn.Value)
	case nil:
		return Value{}, &evalError{kind: KindInvalidExpression, text: w.msg.InvalidExpression}
	default:
		return Value{}, w.unsupported(n.String())
	}
}

// calleeName принимает только round(x) и Math.round(x).
func calleeName(n ast.Node) (string, bool) {
	switch c := n.(type) {
	case *ast.IdentifierNode:
		return c.Value, true
	case *ast.MemberNode:
		return mathMember(c)
	}
	return "", false
}

func mathMember(m *ast.MemberNode) (string, bool) {
	id, ok := m.Node.(*ast.IdentifierNode)
	if !ok || id.Value != "Math" || m.Optional {
		return "", false
	}
	prop, ok := m.Property.(*ast.StringNode)
	if !ok {
		return "", false
	}
	return prop.Value, true
}

func (w *walker) call(name string, args []ast.Node) (Value, error) {
	f, ok := mathFuncs[name]
	if !ok {
		return Value{}, w.unknownName(name)
	}
	if len(args) < f.minArgs || (f.maxArgs >= 0 && len(args) > f.maxArgs) {
		return Value{}, &evalError{kind: KindExecution, text: fmt.Sprintf(w.msg.ArgumentCount, name)}
	}
	nums := make([]float64, 0, len(args))
	for _, a := range args {
		v, err := w.eval(a)
		if err != nil {
			return Value{}, err
		}
		x, err := w.number(v)
		if err != nil {
			return Value{}, err
		}
		nums = append(nums, x)
	}
	return Number(f.fn(nums)), nil
}

func (w *walker) number(v Value) (float64, error) {
	f, ok := v.toNumber()
	if !ok {
		return 0, &evalError{kind: KindInvalidExpression, text: fmt.Sprintf(w.msg.NotANumber, v.literal())}
	}
	return f, nil
}

func (w *walker) evalUnary(n *ast.UnaryNode) (Value, error) {
	v, err := w.eval(n.Node)
	if err != nil {
		return Value{}, err
	}
	switch n.Operator {
	case "!", "not":
		return Bool(!v.truthy()), nil
	case "-":
		f, err := w.number(v)
		if err != nil {
			return Value{}, err
		}
		return Number(-f), nil
	case "+":
		f, err := w.number(v)
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	}
	return Value{}, w.unsupported(n.Operator)
}

func (w *walker) evalBinary(n *ast.BinaryNode) (Value, error) {
	l, err := w.eval(n.Left)
	if err != nil {
		return Value{}, err
	}
	// && и || возвращают один из операндов и не вычисляют правую часть без нужды
	switch n.Operator {
	case "&&", "and":
		if !l.truthy() {
			return l, nil
		}
		return w.eval(n.Right)
	case "||", "or":
		if l.truthy() {
			return l, nil
		}
		return w.eval(n.Right)
	}
	r, err := w.eval(n.Right)
	if err != nil {
		return Value{}, err
	}
	switch n.Operator {
	case "+":
		if l.isString() || r.isString() {
			return Text(l.String() + r.String()), nil
		}
		return w.arith(l, r, n.Operator)
	case "-", "*", "/", "**":
		return w.arith(l, r, n.Operator)
	case "==":
		return Bool(looseEqual(l, r)), nil
	case "!=":
		return Bool(!looseEqual(l, r)), nil
	case "<", ">", "<=", ">=":
		return Bool(compare(l, r, n.Operator)), nil
	}
	return Value{}, w.unsupported(n.Operator)
}

func (w *walker) arith(l, r Value, op string) (Value, error) {
	a, err := w.number(l)
	if err != nil {
		return Value{}, err
	}
	b, err := w.number(r)
	if err != nil {
		return Value{}, err
	}
	res, err := applyOp(a, b, op)
	if err != nil {
		return Value{}, &evalError{kind: KindDivisionByZero, text: w.msg.DivisionByZero}
	}
	return Number(res), nil
}

// applyOp выполняет арифметику, общую для обоих вычислителей.
func applyOp(a, b float64, op string) (float64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a / b, nil
	case "**":
		return math.Pow(a, b), nil
	}
	return 0, ErrInvalidExpression
}

func looseEqual(l, r Value) bool {
	if l.isString() && r.isString() {
		return l.String() == r.String()
	}
	if l.Kind == ValueBool && r.Kind == ValueBool {
		return l.Bool == r.Bool
	}
	a, okA := l.toNumber()
	b, okB := r.toNumber()
	if !okA || !okB {
		return false
	}
	return a == b
}

func compare(l, r Value, op string) bool {
	if l.isString() && r.isString() {
		a, b := l.String(), r.String()
		switch op {
		case "<":
			return a < b
		case ">":
			return a > b
		case "<=":
			return a <= b
		default:
			return a >= b
		}
	}
	a, okA := l.toNumber()
	b, okB := r.toNumber()
	if !okA || !okB {
		return false
	}
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	default:
		return a >= b
	}
}
