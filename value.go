package scripttemplar

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Record хранит одну строку импортированных данных: имя поля → скалярное значение
// (string, число, bool или nil).
type Record map[string]interface{}

// ValueKind задаёт тег значения, определяется один раз при подстановке.
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueNumber
	ValueText
	ValueBool
)

func (k ValueKind) String() string {
	switch k {
	case ValueNumber:
		return "number"
	case ValueText:
		return "text"
	case ValueBool:
		return "bool"
	default:
		return "empty"
	}
}

// Value хранит результат вычисления формулы или подставленное значение поля.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Bool bool
}

func Number(f float64) Value { return Value{Kind: ValueNumber, Num: f} }
func Text(s string) Value    { return Value{Kind: ValueText, Str: s} }
func Bool(b bool) Value      { return Value{Kind: ValueBool, Bool: b} }

// String форматирует значение так, как его увидит пользователь.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return formatNumber(v.Num)
	case ValueText:
		return v.Str
	case ValueBool:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Interface возвращает значение в виде, пригодном для записи в Record.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case ValueNumber:
		return v.Num
	case ValueText:
		return v.Str
	case ValueBool:
		return v.Bool
	default:
		return ""
	}
}

func (v Value) truthy() bool {
	switch v.Kind {
	case ValueNumber:
		return v.Num != 0 && !math.IsNaN(v.Num)
	case ValueText:
		return v.Str != ""
	case ValueBool:
		return v.Bool
	default:
		return false
	}
}

// isString сообщает, участвует ли значение в сравнении/сложении как строка.
func (v Value) isString() bool { return v.Kind == ValueText || v.Kind == ValueEmpty }

// toNumber приводит значение к числу; пустая строка даёт 0, для нечислового текста false.
func (v Value) toNumber() (float64, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Num, true
	case ValueBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case ValueText:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0, true
		}
		if !rxNumeric.MatchString(s) {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, true
	}
}

// literal возвращает вид значения внутри формулы после подстановки.
// Целые за пределами int64 парсер формул не принимает, их пишем с экспонентой.
func (v Value) literal() string {
	switch v.Kind {
	case ValueNumber:
		if math.Abs(v.Num) >= 1<<63 {
			return strconv.FormatFloat(v.Num, 'e', -1, 64)
		}
		return formatNumber(v.Num)
	case ValueText:
		return quoteLiteral(v.Str)
	default:
		return `""`
	}
}

// rxNumeric принимает только «чистое» десятичное число без хвостов, hex, inf/nan и подчёркиваний.
var rxNumeric = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// FormulaValue выполняет приведение значения поля при подстановке в формулу:
// конечные числа и строки, целиком разбираемые как число, становятся Number,
// nil и пустая строка дают Empty, всё остальное Text.
func FormulaValue(raw interface{}) Value {
	switch vv := raw.(type) {
	case nil:
		return Value{}
	case Value:
		if vv.Kind == ValueBool {
			return Text(vv.String())
		}
		if vv.Kind == ValueText {
			return FormulaValue(vv.Str)
		}
		return vv
	case string:
		s := strings.TrimSpace(vv)
		if vv == "" {
			return Value{}
		}
		if rxNumeric.MatchString(s) {
			if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) {
				return Number(f)
			}
		}
		return Text(vv)
	case float64:
		return numberOrText(vv)
	case float32:
		return numberOrText(float64(vv))
	case int:
		return Number(float64(vv))
	case int64:
		return Number(float64(vv))
	case int32:
		return Number(float64(vv))
	case uint:
		return Number(float64(vv))
	case uint64:
		return Number(float64(vv))
	case bool:
		return Text(strconv.FormatBool(vv))
	default:
		return Text(fmt.Sprintf("%v", vv))
	}
}

func numberOrText(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Text(formatNumber(f))
	}
	return Number(f)
}

func quoteLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// formatNumber повторяет привычное пользователю представление чисел:
// целые без дробной части, экспонента только для очень больших и очень малых.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// toString возвращает текстовое представление значения поля для шаблона.
func toString(v interface{}) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case Value:
		return vv.String()
	case float64:
		return formatNumber(vv)
	case float32:
		return formatNumber(float64(vv))
	case bool:
		if vv {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", vv)
	}
}
