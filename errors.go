package scripttemplar

import "errors"

// ErrorKind классифицирует отказ при работе с формулой.
type ErrorKind int

const (
	KindTooLong ErrorKind = iota + 1
	KindRejectedCharacters
	KindRejectedKeyword
	KindDivisionByZero
	KindInvalidExpression
	KindExecution
)

var (
	ErrFormulaTooLong    = errors.New("формула превышает допустимую длину")
	ErrFormulaRejected   = errors.New("формула отклонена фильтром")
	ErrDivisionByZero    = errors.New("деление на ноль")
	ErrInvalidExpression = errors.New("некорректное выражение")
	// ErrEvaluation совпадает с любой ошибкой этапа вычисления.
	ErrEvaluation = errors.New("ошибка вычисления формулы")
)

// FormulaError: структурированная ошибка ядра. Message уже локализован и
// годится для показа пользователю как есть.
type FormulaError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *FormulaError) Error() string { return e.Message }

func (e *FormulaError) Unwrap() error { return e.Cause }

func (e *FormulaError) Is(target error) bool {
	switch target {
	case ErrFormulaTooLong:
		return e.Kind == KindTooLong
	case ErrFormulaRejected:
		return e.Kind == KindRejectedCharacters || e.Kind == KindRejectedKeyword
	case ErrDivisionByZero:
		return e.Kind == KindDivisionByZero
	case ErrInvalidExpression:
		return e.Kind == KindInvalidExpression
	case ErrEvaluation:
		return e.Kind == KindDivisionByZero || e.Kind == KindInvalidExpression || e.Kind == KindExecution
	}
	return false
}

// evalError: внутренний отказ вычислителя с уже локализованной причиной.
type evalError struct {
	kind  ErrorKind
	text  string
	cause error
}

func (e *evalError) Error() string { return e.text }

func (e *evalError) Unwrap() error { return e.cause }

func kindOf(err error) ErrorKind {
	var ee *evalError
	if errors.As(err, &ee) {
		return ee.kind
	}
	return KindExecution
}
