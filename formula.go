package scripttemplar

import (
	"fmt"
	"unicode/utf8"
)

// Trace хранит ограниченный журнал шагов для предпросмотра. После достижения
// лимита новые строки молча отбрасываются, вычисление продолжается.
type Trace struct {
	steps []string
	limit int
}

func newTrace(limit int) *Trace { return &Trace{limit: limit} }

func (t *Trace) add(step string) {
	if t == nil || len(t.steps) >= t.limit {
		return
	}
	t.steps = append(t.steps, step)
}

func (t *Trace) addf(format string, args ...interface{}) {
	if t == nil {
		return
	}
	t.add(fmt.Sprintf(format, args...))
}

func (t *Trace) Steps() []string {
	if t == nil {
		return nil
	}
	return t.steps
}

// Result содержит значение формулы и трассу его вычисления.
type Result struct {
	Value Value
	Steps []string
}

// Evaluate вычисляет формулу против записи без трассы. Используется при
// применении вычисляемых полей ко всему набору данных.
func (e *Evaluator) Evaluate(formula string, rec Record) (Value, error) {
	return e.evaluate(formula, rec, nil)
}

// EvaluateWithSteps вычисляет формулу и возвращает трассу. При ошибке Result
// всё равно содержит шаги, собранные до отказа.
func (e *Evaluator) EvaluateWithSteps(formula string, rec Record) (Result, error) {
	tr := newTrace(e.opts.MaxTraceSteps)
	v, err := e.evaluate(formula, rec, tr)
	return Result{Value: v, Steps: tr.Steps()}, err
}

func (e *Evaluator) evaluate(formula string, rec Record, tr *Trace) (Value, error) {
	msg := &e.opts.Messages
	if utf8.RuneCountInString(formula) > e.opts.MaxFormulaLength {
		return Value{}, &FormulaError{Kind: KindTooLong, Message: msg.FormulaTooLong}
	}
	tr.addf(msg.StepOriginal, formula)

	processed := e.substituteFormula(formula, rec, tr)
	tr.addf(msg.StepSubstituted, processed)

	if r := checkFormula(processed); r != rejectNone {
		return Value{}, e.rejectError(r)
	}
	tr.add(msg.StepStart)

	if tr != nil && isArithmetic(processed) {
		st := &stepper{msg: msg, trace: tr, maxBraces: e.opts.MaxBracketIterations}
		if res, err := st.run(processed); err == nil {
			tr.add(msg.StepDone)
			return Number(res), nil
		}
		// отказ пошагового режима не финальный: пересчитываем напрямую
		tr.add(msg.StepFallback)
	}

	v, err := e.evalExpression(processed)
	if err != nil {
		tr.addf(msg.StepError, err.Error())
		return Value{}, &FormulaError{Kind: kindOf(err), Message: fmt.Sprintf(msg.ExecutionError, err.Error()), Cause: err}
	}
	tr.addf(msg.StepResult, v.String())
	return v, nil
}

// substituteFormula подставляет в формулу литералы: числа как есть, текст в
// кавычках, пустые и отсутствующие поля как "".
func (e *Evaluator) substituteFormula(formula string, rec Record, tr *Trace) string {
	msg := &e.opts.Messages
	return substitute(formula, e.opts.MaxPlaceholders, func(tk token) string {
		raw, ok := rec[tk.name]
		if !ok {
			tr.addf(msg.StepMissing, tk.raw)
			return `""`
		}
		lit := FormulaValue(raw).literal()
		tr.addf(msg.StepSubstitute, tk.name, lit)
		return lit
	})
}
