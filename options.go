package scripttemplar

// Options задаёт язык сообщений и вычислительные ограничения.
type Options struct {
	Messages Messages

	MaxFormulaLength     int // в символах
	MaxPlaceholders      int // сколько [[...]] обрабатывается за вызов
	MaxBracketIterations int
	MaxTraceSteps        int
	MaxFieldNameLength   int
}

func DefaultOptions() Options {
	return Options{
		Messages:             MessagesZH,
		MaxFormulaLength:     1000,
		MaxPlaceholders:      100,
		MaxBracketIterations: 20,
		MaxTraceSteps:        50,
		MaxFieldNameLength:   100,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Messages.NoData == "" {
		o.Messages = d.Messages
	}
	if o.MaxFormulaLength <= 0 {
		o.MaxFormulaLength = d.MaxFormulaLength
	}
	if o.MaxPlaceholders <= 0 {
		o.MaxPlaceholders = d.MaxPlaceholders
	}
	if o.MaxBracketIterations <= 0 {
		o.MaxBracketIterations = d.MaxBracketIterations
	}
	if o.MaxTraceSteps <= 0 {
		o.MaxTraceSteps = d.MaxTraceSteps
	}
	if o.MaxFieldNameLength <= 0 {
		o.MaxFieldNameLength = d.MaxFieldNameLength
	}
	return o
}

// Evaluator хранит только неизменяемую конфигурацию; между вызовами
// никакого состояния нет, поэтому один экземпляр можно переиспользовать.
type Evaluator struct {
	opts Options
}

func NewEvaluator(opts Options) *Evaluator {
	return &Evaluator{opts: opts.withDefaults()}
}

// NewEvaluatorForLocale сокращает NewEvaluator с каталогом по коду языка.
func NewEvaluatorForLocale(lang string) *Evaluator {
	opts := DefaultOptions()
	opts.Messages, _ = LookupMessages(lang)
	return NewEvaluator(opts)
}

func (e *Evaluator) Options() Options { return e.opts }

func (e *Evaluator) Messages() Messages { return e.opts.Messages }

var defaultEvaluator = NewEvaluator(DefaultOptions())

// Render подставляет значения записи в шаблон с настройками по умолчанию.
func Render(template string, rec Record) string { return defaultEvaluator.Render(template, rec) }

// Evaluate вычисляет формулу без трассы с настройками по умолчанию.
func Evaluate(formula string, rec Record) (Value, error) {
	return defaultEvaluator.Evaluate(formula, rec)
}

// EvaluateWithSteps вычисляет формулу с трассой с настройками по умолчанию.
func EvaluateWithSteps(formula string, rec Record) (Result, error) {
	return defaultEvaluator.EvaluateWithSteps(formula, rec)
}
