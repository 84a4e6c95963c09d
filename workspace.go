package scripttemplar

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// CalcField описывает вычисляемое поле, это имя и формула с [[ссылками]].
type CalcField struct {
	Name    string `yaml:"name" json:"name"`
	Formula string `yaml:"formula" json:"formula"`
}

// Workspace служит явным контекстом приложения. В нём загруженные данные,
// вычисляемые поля, колонка с именем клиента и текущий шаблон. Ядро (Evaluator) его не
// хранит, а получает записи из него при каждом вызове.
type Workspace struct {
	Fields     []string
	Records    []Record
	CalcFields []CalcField
	NameColumn string
	Template   string
}

// Частые названия колонки с именем клиента.
var commonNameFields = []string{"客户名称", "姓名", "名称", "name", "customer", "client"}

var (
	ErrNoHeader  = errors.New("не найдена строка с именами полей")
	ErrNoRecords = errors.New("нет строк с данными")
)

// NewWorkspace строит записи из таблицы: в первой строке имена полей,
// в остальных данные. Полностью пустые строки отбрасываются.
func NewWorkspace(table [][]string) (*Workspace, error) {
	if len(table) == 0 || len(table[0]) == 0 {
		return nil, ErrNoHeader
	}
	headers := table[0]
	ws := &Workspace{Fields: append([]string(nil), headers...)}
	for _, row := range table[1:] {
		rec := make(Record, len(headers))
		keep := false
		for i, h := range headers {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			if strings.TrimSpace(val) != "" {
				keep = true
			}
			rec[h] = val
		}
		if keep {
			ws.Records = append(ws.Records, rec)
		}
	}
	if len(ws.Records) == 0 {
		return nil, ErrNoRecords
	}
	return ws, nil
}

// AllFields возвращает исходные поля, затем вычисляемые в порядке объявления.
func (w *Workspace) AllFields() []string {
	out := make([]string, 0, len(w.Fields)+len(w.CalcFields))
	out = append(out, w.Fields...)
	for _, cf := range w.CalcFields {
		out = append(out, cf.Name)
	}
	return out
}

func (w *Workspace) hasField(name string) bool {
	for _, f := range w.AllFields() {
		if f == name {
			return true
		}
	}
	return false
}

// ValidateCalcField проверяет определение перед добавлением. Ошибки
// локализованы и показываются пользователю без изменений.
func (w *Workspace) ValidateCalcField(ev *Evaluator, cf CalcField) error {
	msg := ev.Messages()
	opts := ev.Options()
	name := strings.TrimSpace(cf.Name)
	formula := strings.TrimSpace(cf.Formula)
	if name == "" || formula == "" {
		return errors.New(msg.FieldRequired)
	}
	if utf8.RuneCountInString(name) > opts.MaxFieldNameLength {
		return errors.New(msg.FieldNameTooLong)
	}
	if utf8.RuneCountInString(formula) > opts.MaxFormulaLength {
		return &FormulaError{Kind: KindTooLong, Message: msg.FormulaTooLong}
	}
	if w.hasField(name) {
		return errors.New(msg.FieldNameExists)
	}
	return nil
}

// PreviewCalcField вычисляет формулу с трассой на первой записи.
func (w *Workspace) PreviewCalcField(ev *Evaluator, cf CalcField) (Result, error) {
	if err := w.ValidateCalcField(ev, cf); err != nil {
		return Result{}, err
	}
	if len(w.Records) == 0 {
		return Result{}, errors.New(ev.Messages().NoPreviewData)
	}
	return ev.EvaluateWithSteps(strings.TrimSpace(cf.Formula), w.Records[0])
}

// AddCalcField добавляет поле и сразу пересчитывает все вычисляемые поля.
func (w *Workspace) AddCalcField(ev *Evaluator, cf CalcField) (int, error) {
	if err := w.ValidateCalcField(ev, cf); err != nil {
		return 0, err
	}
	w.CalcFields = append(w.CalcFields, CalcField{Name: strings.TrimSpace(cf.Name), Formula: strings.TrimSpace(cf.Formula)})
	return w.ApplyCalcFields(ev), nil
}

// ApplyCalcFields дописывает вычисляемые поля в каждую запись (на месте).
// Порядок: внешний цикл по записям, внутренний по полям в порядке
// объявления, поэтому формула видит значения предыдущих полей той же записи.
// Ошибка в ячейке заменяется сентинелом и не прерывает обработку.
// Возвращает число ячеек с ошибкой.
func (w *Workspace) ApplyCalcFields(ev *Evaluator) int {
	failed := 0
	for _, rec := range w.Records {
		for _, cf := range w.CalcFields {
			v, err := ev.Evaluate(cf.Formula, rec)
			if err != nil {
				rec[cf.Name] = ev.Messages().CalcError
				failed++
				continue
			}
			rec[cf.Name] = v.Interface()
		}
	}
	return failed
}

// ApplyCalcFields делает то же для произвольного набора записей.
func ApplyCalcFields(ev *Evaluator, records []Record, fields []CalcField) int {
	w := &Workspace{Records: records, CalcFields: fields}
	return w.ApplyCalcFields(ev)
}

// DisplayName решает, как показать клиента в списках и экспорте.
func (w *Workspace) DisplayName(ev *Evaluator, rec Record) string {
	if w.NameColumn != "" {
		if s := toString(rec[w.NameColumn]); s != "" {
			return s
		}
	}
	for _, f := range commonNameFields {
		if s := toString(rec[f]); s != "" {
			return s
		}
	}
	for _, f := range w.AllFields() {
		if s := toString(rec[f]); strings.TrimSpace(s) != "" {
			return fmt.Sprintf("%s: %s", f, s)
		}
	}
	return ev.Messages().UnknownCustomer
}

// FindCustomers ищет записи по подстроке в отображаемом имени без учёта регистра.
func (w *Workspace) FindCustomers(ev *Evaluator, query string) []Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return w.Records
	}
	var out []Record
	for _, rec := range w.Records {
		if strings.Contains(strings.ToLower(w.DisplayName(ev, rec)), q) {
			out = append(out, rec)
		}
	}
	return out
}

// RenderFor рендерит текущий шаблон для одной записи.
func (w *Workspace) RenderFor(ev *Evaluator, rec Record) string {
	return ev.Render(w.Template, rec)
}

// RenderAll рендерит шаблон для всех записей по порядку.
func (w *Workspace) RenderAll(ev *Evaluator) []string {
	out := make([]string, len(w.Records))
	for i, rec := range w.Records {
		out[i] = ev.Render(w.Template, rec)
	}
	return out
}
