package scripttemplar

// Render подставляет значения записи в шаблон. Результат является инертным текстом для
// показа, поэтому ни фильтра, ни вычислений здесь нет. Поле, которого нет в
// записи, заменяется сентинелом «нет данных»; nil-значение пустой строкой.
// Ссылки сверх MaxPlaceholders остаются в тексте без изменений.
func (e *Evaluator) Render(template string, rec Record) string {
	if template == "" || rec == nil {
		return ""
	}
	return substitute(template, e.opts.MaxPlaceholders, func(tk token) string {
		v, ok := rec[tk.name]
		if !ok {
			return e.opts.Messages.NoData
		}
		return toString(v)
	})
}
