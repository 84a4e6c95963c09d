package scripttemplar

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Project описывает YAML-файл проекта, в нём шаблон, вычисляемые поля и настройки импорта.
//
//	template: "您好 [[客户名称]]，余额 [[余额]]"
//	name_column: 客户名称
//	locale: zh
//	calc_fields:
//	  - name: 总额
//	    formula: "[[单价]] * [[数量]]"
//	import:
//	  sheet: Sheet1
//	  header_row: 2
//	history: history.json
type Project struct {
	Template   string        `yaml:"template"`
	NameColumn string        `yaml:"name_column,omitempty"`
	Locale     string        `yaml:"locale,omitempty"`
	CalcFields []CalcField   `yaml:"calc_fields,omitempty"`
	Import     ProjectImport `yaml:"import,omitempty"`
	History    string        `yaml:"history,omitempty"`

	dir string // каталог файла проекта, относительно него резолвятся пути
}

type ProjectImport struct {
	Sheet     string `yaml:"sheet,omitempty"`
	HeaderRow int    `yaml:"header_row,omitempty"`
}

// LoadProject читает проект из файла.
func LoadProject(path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("открытие проекта: %w", err)
	}
	defer f.Close()
	p, err := LoadProjectReader(f)
	if err != nil {
		return nil, err
	}
	p.dir = filepath.Dir(path)
	return p, nil
}

// LoadProjectReader декодирует проект строго, неизвестные ключи дают ошибку.
func LoadProjectReader(r io.Reader) (*Project, error) {
	var p Project
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("разбор проекта: %w", err)
	}
	if p.Import.HeaderRow < 0 {
		return nil, fmt.Errorf("разбор проекта: header_row должен быть >= 1, получено %d", p.Import.HeaderRow)
	}
	for i, cf := range p.CalcFields {
		if cf.Name == "" || cf.Formula == "" {
			return nil, fmt.Errorf("разбор проекта: calc_fields[%d]: нужны name и formula", i)
		}
	}
	return &p, nil
}

// SaveProject пишет проект в YAML.
func SaveProject(path string, p *Project) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Evaluator создаёт вычислитель с каталогом сообщений проекта.
func (p *Project) Evaluator() *Evaluator { return NewEvaluatorForLocale(p.Locale) }

func (p *Project) ImportOptions() ImportOptions {
	return ImportOptions{Sheet: p.Import.Sheet, HeaderRow: p.Import.HeaderRow}
}

// HistoryPath возвращает путь к журналу с учётом каталога проекта; пусто, если журнал не задан.
func (p *Project) HistoryPath() string {
	if p.History == "" || filepath.IsAbs(p.History) || p.dir == "" {
		return p.History
	}
	return filepath.Join(p.dir, p.History)
}

// Apply переносит шаблон, колонку имени и вычисляемые поля в Workspace и
// пересчитывает их. Поле, не прошедшее проверку, прерывает применение.
// Возвращает число ячеек с ошибкой вычисления.
func (p *Project) Apply(ws *Workspace, ev *Evaluator) (int, error) {
	ws.Template = p.Template
	if p.NameColumn != "" {
		ws.NameColumn = p.NameColumn
	}
	for _, cf := range p.CalcFields {
		if err := ws.ValidateCalcField(ev, cf); err != nil {
			return 0, fmt.Errorf("вычисляемое поле %q: %w", cf.Name, err)
		}
		ws.CalcFields = append(ws.CalcFields, CalcField{Name: strings.TrimSpace(cf.Name), Formula: strings.TrimSpace(cf.Formula)})
	}
	return ws.ApplyCalcFields(ev), nil
}
