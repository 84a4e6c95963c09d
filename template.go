package scripttemplar

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

// Шаблон книги Excel для пакетного экспорта.
// - строка, в ячейках которой есть [[поле]], считается шаблонной и повторяется для каждой записи
// - несколько шаблонных строк листа образуют блок и повторяются вместе, по порядку
// - остальные строки статические и остаются на месте
// Стили ячеек, высота строки и горизонтальные слияния копируются из образца.

type WorkbookTemplate struct {
	f      *excelize.File
	sheets []*sheetTemplate
}

type sheetTemplate struct {
	name string
	rows []rowTpl // по возрастанию номера строки
}

// rowTpl описывает шаблонную строку (значения, стили, высота, горизонтальные слияния)
type rowTpl struct {
	row     int // 1-based
	rawVals map[int]string
	styles  map[int]int
	height  float64
	merges  []struct {
		startCol int
		endCol   int
	}
}

const maxTemplateCols = 100

// LoadWorkbookTemplate находит шаблонные строки на каждом листе
func LoadWorkbookTemplate(path string) (*WorkbookTemplate, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	t := &WorkbookTemplate{f: f}
	for _, sheet := range f.GetSheetList() {
		st, err := parseTemplateSheet(f, sheet)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("парсинг листа %s: %w", sheet, err)
		}
		t.sheets = append(t.sheets, st)
	}
	return t, nil
}

func parseTemplateSheet(f *excelize.File, sheet string) (*sheetTemplate, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, err
	}
	st := &sheetTemplate{name: sheet}
	for rIdx, row := range rows {
		has := false
		for _, cell := range row {
			if rxPlaceholder.MatchString(cell) {
				has = true
				break
			}
		}
		if !has {
			continue
		}
		rowNum := rIdx + 1
		rt := rowTpl{row: rowNum, rawVals: make(map[int]string), styles: make(map[int]int)}
		for cIdx, cell := range row {
			if cell != "" {
				rt.rawVals[cIdx+1] = cell
			}
		}
		for col := 1; col <= maxTemplateCols; col++ {
			addr, _ := excelize.CoordinatesToCellName(col, rowNum)
			if sid, err := f.GetCellStyle(sheet, addr); err == nil && sid != 0 {
				rt.styles[col] = sid
			}
		}
		if h, err := f.GetRowHeight(sheet, rowNum); err == nil {
			rt.height = h
		}
		for _, m := range merges {
			sc, sr, _ := excelize.SplitCellName(m.GetStartAxis())
			ec, er, _ := excelize.SplitCellName(m.GetEndAxis())
			if sr == rowNum && er == rowNum {
				scn, _ := excelize.ColumnNameToNumber(sc)
				ecn, _ := excelize.ColumnNameToNumber(ec)
				rt.merges = append(rt.merges, struct{ startCol, endCol int }{startCol: scn, endCol: ecn})
			}
		}
		st.rows = append(st.rows, rt)
	}
	sort.Slice(st.rows, func(i, j int) bool { return st.rows[i].row < st.rows[j].row })
	return st, nil
}

// Render заменяет шаблонные строки каждого листа блоками по одному на запись.
func (t *WorkbookTemplate) Render(ws *Workspace, ev *Evaluator) error {
	for _, st := range t.sheets {
		if err := t.renderSheet(st, ws, ev); err != nil {
			return fmt.Errorf("лист %s: %w", st.name, err)
		}
	}
	return nil
}

func (t *WorkbookTemplate) renderSheet(st *sheetTemplate, ws *Workspace, ev *Evaluator) error {
	if len(st.rows) == 0 {
		return nil
	}
	sheet := st.name
	insertAt := st.rows[0].row
	// Удаляем образцы снизу вверх, чтобы номера оставшихся не съезжали
	for i := len(st.rows) - 1; i >= 0; i-- {
		if err := t.f.RemoveRow(sheet, st.rows[i].row); err != nil {
			return err
		}
	}
	n := len(ws.Records) * len(st.rows)
	if n == 0 {
		return nil
	}
	if err := t.f.InsertRows(sheet, insertAt, n); err != nil {
		return err
	}
	dstRow := insertAt
	for _, rec := range ws.Records {
		for _, rt := range st.rows {
			if err := t.fillRow(sheet, dstRow, rt, rec, ev); err != nil {
				return err
			}
			dstRow++
		}
	}
	return nil
}

func (t *WorkbookTemplate) fillRow(sheet string, dstRow int, rt rowTpl, rec Record, ev *Evaluator) error {
	for col, sid := range rt.styles {
		addr, _ := excelize.CoordinatesToCellName(col, dstRow)
		if err := t.f.SetCellStyle(sheet, addr, addr, sid); err != nil {
			return err
		}
	}
	for col, raw := range rt.rawVals {
		addr, _ := excelize.CoordinatesToCellName(col, dstRow)
		val := raw
		if rxPlaceholder.MatchString(raw) {
			val = ev.Render(raw, rec)
		}
		if err := t.f.SetCellValue(sheet, addr, val); err != nil {
			return err
		}
	}
	if rt.height > 0 {
		if err := t.f.SetRowHeight(sheet, dstRow, rt.height); err != nil {
			return err
		}
	}
	for _, mg := range rt.merges {
		c1, _ := excelize.CoordinatesToCellName(mg.startCol, dstRow)
		c2, _ := excelize.CoordinatesToCellName(mg.endCol, dstRow)
		_ = t.f.MergeCell(sheet, c1, c2)
	}
	return nil
}

// Save сохраняет файл
func (t *WorkbookTemplate) Save(destPath string) error { return t.f.SaveAs(destPath) }

func (t *WorkbookTemplate) Close() error { return t.f.Close() }
