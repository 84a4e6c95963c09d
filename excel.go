package scripttemplar

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// ImportOptions задаёт настройки импорта таблицы.
type ImportOptions struct {
	Sheet     string // лист книги; пусто значит первый
	HeaderRow int    // строка с именами полей, 1-based; 0 значит первая
	Delimiter rune   // для текстовых файлов; 0 значит по расширению (.tsv → таб, иначе запятая)
}

// -----------------------------
// Импорт
// -----------------------------

// ReadTable читает сырую таблицу из xlsx/csv/tsv/txt без нормализации.
func ReadTable(path string, opts ImportOptions) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return readWorkbook(path, opts.Sheet)
	case ".csv", ".tsv", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		delim := opts.Delimiter
		if delim == 0 {
			delim = ','
			if strings.EqualFold(filepath.Ext(path), ".tsv") {
				delim = '\t'
			}
		}
		return ParseDelimited(data, delim)
	default:
		return nil, fmt.Errorf("неподдерживаемый формат файла: %s", filepath.Ext(path))
	}
}

func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("в книге %s нет листов", path)
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("лист %s: %w", sheet, err)
	}
	return rows, nil
}

// ParseDelimited разбирает CSV/TSV. BOM отбрасывается; если байты не являются
// корректным UTF-8, текст декодируется как GBK.
func ParseDelimited(data []byte, delim rune) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		r = transform.NewReader(r, simplifiedchinese.GBK.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("разбор таблицы: %w", err)
	}
	return rows, nil
}

// LoadWorkspace читает файл, нормализует таблицу и строит Workspace.
func LoadWorkspace(path string, opts ImportOptions) (*Workspace, error) {
	log.Printf("📥 Импорт данных: %s", path)
	raw, err := ReadTable(path, opts)
	if err != nil {
		log.Printf("❌ Ошибка чтения файла: %v", err)
		return nil, err
	}
	table, err := NormalizeTable(raw, opts.HeaderRow)
	if err != nil {
		log.Printf("❌ Ошибка нормализации: %v", err)
		return nil, err
	}
	ws, err := NewWorkspace(table)
	if err != nil {
		log.Printf("❌ Ошибка построения записей: %v", err)
		return nil, err
	}
	log.Printf("✅ Загружено %d записей, %d полей", len(ws.Records), len(ws.Fields))
	return ws, nil
}

// -----------------------------
// Экспорт
// -----------------------------

// exportHeader: исходные поля, 🧮 вычисляемые поля и 📝 колонка со скриптом.
func exportHeader(ws *Workspace, ev *Evaluator) []string {
	h := append([]string(nil), ws.Fields...)
	for _, cf := range ws.CalcFields {
		h = append(h, "🧮 "+cf.Name)
	}
	return append(h, "📝 "+ev.Messages().ScriptColumn)
}

func exportRow(ws *Workspace, ev *Evaluator, rec Record) []interface{} {
	row := make([]interface{}, 0, len(ws.Fields)+len(ws.CalcFields)+1)
	for _, f := range ws.Fields {
		row = append(row, cellValue(rec[f]))
	}
	for _, cf := range ws.CalcFields {
		row = append(row, cellValue(rec[cf.Name]))
	}
	return append(row, ws.RenderFor(ev, rec))
}

// cellValue нормализует значение перед записью в ячейку.
func cellValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case nil:
		return ""
	case string, float64, int, int64:
		return vv
	default:
		return toString(vv)
	}
}

// ExportWorkbook пишет xlsx: по строке на запись плюс строка заголовка.
func ExportWorkbook(path string, ws *Workspace, ev *Evaluator) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetList()[0]

	header := exportHeader(ws, ev)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}
	for i, rec := range ws.Records {
		addr, _ := excelize.CoordinatesToCellName(1, i+2)
		row := exportRow(ws, ev, rec)
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return err
		}
	}
	scriptCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetColWidth(sheet, scriptCol, scriptCol, 80); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// ExportCSV пишет те же колонки в CSV с BOM, чтобы Excel понял UTF-8.
func ExportCSV(w io.Writer, ws *Workspace, ev *Evaluator) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader(ws, ev)); err != nil {
		return err
	}
	for _, rec := range ws.Records {
		row := exportRow(ws, ev, rec)
		strs := make([]string, len(row))
		for i, c := range row {
			strs[i] = toString(c)
		}
		if err := cw.Write(strs); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportText пишет скрипты подряд с заголовком клиента.
func ExportText(w io.Writer, ws *Workspace, ev *Evaluator) error {
	label := ev.Messages().CustomerLabel
	for i, rec := range ws.Records {
		if _, err := fmt.Fprintf(w, "=== %s %d: %s ===\n%s\n\n", label, i+1, ws.DisplayName(ev, rec), ws.RenderFor(ev, rec)); err != nil {
			return err
		}
	}
	return nil
}

// ExportFile выбирает формат по расширению (или явному format) и пишет файл.
func ExportFile(path, format string, ws *Workspace, ev *Evaluator) error {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	log.Printf("📤 Экспорт %d записей в %s (%s)", len(ws.Records), path, format)
	startTime := time.Now()

	var err error
	switch format {
	case "xlsx":
		err = ExportWorkbook(path, ws, ev)
	case "csv", "txt", "text":
		var out *os.File
		out, err = os.Create(path)
		if err != nil {
			break
		}
		if format == "csv" {
			err = ExportCSV(out, ws, ev)
		} else {
			err = ExportText(out, ws, ev)
		}
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	default:
		err = fmt.Errorf("неизвестный формат экспорта: %s", format)
	}
	if err != nil {
		log.Printf("❌ Ошибка экспорта: %v", err)
		return err
	}
	log.Printf("✅ Экспорт завершён за %v", time.Since(startTime))
	return nil
}

// WriteScriptsWithTemplate рендерит записи в xlsx-шаблон со строками [[поле]]
// и сохраняет результат.
func WriteScriptsWithTemplate(templatePath, destPath string, ws *Workspace, ev *Evaluator) error {
	log.Printf("📊 Начинаем запись скриптов в Excel...")
	log.Printf("📁 Шаблон: %s", templatePath)
	log.Printf("📄 Выходной файл: %s", destPath)
	log.Printf("📝 Количество записей: %d", len(ws.Records))

	startTime := time.Now()

	log.Printf("🔄 Загрузка Excel шаблона...")
	tmpl, err := LoadWorkbookTemplate(templatePath)
	if err != nil {
		log.Printf("❌ Ошибка загрузки шаблона: %v", err)
		return err
	}
	defer tmpl.Close()
	log.Printf("✅ Шаблон загружен успешно")

	log.Printf("🔄 Рендеринг записей в шаблон...")
	if err := tmpl.Render(ws, ev); err != nil {
		log.Printf("❌ Ошибка рендеринга: %v", err)
		return err
	}
	log.Printf("✅ Рендеринг завершен")

	log.Printf("💾 Сохранение файла...")
	if err := tmpl.Save(destPath); err != nil {
		log.Printf("❌ Ошибка сохранения: %v", err)
		return err
	}

	log.Printf("✅ Excel файл создан за %v", time.Since(startTime))
	log.Printf("📄 Результат сохранен в: %s", destPath)
	return nil
}
