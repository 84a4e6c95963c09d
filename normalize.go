package scripttemplar

import (
	"fmt"
	"strings"
)

// NormalizeTable приводит сырую таблицу к виду «заголовок + данные»:
// - берёт строку заголовка headerRow (1-based, 0 значит первая строка), всё выше отбрасывает
// - обрезает пробелы в ячейках и удаляет полностью пустые строки
// - дополняет короткие строки пустыми ячейками и обрезает длинные по ширине заголовка
func NormalizeTable(rows [][]string, headerRow int) ([][]string, error) {
	if headerRow <= 0 {
		headerRow = 1
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	if headerRow > len(rows) {
		return nil, fmt.Errorf("строка заголовка %d вне диапазона (всего строк %d)", headerRow, len(rows))
	}
	header := trimRow(rows[headerRow-1])
	// хвостовые пустые колонки заголовка не считаем полями
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, ErrNoHeader
	}
	out := [][]string{header}
	for _, row := range rows[headerRow:] {
		row = trimRow(row)
		if isBlankRow(row) {
			continue
		}
		out = append(out, fitRow(row, len(header)))
	}
	return out, nil
}

func trimRow(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

func fitRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	if len(row) > width {
		return row[:width]
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}
