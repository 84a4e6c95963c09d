package scripttemplar

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxHistoryItems ограничивает число хранимых скриптов.
const MaxHistoryItems = 100

// HistoryItem описывает один сгенерированный скрипт.
type HistoryItem struct {
	ID             string    `json:"id"`
	Customer       string    `json:"customer"`
	CustomerData   Record    `json:"customerData"`
	Template       string    `json:"template"`
	RenderedScript string    `json:"generatedScript"`
	Time           time.Time `json:"timestamp"`
}

// History хранит журнал скриптов, новые в начале.
type History struct {
	Items []HistoryItem `json:"items"`
	now   func() time.Time
}

func NewHistory() *History { return &History{now: time.Now} }

// Add записывает скрипт в начало журнала и обрезает его до MaxHistoryItems.
func (h *History) Add(customer string, rec Record, template, script string) HistoryItem {
	now := time.Now
	if h.now != nil {
		now = h.now
	}
	data := make(Record, len(rec))
	for k, v := range rec {
		data[k] = v
	}
	item := HistoryItem{
		ID:             uuid.NewString(),
		Customer:       customer,
		CustomerData:   data,
		Template:       template,
		RenderedScript: script,
		Time:           now(),
	}
	h.Items = append([]HistoryItem{item}, h.Items...)
	if len(h.Items) > MaxHistoryItems {
		h.Items = h.Items[:MaxHistoryItems]
	}
	return item
}

// Search ищет подстроку без учёта регистра по клиенту, скрипту и шаблону.
// Пустой запрос возвращает весь журнал.
func (h *History) Search(query string) []HistoryItem {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return h.Items
	}
	var out []HistoryItem
	for _, it := range h.Items {
		if strings.Contains(strings.ToLower(it.Customer), q) ||
			strings.Contains(strings.ToLower(it.RenderedScript), q) ||
			strings.Contains(strings.ToLower(it.Template), q) {
			out = append(out, it)
		}
	}
	return out
}

func (h *History) Find(id string) (HistoryItem, bool) {
	for _, it := range h.Items {
		if it.ID == id {
			return it, true
		}
	}
	return HistoryItem{}, false
}

// Delete удаляет запись по id; false, если такой нет.
func (h *History) Delete(id string) bool {
	for i, it := range h.Items {
		if it.ID == id {
			h.Items = append(h.Items[:i], h.Items[i+1:]...)
			return true
		}
	}
	return false
}

func (h *History) Clear() { h.Items = nil }

// LoadHistory читает журнал из JSON. Отсутствующий файл даёт пустой журнал.
func LoadHistory(path string) (*History, error) {
	h := NewHistory()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return h, nil
	}
	if err := json.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("разбор истории %s: %w", path, err)
	}
	if len(h.Items) > MaxHistoryItems {
		h.Items = h.Items[:MaxHistoryItems]
	}
	return h, nil
}

// Save пишет журнал в JSON с отступами.
func (h *History) Save(path string) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
