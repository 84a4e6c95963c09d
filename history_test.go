package scripttemplar_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikitaxru/scripttemplar"
)

func TestHistory_AddNewestFirstAndCap(t *testing.T) {
	h := scripttemplar.NewHistory()
	for i := 0; i < scripttemplar.MaxHistoryItems+5; i++ {
		h.Add(fmt.Sprintf("客户%d", i), scripttemplar.Record{"i": i}, "[[i]]", fmt.Sprint(i))
	}
	require.Len(t, h.Items, scripttemplar.MaxHistoryItems)
	assert.Equal(t, "客户104", h.Items[0].Customer)
	assert.Equal(t, "客户5", h.Items[len(h.Items)-1].Customer)
	assert.NotEqual(t, h.Items[0].ID, h.Items[1].ID)
	assert.False(t, h.Items[0].Time.IsZero())
}

func TestHistory_CopiesCustomerData(t *testing.T) {
	h := scripttemplar.NewHistory()
	rec := scripttemplar.Record{"name": "Ann"}
	item := h.Add("Ann", rec, "t", "s")
	rec["name"] = "changed"
	assert.Equal(t, "Ann", item.CustomerData["name"])
}

func TestHistory_SearchFindDelete(t *testing.T) {
	h := scripttemplar.NewHistory()
	a := h.Add("Alice", nil, "Hello [[name]]", "Hello Alice")
	b := h.Add("张三", nil, "您好 [[姓名]]", "您好 张三，余额 10")
	h.Add("Bob", nil, "Bye [[name]]", "Bye Bob")

	assert.Len(t, h.Search(""), 3)
	assert.Equal(t, []scripttemplar.HistoryItem{a}, h.Search("alice"))
	assert.Equal(t, []scripttemplar.HistoryItem{b}, h.Search("余额"))
	assert.Len(t, h.Search("[[name]]"), 2, "template text is searched too")
	assert.Empty(t, h.Search("nobody"))

	got, ok := h.Find(b.ID)
	require.True(t, ok)
	assert.Equal(t, "张三", got.Customer)

	assert.True(t, h.Delete(b.ID))
	assert.False(t, h.Delete(b.ID))
	_, ok = h.Find(b.ID)
	assert.False(t, ok)
	assert.Len(t, h.Items, 2)

	h.Clear()
	assert.Empty(t, h.Items)
}

func TestHistory_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	h, err := scripttemplar.LoadHistory(path)
	require.NoError(t, err, "missing file is an empty history")
	assert.Empty(t, h.Items)

	item := h.Add("王五", scripttemplar.Record{"欠款": "1000", "剩余": 750.0}, "[[剩余]]", "750")
	require.NoError(t, h.Save(path))

	loaded, err := scripttemplar.LoadHistory(path)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	got := loaded.Items[0]
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, "王五", got.Customer)
	assert.Equal(t, "750", got.RenderedScript)
	assert.Equal(t, 750.0, got.CustomerData["剩余"])
	assert.True(t, item.Time.Equal(got.Time))

	// загруженный журнал продолжает работать
	loaded.Add("赵六", nil, "", "")
	assert.Equal(t, "赵六", loaded.Items[0].Customer)
}

func TestHistory_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err := scripttemplar.LoadHistory(bad)
	assert.Error(t, err)

	blank := filepath.Join(dir, "blank.json")
	require.NoError(t, os.WriteFile(blank, []byte("  \n"), 0o644))
	h, err := scripttemplar.LoadHistory(blank)
	require.NoError(t, err)
	assert.Empty(t, h.Items)
}
