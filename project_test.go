package scripttemplar_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikitaxru/scripttemplar"
)

const sampleProject = `
template: "[[姓名]]您好，应付 [[总额]] 元"
name_column: 姓名
locale: ru
calc_fields:
  - name: 总额
    formula: "[[单价]] * [[数量]]"
import:
  sheet: 数据
  header_row: 2
history: history.json
`

func TestLoadProjectReader(t *testing.T) {
	p, err := scripttemplar.LoadProjectReader(strings.NewReader(sampleProject))
	require.NoError(t, err)
	assert.Equal(t, "[[姓名]]您好，应付 [[总额]] 元", p.Template)
	assert.Equal(t, "姓名", p.NameColumn)
	assert.Equal(t, []scripttemplar.CalcField{{Name: "总额", Formula: "[[单价]] * [[数量]]"}}, p.CalcFields)
	assert.Equal(t, scripttemplar.ImportOptions{Sheet: "数据", HeaderRow: 2}, p.ImportOptions())
	assert.Equal(t, "history.json", p.HistoryPath(), "reader has no base directory")
	assert.Equal(t, scripttemplar.MessagesRU.NoData, p.Evaluator().Messages().NoData)
}

func TestLoadProjectReader_Strict(t *testing.T) {
	_, err := scripttemplar.LoadProjectReader(strings.NewReader("template: x\ntemplte: y\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = scripttemplar.LoadProjectReader(strings.NewReader("calc_fields:\n  - name: a\n"))
	assert.Error(t, err, "calc field without formula")

	_, err = scripttemplar.LoadProjectReader(strings.NewReader("import:\n  header_row: -1\n"))
	assert.Error(t, err)

	p, err := scripttemplar.LoadProjectReader(strings.NewReader(""))
	require.NoError(t, err, "empty project is valid")
	assert.Equal(t, "[暂无数据]", p.Evaluator().Messages().NoData)
}

func TestProject_SaveLoadAndHistoryPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	src := &scripttemplar.Project{
		Template:   "Hi [[name]]",
		Locale:     "en",
		CalcFields: []scripttemplar.CalcField{{Name: "double", Formula: "[[n]] * 2"}},
		History:    "scripts/history.json",
	}
	require.NoError(t, scripttemplar.SaveProject(path, src))

	p, err := scripttemplar.LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, src.Template, p.Template)
	assert.Equal(t, src.CalcFields, p.CalcFields)
	assert.Equal(t, filepath.Join(dir, "scripts", "history.json"), p.HistoryPath())

	_, err = scripttemplar.LoadProject(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestProject_Apply(t *testing.T) {
	p, err := scripttemplar.LoadProjectReader(strings.NewReader(sampleProject))
	require.NoError(t, err)
	ev := p.Evaluator()

	ws, err := scripttemplar.NewWorkspace([][]string{
		{"姓名", "单价", "数量"},
		{"张三", "2", "5"},
		{"李四", "abc", "1"},
	})
	require.NoError(t, err)

	failed, err := p.Apply(ws, ev)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Equal(t, "姓名", ws.NameColumn)
	assert.Equal(t, []string{"张三您好，应付 10 元", "李四您好，应付 ошибка вычисления 元"}, ws.RenderAll(ev))

	// поле с именем исходной колонки не проходит проверку
	clash := &scripttemplar.Project{CalcFields: []scripttemplar.CalcField{{Name: "单价", Formula: "1"}}}
	_, err = clash.Apply(ws, ev)
	assert.Error(t, err)
}

func TestProject_LoadWorkspaceFromFiles(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(data, []byte("报表\nname,n\nAnn,21\n"), 0o644))
	proj := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(proj, []byte("template: \"[[name]]=[[double]]\"\nimport:\n  header_row: 2\ncalc_fields:\n  - name: double\n    formula: \"[[n]] * 2\"\n"), 0o644))

	p, err := scripttemplar.LoadProject(proj)
	require.NoError(t, err)
	ev := p.Evaluator()
	ws, err := scripttemplar.LoadWorkspace(data, p.ImportOptions())
	require.NoError(t, err)
	_, err = p.Apply(ws, ev)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann=42"}, ws.RenderAll(ev))
}
