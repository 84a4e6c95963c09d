package scripttemplar

import (
	"embed"
	"reflect"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Messages содержит все строки, которые видит пользователь: сентинелы, тексты
// ошибок и форматы строк трассы. Ядро само ничего не печатает, только
// подставляет их. Ключ сообщения в каталоге locales/ совпадает с именем поля.
type Messages struct {
	NoData          string
	CalcError       string
	UnknownCustomer string
	ScriptColumn    string
	CustomerLabel   string

	FormulaTooLong        string
	DisallowedChars       string
	DisallowedKeyword     string
	ExecutionError        string // %s: причина
	DivisionByZero        string
	InvalidExpression     string
	SyntaxError           string // %d: колонка
	UnsupportedExpression string
	NotANumber            string // %s: значение
	ArgumentCount         string // %s: функция

	FieldRequired    string
	FieldNameTooLong string
	FieldNameExists  string
	NoPreviewData    string

	StepOriginal     string
	StepSubstitute   string
	StepMissing      string
	StepSubstituted  string
	StepStart        string
	StepSimplify     string
	StepBracket      string
	StepAfterBracket string
	StepOperation    string
	StepFinal        string
	StepDone         string
	StepFallback     string
	StepResult       string
	StepError        string
}

//go:embed locales/*.yaml
var localeFiles embed.FS

var bundle = loadBundle()

// loadBundle собирает каталоги zh, ru и en. zh язык исходного продукта:
// ключ, которого нет в другом каталоге, берётся из него.
func loadBundle() *i18n.Bundle {
	b := i18n.NewBundle(language.Chinese)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	for _, lang := range []string{"zh", "ru", "en"} {
		if _, err := b.LoadMessageFileFS(localeFiles, "locales/active."+lang+".yaml"); err != nil {
			panic(err)
		}
	}
	return b
}

// localize заполняет Messages через Localizer, по ключу на каждое поле.
func localize(lang string) Messages {
	loc := i18n.NewLocalizer(bundle, lang)
	var m Messages
	v := reflect.ValueOf(&m).Elem()
	for i := 0; i < v.NumField(); i++ {
		id := v.Type().Field(i).Name
		// при ошибке Localize всё равно отдаёт перевод из zh, если он есть
		text, _ := loc.Localize(&i18n.LocalizeConfig{MessageID: id})
		v.Field(i).SetString(text)
	}
	return m
}

var (
	MessagesZH = localize("zh")
	MessagesRU = localize("ru")
	MessagesEN = localize("en")
)

// LookupMessages возвращает каталог по коду языка (zh, ru, en; регистр и
// региональный суффикс вроде zh-CN игнорируются).
func LookupMessages(lang string) (Messages, bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	switch lang {
	case "", "zh":
		return MessagesZH, true
	case "ru":
		return MessagesRU, true
	case "en":
		return MessagesEN, true
	default:
		return MessagesZH, false
	}
}
