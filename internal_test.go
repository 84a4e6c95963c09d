package scripttemplar

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestParseTokens_TextAndFields(t *testing.T) {
	toks := parseTokens("Hi [[ name ]]! [[x]]", 100)
	if len(toks) != 4 {
		t.Fatalf("tokens: %d (%+v)", len(toks), toks)
	}
	if toks[0].kind != tokenText || toks[0].text != "Hi " {
		t.Fatalf("tok0 => %+v", toks[0])
	}
	if toks[1].kind != tokenField || toks[1].raw != " name " || toks[1].name != "name" || toks[1].text != "[[ name ]]" {
		t.Fatalf("tok1 => %+v", toks[1])
	}
	if toks[2].text != "! " || toks[3].name != "x" {
		t.Fatalf("tail => %+v %+v", toks[2], toks[3])
	}

	// незакрытая ссылка и пустые скобки остаются текстом
	toks = parseTokens("[[a] [[]] [[b", 100)
	if len(toks) != 1 || toks[0].kind != tokenText {
		t.Fatalf("unterminated => %+v", toks)
	}
	if parseTokens("", 100) != nil {
		t.Fatalf("empty input must give no tokens")
	}
}

func TestParseTokens_Limit(t *testing.T) {
	toks := parseTokens("[[a]][[b]][[c]]", 2)
	if len(toks) != 3 || toks[2].kind != tokenText || toks[2].text != "[[c]]" {
		t.Fatalf("limit => %+v", toks)
	}
}

func TestTokenizeFlat_Signs(t *testing.T) {
	toks, err := tokenizeFlat("1-2/-4")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	want := []flatToken{{num: 1, src: "1"}, {op: '-', src: "-"}, {num: 2, src: "2"}, {op: '/', src: "/"}, {num: -4, src: "-4"}}
	if len(toks) != len(want) {
		t.Fatalf("tokens => %+v", toks)
	}
	for i := range want {
		if toks[i] != want[i] {
			t.Fatalf("tok %d => %+v, want %+v", i, toks[i], want[i])
		}
	}

	for _, bad := range []string{"", "1+", "*2", "1e-7", "1..2", "--1", "1 2", "."} {
		if _, err := tokenizeFlat(bad); !errors.Is(err, ErrInvalidExpression) {
			t.Fatalf("tokenize %q => %v", bad, err)
		}
	}
}

func TestStepper_PrecedenceAndBrackets(t *testing.T) {
	msg := MessagesEN
	cases := map[string]float64{
		"2+3*4":           14,
		"(2+3)*4":         20,
		"8/2/2":           2,
		"1-2/-4":          1.5,
		"((1+2)*(3+4))/7": 3,
		"-3*-3":           9,
		".5*4":            2,
	}
	for expr, want := range cases {
		st := &stepper{msg: &msg, trace: newTrace(50), maxBraces: 20}
		got, err := st.run(expr)
		if err != nil || got != want {
			t.Fatalf("run %q => %v, %v; want %v", expr, got, err, want)
		}
	}
}

func TestStepper_RejectsImplicitMultiplication(t *testing.T) {
	msg := MessagesEN
	for _, expr := range []string{"2(3)", "(2)3", "(1)(2)", "()", "1 2", "7 0.5", "2 (3)", "(1) 2"} {
		st := &stepper{msg: &msg, trace: newTrace(50), maxBraces: 20}
		if _, err := st.run(expr); err == nil {
			t.Fatalf("run %q must fail", expr)
		}
	}
}

func TestStepper_DivisionByZero(t *testing.T) {
	msg := MessagesEN
	st := &stepper{msg: &msg, trace: newTrace(50), maxBraces: 20}
	if _, err := st.run("1/(2-2)"); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("run => %v", err)
	}
}

func TestTrace_NilAndLimit(t *testing.T) {
	var nilTrace *Trace
	nilTrace.addf("ignored %d", 1)
	if nilTrace.Steps() != nil {
		t.Fatalf("nil trace must stay empty")
	}
	tr := newTrace(2)
	tr.add("a")
	tr.add("b")
	tr.add("c")
	if got := tr.Steps(); len(got) != 2 || got[1] != "b" {
		t.Fatalf("steps => %v", got)
	}
	pct := newTrace(1)
	pct.add("100% готово")
	if got := pct.Steps(); got[0] != "100% готово" {
		t.Fatalf("steps => %v", got)
	}
}

func TestNormalizeEquality(t *testing.T) {
	cases := map[string]string{
		`a === b`:          `a == b`,
		`a !== b`:          `a != b`,
		`a == b`:           `a == b`,
		`"===" === "x"`:    `"===" == "x"`,
		`'a\'!==' !== 'b'`: `'a\'!==' != 'b'`,
		`1 >= 2`:           `1 >= 2`,
	}
	for in, want := range cases {
		if got := normalizeEquality(in); got != want {
			t.Fatalf("normalize %q => %q, want %q", in, got, want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{52, "52"},
		{-3.5, "-3.5"},
		{0.1 + 0.2, "0.30000000000000004"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{123456789012, "123456789012"},
		{math.Inf(1), "Infinity"},
		{math.NaN(), "NaN"},
	}
	for _, c := range cases {
		if got := formatNumber(c.in); got != c.want {
			t.Fatalf("formatNumber(%v) => %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormulaValue_Coercion(t *testing.T) {
	cases := []struct {
		in   interface{}
		want Value
	}{
		{nil, Value{}},
		{"", Value{}},
		{"42", Number(42)},
		{" 3.5 ", Number(3.5)},
		{"-0.5", Number(-0.5)},
		{"1e3", Number(1000)},
		{"12abc", Text("12abc")},
		{"0x10", Text("0x10")},
		{"Infinity", Text("Infinity")},
		{"1,000", Text("1,000")},
		{7, Number(7)},
		{2.25, Number(2.25)},
		{true, Text("true")},
		{math.NaN(), Text("NaN")},
	}
	for _, c := range cases {
		if got := FormulaValue(c.in); got != c.want {
			t.Fatalf("FormulaValue(%#v) => %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestValueLiteral(t *testing.T) {
	if got := Text(`say "hi"`).literal(); got != `"say \"hi\""` {
		t.Fatalf("literal => %s", got)
	}
	if got := Number(-2).literal(); got != "-2" {
		t.Fatalf("literal => %s", got)
	}
	if got := (Value{}).literal(); got != `""` {
		t.Fatalf("literal => %s", got)
	}
	for in, want := range map[float64]string{
		9223372036854775807:  "9.223372036854776e+18",
		-1e19:                "-1e+19",
		12345678901234567890: "1.2345678901234567e+19",
		9007199254740993:     "9007199254740992",
	} {
		if got := Number(in).literal(); got != want {
			t.Fatalf("literal(%v) => %s, want %s", in, got, want)
		}
	}
}

func TestCheckFormula(t *testing.T) {
	cases := []struct {
		in   string
		want rejectReason
	}{
		{`1 + 2`, rejectNone},
		{`"张三" == "李四" ? 1 : 0`, rejectNone},
		{`a && b || !c`, rejectNone},
		{`1; 2`, rejectCharacters},
		{`"，"`, rejectCharacters},
		{`x.constructor`, rejectNone},
		{`setInterval(1)`, rejectKeyword},
		{`exported`, rejectKeyword},
		{`Eval(1)`, rejectNone},
		{`1.2345678901234567e+19 > 0`, rejectNone},
		{``, rejectCharacters},
	}
	for _, c := range cases {
		if got := checkFormula(c.in); got != c.want {
			t.Fatalf("checkFormula(%q) => %v, want %v", c.in, got, c.want)
		}
	}
}

func TestMessages_CatalogsComplete(t *testing.T) {
	for lang, m := range map[string]Messages{"zh": MessagesZH, "ru": MessagesRU, "en": MessagesEN} {
		v := reflect.ValueOf(m)
		for i := 0; i < v.NumField(); i++ {
			if v.Field(i).String() == "" {
				t.Fatalf("%s: %s is empty", lang, v.Type().Field(i).Name)
			}
		}
	}
	if MessagesRU.CalcError != "ошибка вычисления" || MessagesEN.NoData != "[no data]" {
		t.Fatalf("catalogs => %q %q", MessagesRU.CalcError, MessagesEN.NoData)
	}
	if got := localize("de"); got != MessagesZH {
		t.Fatalf("unknown language must fall back to zh, got %+v", got)
	}
}
