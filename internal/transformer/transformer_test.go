package transformer

import (
	"errors"
	"reflect"
	"testing"

	"foodsecurity/internal/config"
	"foodsecurity/internal/parser/csv"
	"foodsecurity/internal/schema"
)

func table(source string, header []string, rows ...[]string) *csv.Table {
	t := &csv.Table{Source: source, Header: header}
	for i, r := range rows {
		t.Rows = append(t.Rows, csv.Row{Source: source, Line: i + 2, Cells: r})
	}
	return t
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cols := schema.ColumnNames()
	cfg, issues := config.Build(config.File{
		Columns: cols,
		Mappings: map[string]map[string]string{
			"states":   {"1": "AL", "6": "CA"},
			"sexes":    {"1": "Male", "2": "Female"},
			"security": {"1": "High", "2": "Marginal", "3": "Low"},
		},
		Years:        []config.Year{2019, 2020},
		FullToAbbrev: map[string]string{"Sex": "sexes"},
	})
	if err := config.IssuesError(issues); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cfg
}

func TestProject(t *testing.T) {
	t.Parallel()

	in := table("a.csv", []string{"PEAGE", "states", "year"}, []string{"34", "6", "2019"}, []string{"51", "1", "2020"})
	out, err := Project(in, []string{"year", "states"})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !reflect.DeepEqual(out.Header, []string{"year", "states"}) {
		t.Fatalf("header = %v", out.Header)
	}
	if !reflect.DeepEqual(out.Rows[1].Cells, []string{"2020", "1"}) || out.Rows[1].Line != 3 {
		t.Fatalf("row[1] = %+v", out.Rows[1])
	}
	// The input is left untouched.
	if len(in.Rows[0].Cells) != 3 {
		t.Fatalf("input mutated: %+v", in.Rows[0])
	}
}

func TestProject_MissingColumn(t *testing.T) {
	t.Parallel()

	in := table("dec20pub.csv", []string{"year"}, []string{"2020"})
	_, err := Project(in, []string{"year", "states"})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
}

func TestConcat_KeepsFileThenRowOrder(t *testing.T) {
	t.Parallel()

	h := []string{"year"}
	a := table("a.csv", h, []string{"1"}, []string{"2"})
	b := table("b.csv", h, []string{"3"})
	out, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	var got []string
	for _, r := range out.Rows {
		got = append(got, r.Source+":"+r.Cells[0])
	}
	if want := []string{"a.csv:1", "a.csv:2", "b.csv:3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}

	if _, err := Concat(a, table("c.csv", []string{"states"})); err == nil {
		t.Fatalf("expected header mismatch error")
	}
	if out, err := Concat(); err != nil || len(out.Rows) != 0 {
		t.Fatalf("Concat() = %+v, %v", out, err)
	}
}

func TestMapper_Map(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	h := []string{"year", "states", "sexes", "security", "inc"}
	in := table("dec19pub.csv", h,
		[]string{"2019", "6", "1", "1", "-1"},
		[]string{"2019.0", "1", "9", "", ""},
		[]string{"2020", "1", "x", "3", "5"},
	)

	recs, stats, err := NewMapper(cfg).Map(in)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(recs) != 3 || stats.Rows != 3 {
		t.Fatalf("len = %d rows = %d", len(recs), stats.Rows)
	}

	r0 := recs[0]
	if r0.Year != 2019 || r0.States != "CA" || *r0.Sexes != "Male" || *r0.Security != "High" {
		t.Fatalf("rec[0] = %+v", r0)
	}
	// Columns without a mapping keep the cell text.
	if r0.Inc == nil || *r0.Inc != "-1" {
		t.Fatalf("inc = %v, want -1", r0.Inc)
	}

	r1 := recs[1]
	if r1.Year != 2019 || r1.Sexes != nil || r1.Security != nil || r1.Inc != nil {
		t.Fatalf("rec[1] = %+v", r1)
	}
	if recs[2].Sexes != nil || *recs[2].Security != "Low" {
		t.Fatalf("rec[2] = %+v", recs[2])
	}

	if got := stats.Unmapped[schema.Sexes]; got != 2 {
		t.Fatalf("unmapped sexes = %d, want 2", got)
	}
	if stats.UnmappedTotal() != 2 {
		t.Fatalf("UnmappedTotal = %d", stats.UnmappedTotal())
	}
	if s := stats.String(); s != "sexes=2" {
		t.Fatalf("String() = %q", s)
	}
}

func TestMapper_Strict(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	in := table("dec21pub.csv", []string{"year", "states", "sexes"},
		[]string{"2019", "6", "1"},
		[]string{"2019", "6", "7"},
	)
	m := NewMapper(cfg)
	m.Strict = true
	_, _, err := m.Map(in)
	if !errors.Is(err, ErrUnmappedCode) {
		t.Fatalf("err = %v, want ErrUnmappedCode", err)
	}
	var re *RowError
	if !errors.As(err, &re) || re.Line != 3 || re.Column != schema.Sexes || re.Value != "7" {
		t.Fatalf("RowError = %+v", re)
	}
}

func TestMapper_RowFailures(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cases := []struct {
		name string
		row  []string
		want error
	}{
		{name: "year_not_int", row: []string{"20x9", "6"}, want: ErrInvalidYear},
		{name: "year_empty", row: []string{"", "6"}, want: ErrInvalidYear},
		{name: "state_unmapped", row: []string{"2019", "99"}, want: ErrMissingState},
		{name: "state_empty", row: []string{"2019", " "}, want: ErrMissingState},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := table("bad.csv", []string{"year", "states"}, tc.row)
			_, _, err := NewMapper(cfg).Map(in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMapper_RequiresYearAndStates(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	_, _, err := NewMapper(cfg).Map(table("a.csv", []string{"states"}, []string{"1"}))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
	_, _, err = NewMapper(cfg).Map(table("a.csv", []string{"year", "PEAGE"}))
	if err == nil {
		t.Fatalf("expected error for non-table column")
	}
}
