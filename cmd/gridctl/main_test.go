package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quartergrid/internal/core"
	"quartergrid/internal/workbook"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTemplateThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.xlsx")
	if _, err := run(t, "template", "--tables", "2", "--rows", "3", "--year", "2024", "-o", path); err != nil {
		t.Fatalf("template: %v", err)
	}
	st, _, err := workbook.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if st.Tables != 2 || st.Rows != 3 || st.CurrentYear != 2024 {
		t.Fatalf("unexpected state %+v", st)
	}

	out, err := run(t, "validate", "-i", path)
	if !errors.Is(err, errInvalid) {
		t.Fatalf("blank grid should be invalid, err=%v", err)
	}
	if !strings.Contains(out, "table-1\tempty_table\t") {
		t.Fatalf("expected table error in output:\n%s", out)
	}
}

func TestSubmitWritesAcceptedGrid(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.yaml")
	doc := `current_year: 2025
tables: 1
rows: 1
cells:
  - {table: 1, row: 1, column: jan, value: 1}
  - {table: 1, row: 1, column: feb, value: 2}
`
	if err := os.WriteFile(in, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.yaml")
	stdout, err := run(t, "submit", "-i", in, "-o", out)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.HasPrefix(stdout, core.MsgValid) {
		t.Fatalf("unexpected output %q", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "column: q1") {
		t.Fatalf("accepted document should carry computed columns:\n%s", data)
	}
}

func TestCompute(t *testing.T) {
	out, err := run(t, "compute", "1", "2", "3")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !strings.Contains(out, "q1\t2.33\n") || !strings.Contains(out, "q2\t0.33\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := run(t, "compute", "abc"); err == nil {
		t.Fatal("expected parse error")
	}
}
