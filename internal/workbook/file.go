package workbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quartergrid/internal/core"
)

var ErrUnsupportedFormat = errors.New("unsupported file format (want .xlsx, .yaml or .yml)")

type format int

const (
	formatXLSX format = iota + 1
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return formatXLSX, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ReadFile loads a grid from an .xlsx or .yaml file.
func ReadFile(path string) (core.State, core.Snapshot, error) {
	ft, err := formatOf(path)
	if err != nil {
		return core.State{}, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return core.State{}, nil, err
	}
	defer f.Close()

	if ft == formatXLSX {
		return ReadXLSX(f)
	}
	return ReadYAML(f)
}

// WriteFile saves g to an .xlsx or .yaml file. Derived columns go into
// YAML only when withDerived is set; workbooks always carry them.
func WriteFile(path string, g core.Grid, withDerived bool) error {
	ft, err := formatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if ft == formatXLSX {
		err = WriteXLSX(f, g)
	} else {
		err = WriteYAML(f, GridDocument(g, withDerived))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
