// Package documents converts uploaded files into the plain text sent to the
// evaluator.
package documents

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
)

var (
	ErrDecode = errors.New("file could not be decoded")
	ErrEmpty  = errors.New("file is empty")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read returns the text content of an uploaded file. Spreadsheets are
// flattened sheet by sheet; text files are read as UTF-8 with a CP949
// fallback for .txt and .csv.
func Read(name string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(name, data)
	case ".txt", ".csv":
		if s, ok := decodeUTF8(data); ok {
			return s, nil
		}
		s, err := decodeCP949(data)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		return s, nil
	default:
		if s, ok := decodeUTF8(data); ok {
			return s, nil
		}
		return "", fmt.Errorf("%s: %w", name, ErrDecode)
	}
}

func decodeUTF8(data []byte) (string, bool) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

func decodeCP949(data []byte) (string, error) {
	out, err := korean.EUCKR.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", ErrDecode
	}
	return string(out), nil
}

func readWorkbook(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook %s: %w", name, err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q of %s: %w", sheet, name, err)
		}
		fmt.Fprintf(&b, "--- 시트: %s ---\n", sheet)
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
