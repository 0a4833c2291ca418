package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

// Format описывает поддерживаемый формат выгрузки.
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
	FormatTXT
)

// FilePrefix задаёт общий префикс имени выгружаемого файла.
const FilePrefix = "reporte_fidelizacion_clientes"

// Table содержит строки отчёта вместе с набором выводимых колонок.
type Table struct {
	Columns []Column
	Rows    []Row
}

type encoder struct {
	ext         string
	contentType string
	write       func(w io.Writer, t Table) error
}

var encoders = map[Format]encoder{
	FormatCSV: {
		ext:         "csv",
		contentType: "text/csv; charset=utf-8",
		write:       writeCSV,
	},
	FormatXLSX: {
		ext:         "xlsx",
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		write:       writeXLSX,
	},
	FormatTXT: {
		ext:         "txt",
		contentType: "text/plain; charset=utf-8",
		write:       writeTXT,
	},
}

var formatTokens = map[string]Format{
	"csv":  FormatCSV,
	"xlsx": FormatXLSX,
	"txt":  FormatTXT,
}

// ParseFormat сопоставляет токен формата варианту. Неизвестный или пустой
// токен даёт FormatCSV.
func ParseFormat(token string) Format {
	if f, ok := formatTokens[strings.ToLower(strings.TrimSpace(token))]; ok {
		return f
	}
	return FormatCSV
}

// String возвращает токен формата.
func (f Format) String() string {
	return f.encoder().ext
}

func (f Format) encoder() encoder {
	if enc, ok := encoders[f]; ok {
		return enc
	}
	return encoders[FormatCSV]
}

// File содержит закодированный в памяти отчёт, готовый к отдаче клиенту.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// ContentDisposition возвращает значение одноимённого заголовка для скачивания.
func (f *File) ContentDisposition() string {
	return fmt.Sprintf("attachment; filename=%s", f.Name)
}

// FileName возвращает имя файла отчёта для формата и даты генерации.
func FileName(f Format, generatedAt time.Time) string {
	return fmt.Sprintf("%s_%s.%s", FilePrefix, generatedAt.Format("20060102"), f.encoder().ext)
}

// Encode кодирует таблицу в указанный формат.
func Encode(f Format, t Table, generatedAt time.Time) (*File, error) {
	enc := f.encoder()

	var buf bytes.Buffer
	if err := enc.write(&buf, t); err != nil {
		return nil, fmt.Errorf("encode %s: %w", enc.ext, err)
	}

	return &File{
		Name:        FileName(f, generatedAt),
		ContentType: enc.contentType,
		Body:        buf.Bytes(),
	}, nil
}

func header(cols []Column) []string {
	res := make([]string, len(cols))
	for i, c := range cols {
		res[i] = string(c)
	}
	return res
}

func record(r Row, cols []Column, absent string) []string {
	res := make([]string, len(cols))
	for i, c := range cols {
		v, ok := r.Value(c)
		if !ok {
			v = absent
		}
		res[i] = v
	}
	return res
}
