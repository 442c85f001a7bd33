// Package report renders staged tables to the final sanitized outputs: one
// xlsx workbook with a sheet per table, plus per-table CSV files.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"

	"coursemetrics/lib/pagestore"
	"coursemetrics/services/staging"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/report")

const (
	WorkbookName = "udemy_consolidated_report.xlsx"
	maxCellLen   = 32000
	maxSheetName = 31
)

// characters excel refuses inside cell values
var illegalChars = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")

// sheetNames maps staged table names to the report's Portuguese sheet and
// file names.
var sheetNames = map[string]string{
	"stg_students":        "Alunos",
	"stg_courses":         "Cursos",
	"stg_course_progress": "Progresso_Cursos",
	"stg_activity_items":  "Atividades_Detalhadas",
	"stg_languages":       "Idiomas_Detalhes",
	"stg_levels":          "Niveis_Dificuldade",
	"stg_categories":      "Categorias",
	"stg_sub_categories":  "Sub_Categorias",
	"stg_instructors":     "Instrutores",
}

// columnTitles translates staged column names for the final report; columns
// without an entry keep their staged name.
var columnTitles = map[string]string{
	"student_hash":     "ID_Anonimizado_Aluno",
	"full_name_masked": "Nome_Camuflado",
	"course_id":        "ID_Curso",
	"title":            "Titulo_Original",
	"duracao_horas":    "Carga_Horaria",
	"completion_ratio": "Percentual_Conclusao",
}

type Publisher struct {
	outDir string
}

func NewPublisher(outDir string) Publisher {
	return Publisher{outDir: outDir}
}

// Publish renders the workbook and the CSV exports, in staging.TableOrder.
func (p Publisher) Publish(ctx context.Context, tables *staging.Tables) error {
	ctx, span := tracer.Start(ctx, "publish")
	defer span.End()

	if err := p.writeWorkbook(tables); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := p.writeCSV(tables); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	slog.InfoContext(ctx, "report published", "dir", p.outDir)
	return nil
}

func (p Publisher) writeWorkbook(tables *staging.Tables) error {
	f := excelize.NewFile()
	defer f.Close()

	for _, def := range staging.TableOrder {
		sheet := sheetName(def.Name)
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}

		header := make([]any, len(def.Columns))
		for i, col := range def.Columns {
			header[i] = translateColumn(col)
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}

		for i, row := range tables.Cells(def.Name) {
			cells := make([]any, len(row))
			for j, v := range row {
				cells[j] = sanitizeValue(v)
			}
			addr, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, addr, &cells); err != nil {
				return err
			}
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return err
	}
	return pagestore.WriteAtomic(filepath.Join(p.outDir, WorkbookName), buf.Bytes())
}

func (p Publisher) writeCSV(tables *staging.Tables) error {
	for _, def := range staging.TableOrder {
		var buf bytes.Buffer
		// BOM so spreadsheet tools detect utf-8
		buf.WriteString("\xef\xbb\xbf")

		w := csv.NewWriter(&buf)
		header := make([]string, len(def.Columns))
		for i, col := range def.Columns {
			header[i] = translateColumn(col)
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, row := range tables.Cells(def.Name) {
			record := make([]string, len(row))
			for i, v := range row {
				record[i] = formatValue(v)
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}

		path := filepath.Join(p.outDir, "csv", sheetName(def.Name)+".csv")
		if err := pagestore.WriteAtomic(path, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// Summary renders a row-count overview of the staged tables for the
// terminal.
func Summary(tables *staging.Tables) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Table", "Sheet", "Rows"})
	for _, def := range staging.TableOrder {
		tw.AppendRow(table.Row{def.Name, sheetName(def.Name), len(tables.Cells(def.Name))})
	}
	return tw.Render()
}

func sheetName(tableName string) string {
	name, ok := sheetNames[tableName]
	if !ok {
		name = tableName
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

func translateColumn(col string) string {
	if t, ok := columnTitles[col]; ok {
		return t
	}
	return col
}

func sanitizeString(s string) string {
	s = illegalChars.ReplaceAllString(s, "")
	if len(s) > maxCellLen {
		s = s[:maxCellLen]
	}
	return s
}

func sanitizeValue(v any) any {
	if s, ok := v.(string); ok {
		return sanitizeString(s)
	}
	return v
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return sanitizeString(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
