package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/example/srsengine/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath          string // Path to the Excel or CSV file
	IDColumn          string // Column with the card id
	CategoryColumn    string // Column with the category
	SubCategoryColumn string // Column with the optional sub-category
	OrderColumn       string // Column with the order index
	TagsColumn        string // Column with comma-separated tags
	SheetName         string // Name of the sheet to import
	StartRow          int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		IDColumn:          "A",
		CategoryColumn:    "B",
		SubCategoryColumn: "C",
		OrderColumn:       "D",
		TagsColumn:        "E",
		SheetName:         "Sheet1",
		StartRow:          2, // skip header
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int      `json:"totalProcessed"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors"`
}

// cardRow is one catalog row before it becomes a models.Card
type cardRow struct {
	ID          string   `validate:"required,max=128,excludesall=/?#"`
	Category    string   `validate:"required,max=256"`
	SubCategory string   `validate:"max=256"`
	OrderIndex  int      `validate:"gte=0"`
	Tags        []string `validate:"dive,required,max=64"`
}

// Importer loads catalog files into a Store
type Importer struct {
	store    Store
	validate *validator.Validate
}

// NewImporter creates an importer writing into store
func NewImporter(store Store) *Importer {
	return &Importer{store: store, validate: validator.New()}
}

// Import reads config.FilePath (.xlsx or .csv) and upserts every valid row.
// Invalid rows are reported in ImportResult.Errors and do not stop the import.
func (im *Importer) Import(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	var (
		rows [][]string
		err  error
	)
	switch ext {
	case ".csv":
		rows, err = readCSV(config.FilePath)
	case ".xlsx", ".xlsm":
		rows, err = readExcel(config.FilePath, config.SheetName)
	default:
		return nil, fmt.Errorf("unsupported catalog file type %q", ext)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < config.StartRow {
			continue
		}
		if isBlank(row) {
			result.Skipped++
			continue
		}
		result.TotalProcessed++

		if err := im.processRow(ctx, row, config, result); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}
	return result, nil
}

func (im *Importer) processRow(ctx context.Context, row []string, config ImportConfig, result *ImportResult) error {
	parsed, err := parseRow(row, config)
	if err != nil {
		return err
	}
	if err := im.validate.Struct(parsed); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	card := &models.Card{
		ID:         parsed.ID,
		Category:   parsed.Category,
		OrderIndex: parsed.OrderIndex,
		Tags:       models.Tags(parsed.Tags),
	}
	if parsed.SubCategory != "" {
		sub := parsed.SubCategory
		card.SubCategory = &sub
	}

	created, err := im.store.Upsert(ctx, card)
	if err != nil {
		return fmt.Errorf("failed to save card: %w", err)
	}
	if created {
		result.Created++
	} else {
		result.Updated++
	}
	return nil
}

func parseRow(row []string, config ImportConfig) (cardRow, error) {
	cell := func(column string) string {
		if column == "" {
			return ""
		}
		if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
			return normalize(row[idx])
		}
		return ""
	}

	parsed := cardRow{
		ID:          cell(config.IDColumn),
		Category:    cell(config.CategoryColumn),
		SubCategory: cell(config.SubCategoryColumn),
		Tags:        parseTags(cell(config.TagsColumn)),
	}
	if order := cell(config.OrderColumn); order != "" {
		n, err := strconv.Atoi(order)
		if err != nil {
			return parsed, fmt.Errorf("invalid order index %q", order)
		}
		parsed.OrderIndex = n
	}
	return parsed, nil
}

// parseTags splits a comma-separated cell, dropping empties and duplicates.
func parseTags(s string) []string {
	tags := make([]string, 0)
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// normalize trims the cell and puts it in NFC so that visually equal
// categories group together.
func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// columnToIndex converts an Excel column letter to a 0-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		if column[i] < 'A' || column[i] > 'Z' {
			return -1
		}
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
