// Copyright 2025 The braingate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package localtool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// maxCellsPerSheet limits spreadsheet extraction to avoid huge outputs.
const maxCellsPerSheet = 1000

// extractDocument returns text content for document formats read_file
// understands natively. ok is false when the extension is not a document
// format and the file should be read as plain text.
func extractDocument(ctx context.Context, path string) (content string, ok bool, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		content, err = extractPDF(ctx, path)
		return content, true, err
	case ".docx":
		content, err = extractWord(path)
		return content, true, err
	case ".xlsx":
		content, err = extractExcel(ctx, path)
		return content, true, err
	default:
		return "", false, nil
	}
}

func extractPDF(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	var contentParts []string
	totalPages := reader.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			contentParts = append(contentParts, fmt.Sprintf("--- Page %d (extraction failed: %v) ---", pageNum, err))
			continue
		}

		if strings.TrimSpace(text) != "" {
			contentParts = append(contentParts, fmt.Sprintf("--- Page %d ---\n%s", pageNum, text))
		}
	}

	return strings.Join(contentParts, "\n\n"), nil
}

func extractWord(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse Word document: %w", err)
	}
	defer doc.Close()

	return doc.Editable().GetContent(), nil
}

func extractExcel(ctx context.Context, path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse Excel document: %w", err)
	}
	defer f.Close()

	var contentParts []string

	for _, sheetName := range f.GetSheetList() {
		select {
		case <-ctx.Done():
			return strings.Join(contentParts, "\n\n"), ctx.Err()
		default:
		}

		if text := strings.TrimSpace(extractSheet(f, sheetName)); text != "" {
			contentParts = append(contentParts, text)
		}
	}

	return strings.Join(contentParts, "\n\n"), nil
}

// extractSheet renders one sheet as cell-reference lines. Read failures
// are reported inline so they survive into the extracted text.
func extractSheet(f *excelize.File, sheetName string) string {
	var sheetText strings.Builder
	sheetText.WriteString(fmt.Sprintf("--- Sheet: %s ---\n", sheetName))

	rows, err := f.GetRows(sheetName)
	if err != nil {
		sheetText.WriteString(fmt.Sprintf("Error reading sheet: %v\n", err))
		return sheetText.String()
	}

	cellCount := 0
	for rowIndex, row := range rows {
		if cellCount >= maxCellsPerSheet {
			sheetText.WriteString("... (truncated)\n")
			break
		}
		for colIndex, cell := range row {
			if cellCount >= maxCellsPerSheet {
				break
			}
			if text := strings.TrimSpace(cell); text != "" {
				cellRef := fmt.Sprintf("%s%d", columnLetter(colIndex), rowIndex+1)
				sheetText.WriteString(fmt.Sprintf("%s: %s\n", cellRef, text))
				cellCount++
			}
		}
	}

	return sheetText.String()
}

// columnLetter converts a 0-based column index to an Excel column letter
// (A, B, ..., Z, AA, AB, ...).
func columnLetter(index int) string {
	result := ""
	for {
		result = string(rune('A'+index%26)) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}
