// Package excel converts uploaded spreadsheet exports into candidate
// ticket rows. Column mapping is heuristic: the feed's export format has
// shifted over time, so every field accepts several header spellings.
package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/ticket-dashboard/internal/domain"
)

const headerSearchRows = 5

// fieldColumns lists accepted header labels per candidate field, first
// match wins. Labels are compared lowercased and trimmed.
var fieldColumns = map[string][]string{
	"reportNumber": {"meldingsnummer", "meldingsnr", "melding", "nummer"},
	"ticketNumber": {"ticketnummer", "ticketnr", "ticket"},
	"reportDate":   {"melddatum", "aanmaakdatum", "gemeld op", "datum", "aangemaakt op"},
	"object":       {"object"},
	"problem":      {"probleem", "samenvatting", "issue", "fout"},
	"reporter":     {"melder", "aanvrager", "gemeld door", "klant", "gebruiker"},
	"supplier":     {"leverancier"},
	"description":  {"omschrijving", "beschrijving"},
	"status":       {"status", "staat"},
	"handler":      {"behandelaar", "toegewezen aan", "engineer", "technicus"},
	"priority":     {"prioriteit", "priority"},
}

var requiredFields = []string{"reportNumber", "reportDate", "problem", "handler"}

// Parser reads ticket rows from xlsx workbooks.
type Parser struct {
	maxRows int
}

// NewParser constructs a parser capped at maxRows data rows.
func NewParser(maxRows int) *Parser {
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &Parser{maxRows: maxRows}
}

// Parse reads the first worksheet and maps its rows to candidates.
func (p *Parser) Parse(r io.Reader) ([]domain.CandidateTicket, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook contains no worksheets")
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read worksheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("worksheet %s contains no data rows", sheets[0])
	}

	headerIdx, columns := findHeaderRow(rows)
	if columns == nil {
		return nil, fmt.Errorf("no usable header row found in the first %d rows", headerSearchRows)
	}
	if missing := missingRequiredColumns(columns); len(missing) > 0 {
		return nil, fmt.Errorf("required columns missing: %s", strings.Join(missing, ", "))
	}

	candidates := make([]domain.CandidateTicket, 0, len(rows)-headerIdx-1)
	for i := headerIdx + 1; i < len(rows); i++ {
		if len(candidates) >= p.maxRows {
			break
		}
		row := rows[i]
		if rowEmpty(row) {
			continue
		}
		candidates = append(candidates, mapRow(row, columns, i+1))
	}
	return candidates, nil
}

// findHeaderRow scans the leading rows for one that contains any known
// column label and returns its index plus the field-to-column mapping.
func findHeaderRow(rows [][]string) (int, map[string]int) {
	limit := headerSearchRows
	if len(rows) < limit {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		columns := mapHeader(rows[i])
		if len(columns) > 0 {
			return i, columns
		}
	}
	return 0, nil
}

func mapHeader(row []string) map[string]int {
	byLabel := make(map[string]int, len(row))
	for col, cell := range row {
		label := strings.ToLower(strings.TrimSpace(cell))
		if label == "" {
			continue
		}
		if _, seen := byLabel[label]; !seen {
			byLabel[label] = col
		}
	}

	columns := make(map[string]int)
	for field, labels := range fieldColumns {
		for _, label := range labels {
			if col, ok := byLabel[label]; ok {
				columns[field] = col
				break
			}
		}
	}
	return columns
}

func missingRequiredColumns(columns map[string]int) []string {
	var missing []string
	for _, field := range requiredFields {
		if _, ok := columns[field]; !ok {
			missing = append(missing, fieldColumns[field][0])
		}
	}
	return missing
}

func mapRow(row []string, columns map[string]int, rowNumber int) domain.CandidateTicket {
	cell := func(field string) string {
		col, ok := columns[field]
		if !ok || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	rawStatus := cell("status")
	cand := domain.CandidateTicket{
		ReportNumber: cell("reportNumber"),
		TicketNumber: cell("ticketNumber"),
		ReportDate:   domain.ParseReportDate(cell("reportDate")),
		Object:       cell("object"),
		Problem:      cell("problem"),
		Reporter:     cell("reporter"),
		Supplier:     cell("supplier"),
		Description:  cell("description"),
		Status:       domain.ParseStatus(rawStatus),
		RawStatus:    rawStatus,
		Handler:      cell("handler"),
		Priority:     domain.ParsePriority(cell("priority")),
		Row:          rowNumber,
	}
	if cand.ReportNumber == "" && cand.TicketNumber != "" {
		cand.ReportNumber = cand.TicketNumber
	}
	return cand
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
