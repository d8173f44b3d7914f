// Package csvio converts the record model to and from the CSV exchange
// format used for bulk backup and restore.
//
// The format is fixed: a mandatory header, one InitialBalance row, then
// one row per transaction. Every field is double-quoted and the file
// starts with a UTF-8 byte-order mark so spreadsheet tools detect the
// encoding.
package csvio

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"financas/internal/core"
	"financas/internal/store"
)

// FileName is the conventional name of the exchange file.
const FileName = "dados_financeiros.csv"

const bom = "\uFEFF"

const (
	typeInitialBalance = "InitialBalance"
	typeIncome         = "Income"
	typeExpense        = "Expense"
)

var header = []string{"Type", "Date", "Description", "Amount", "Category", "User"}

// ErrEmptyInput reports an import payload with no data rows.
var ErrEmptyInput = errors.New("csv input has no data rows")

// Dataset is the full exportable state of one workspace.
type Dataset struct {
	InitialBalance core.Money
	Incomes        []core.Transaction
	Expenses       []core.Transaction
}

// ImportResult counts the rows a parse accepted and skipped.
type ImportResult struct {
	Accepted int
	Skipped  int
}

// Export serializes the dataset. The InitialBalance row is dated with the
// export day; transactions follow, incomes first.
func Export(ds Dataset, now time.Time) []byte {
	var buf bytes.Buffer
	buf.WriteString(bom)
	writeRow(&buf, header)
	writeRow(&buf, []string{
		typeInitialBalance,
		now.Format("2006-01-02"),
		"",
		ds.InitialBalance.Decimal(),
		"",
		"",
	})
	for _, t := range ds.Incomes {
		writeRow(&buf, transactionRow(typeIncome, t))
	}
	for _, t := range ds.Expenses {
		writeRow(&buf, transactionRow(typeExpense, t))
	}
	return buf.Bytes()
}

func transactionRow(typ string, t core.Transaction) []string {
	return []string{typ, t.Date.ISO(), t.Description, t.Amount.Decimal(), t.Category, t.User}
}

// writeRow quotes every field, doubling internal quotes, and terminates
// the row with a newline.
func writeRow(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}

// Parse turns raw CSV text into a store batch. Parsing is partial
// tolerant: rows with the wrong field count, an unparseable amount or an
// unparseable date are skipped and counted, never fatal. Fewer than two
// non-empty lines (header plus at least one data row) is an error.
func Parse(data []byte) (store.Batch, ImportResult, error) {
	text := strings.TrimPrefix(string(data), bom)
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return store.Batch{}, ImportResult{}, ErrEmptyInput
	}

	columns := parseHeader(lines[0])
	var batch store.Batch
	var res ImportResult

	for _, line := range lines[1:] {
		fields, err := splitRow(line)
		if err != nil || len(fields) != len(columns) {
			slog.Warn("Skipping malformed CSV row", "row", line, "error", err)
			res.Skipped++
			continue
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			row[col] = fields[i]
		}

		amount, err := core.ParseSignedDecimalToCents(row["Amount"])
		if err != nil {
			slog.Warn("Skipping CSV row with invalid amount", "amount", row["Amount"])
			res.Skipped++
			continue
		}

		switch row["Type"] {
		case typeInitialBalance:
			bal := core.Money{Cents: amount}
			batch.InitialBalance = &bal
			res.Accepted++
		case typeIncome, typeExpense:
			if amount <= 0 {
				slog.Warn("Skipping transaction row with non-positive amount", "amount", row["Amount"])
				res.Skipped++
				continue
			}
			date, err := time.Parse("2006-01-02", strings.TrimSpace(row["Date"]))
			if err != nil {
				slog.Warn("Skipping CSV row with invalid date", "date", row["Date"])
				res.Skipped++
				continue
			}
			kind := core.Income
			if row["Type"] == typeExpense {
				kind = core.Expense
			}
			user := strings.TrimSpace(row["User"])
			if user == "" {
				user = core.UnknownUser
			}
			batch.Transactions = append(batch.Transactions, core.Transaction{
				Description: row["Description"],
				Amount:      core.Money{Cents: amount},
				Category:    row["Category"],
				User:        user,
				Date:        core.Date{Time: date},
				Kind:        kind,
			})
			res.Accepted++
		default:
			slog.Warn("Skipping CSV row with unknown type", "type", row["Type"])
			res.Skipped++
		}
	}
	return batch, res, nil
}

// Import parses the payload and commits every accepted row as one atomic
// batch: either all rows are persisted or none are.
func Import(ctx context.Context, data []byte, committer store.BatchCommitter) (ImportResult, error) {
	batch, res, err := Parse(data)
	if err != nil {
		return ImportResult{}, err
	}
	if err := committer.CommitBatch(ctx, batch); err != nil {
		return ImportResult{}, fmt.Errorf("commit import batch: %w", err)
	}
	slog.InfoContext(ctx, "CSV import committed",
		"accepted", res.Accepted,
		"skipped", res.Skipped)
	return res, nil
}

func parseHeader(line string) []string {
	fields, err := splitRow(line)
	if err != nil {
		// Fall back to a plain split; surrounding quotes are stripped below.
		fields = strings.Split(line, ",")
	}
	for i, f := range fields {
		fields[i] = strings.Trim(strings.TrimSpace(f), `"`)
	}
	return fields
}

// splitRow tokenizes one line with the standard CSV reader so quoted
// fields may contain embedded commas.
func splitRow(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	return r.Read()
}
