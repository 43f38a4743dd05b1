package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sugawarayuuta/sonnet"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-sim/internal/simulation"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format      ExportFormat
	TokenFilter string // case-insensitive token address
	OnlySuccess bool
	OutputDir   string
}

// QuoteExporter writes simulation results to disk.
type QuoteExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewQuoteExporter(logger *zap.Logger) *QuoteExporter {
	return &QuoteExporter{logger: logger, now: time.Now}
}

// Export writes the filtered results and returns the created file path.
func (qe *QuoteExporter) Export(results []simulation.Result, options ExportOptions) (string, error) {
	filtered := filterResults(results, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no quotes match the export criteria")
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].At.Before(filtered[j].At)
	})

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, qe.filename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = writeCSV(filtered, outputPath)
	case FormatJSON:
		err = qe.writeJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	qe.logger.Info("Quotes exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func filterResults(results []simulation.Result, options ExportOptions) []simulation.Result {
	var filtered []simulation.Result
	for _, r := range results {
		if options.TokenFilter != "" && !strings.EqualFold(r.Token, options.TokenFilter) {
			continue
		}
		if options.OnlySuccess && r.Err != nil {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func (qe *QuoteExporter) filename(options ExportOptions) string {
	prefix := "quotes_all"
	if options.TokenFilter != "" {
		token := strings.ToLower(options.TokenFilter)
		if len(token) > 10 {
			token = token[:10]
		}
		prefix = "quotes_" + token
	}
	return fmt.Sprintf("%s_%s.%s", prefix, qe.now().Format("20060102_150405"), options.Format)
}

// CSVHeaders returns the column names of the CSV export.
func CSVHeaders() []string {
	return []string{"time", "quote", "direction", "token", "iteration", "value", "attempts", "duration_ms", "error"}
}

func toCSV(r simulation.Result) []string {
	errText := ""
	if r.Err != nil {
		errText = r.Err.Error()
	}
	return []string{
		r.At.UTC().Format(time.RFC3339Nano),
		r.Name,
		string(r.Direction),
		r.Token,
		strconv.Itoa(r.Iteration),
		strconv.FormatInt(r.Value, 10),
		strconv.Itoa(r.Attempts),
		strconv.FormatFloat(float64(r.Duration.Microseconds())/1000, 'f', 3, 64),
		errText,
	}
}

func writeCSV(results []simulation.Result, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range results {
		if err := writer.Write(toCSV(r)); err != nil {
			return fmt.Errorf("failed to write quote: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

type jsonQuote struct {
	Time      time.Time `json:"time"`
	Quote     string    `json:"quote"`
	Direction string    `json:"direction"`
	Token     string    `json:"token"`
	Iteration int       `json:"iteration"`
	Value     int64     `json:"value"`
	Attempts  int       `json:"attempts"`
	Duration  float64   `json:"duration_ms"`
	Error     string    `json:"error,omitempty"`
}

func (qe *QuoteExporter) writeJSON(results []simulation.Result, outputPath string) error {
	quotes := make([]jsonQuote, 0, len(results))
	for _, r := range results {
		q := jsonQuote{
			Time:      r.At.UTC(),
			Quote:     r.Name,
			Direction: string(r.Direction),
			Token:     r.Token,
			Iteration: r.Iteration,
			Value:     r.Value,
			Attempts:  r.Attempts,
			Duration:  float64(r.Duration.Microseconds()) / 1000,
		}
		if r.Err != nil {
			q.Error = r.Err.Error()
		}
		quotes = append(quotes, q)
	}

	exportData := struct {
		ExportTime time.Time     `json:"export_time"`
		QuoteCount int           `json:"quote_count"`
		Summary    ExportSummary `json:"summary"`
		Quotes     []jsonQuote   `json:"quotes"`
	}{
		ExportTime: qe.now().UTC(),
		QuoteCount: len(quotes),
		Summary:    Summarize(results),
		Quotes:     quotes,
	}

	data, err := sonnet.Marshal(exportData)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}

// TokenSummary aggregates successful quotes of one token and direction.
type TokenSummary struct {
	Token     string `json:"token"`
	Direction string `json:"direction"`
	Count     int    `json:"count"`
	Min       int64  `json:"min"`
	Max       int64  `json:"max"`
	First     int64  `json:"first"`
	Last      int64  `json:"last"`
}

// ExportSummary contains summary statistics for exported quotes
type ExportSummary struct {
	TotalQuotes   int            `json:"total_quotes"`
	FailedQuotes  int            `json:"failed_quotes"`
	TotalAttempts int            `json:"total_attempts"`
	Tokens        []TokenSummary `json:"tokens"`
}

// Summarize computes per-token statistics in result order.
func Summarize(results []simulation.Result) ExportSummary {
	summary := ExportSummary{TotalQuotes: len(results)}
	index := make(map[string]*TokenSummary)
	var order []string

	for _, r := range results {
		summary.TotalAttempts += r.Attempts
		if r.Err != nil {
			summary.FailedQuotes++
			continue
		}
		key := strings.ToLower(r.Token) + "|" + string(r.Direction)
		ts, ok := index[key]
		if !ok {
			ts = &TokenSummary{Token: r.Token, Direction: string(r.Direction), Min: r.Value, Max: r.Value, First: r.Value}
			index[key] = ts
			order = append(order, key)
		}
		ts.Count++
		if r.Value < ts.Min {
			ts.Min = r.Value
		}
		if r.Value > ts.Max {
			ts.Max = r.Value
		}
		ts.Last = r.Value
	}

	for _, key := range order {
		summary.Tokens = append(summary.Tokens, *index[key])
	}
	return summary
}
