// Package parse converts raw source pages into validated draw records.
// Per-row and per-field problems are skipped and logged; only a missing
// results container empties the whole call.
package parse

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/lottosage/lottosage/internal/pkg/models"
)

// resultsTableID marks the history table on the bulk endpoint.
const resultsTableID = "tablelist"

// headerRows is the number of leading non-data rows in the bulk table.
const headerRows = 2

var dateRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)

// ParseBulk extracts every well-formed draw row from a bulk history table.
// A page without the results table yields an empty slice, not an error.
// Output is sorted by period descending.
func ParseBulk(content []byte, game models.GameType) ([]models.DrawRecord, error) {
	if !game.Valid() {
		return nil, fmt.Errorf("unsupported game type: %q", game)
	}
	rules := game.Rules()

	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := findElementByID(doc, "table", resultsTableID)
	if table == nil {
		slog.Warn("results table not found", "game", game)
		return []models.DrawRecord{}, nil
	}

	var records []models.DrawRecord
	rows := collectElements(table, "tr")
	for i, row := range rows {
		if i < headerRows {
			continue
		}
		cells := cellTexts(row)
		rec, ok := parseBulkRow(cells, game, rules)
		if ok {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].PeriodValue() > records[j].PeriodValue()
	})
	return records, nil
}

// parseBulkRow builds one record from a table row's cell texts. Summary
// rows, short rows and rows failing validation are all rejected whole.
func parseBulkRow(cells []string, game models.GameType, rules models.GameRules) (models.DrawRecord, bool) {
	ballCells := rules.PrimaryCount + rules.SecondaryCount
	// period + balls + at least sale and date trailer cells
	if len(cells) < ballCells+3 {
		return models.DrawRecord{}, false
	}

	period := cells[0]
	if !isDigits(period) {
		// summary/footer row
		return models.DrawRecord{}, false
	}

	primaries, ok := parseBallCells(cells[1 : 1+rules.PrimaryCount])
	if !ok {
		slog.Warn("skipping row with short primary list", "game", game, "period", period)
		return models.DrawRecord{}, false
	}
	secondaries, ok := parseBallCells(cells[1+rules.PrimaryCount : 1+ballCells])
	if !ok {
		slog.Warn("skipping row with short secondary list", "game", game, "period", period)
		return models.DrawRecord{}, false
	}

	var sale int64
	saleText := strings.ReplaceAll(cells[len(cells)-3], ",", "")
	if isDigits(saleText) {
		sale, _ = strconv.ParseInt(saleText, 10, 64)
	}

	date := ""
	if m := dateRe.FindString(cells[len(cells)-1]); m != "" {
		date = m
	}

	rec, err := models.NewDrawRecord(game, period, date, primaries, secondaries, sale, 0)
	if err != nil {
		slog.Warn("skipping invalid row", "game", game, "period", period, "error", err)
		return models.DrawRecord{}, false
	}
	return rec, true
}

// parseBallCells converts a run of cells to ints, failing if any cell is
// not a plain number. A short list must never become a record.
func parseBallCells(cells []string) ([]int, bool) {
	balls := make([]int, 0, len(cells))
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if !isDigits(c) {
			return nil, false
		}
		n, err := strconv.Atoi(c)
		if err != nil {
			return nil, false
		}
		balls = append(balls, n)
	}
	return balls, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// --- HTML walking helpers ---

func findElementByID(n *html.Node, tag, id string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElementByID(c, tag, id); found != nil {
			return found
		}
	}
	return nil
}

func collectElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag {
			out = append(out, node)
			// nested tables are not expected; still descend for tbody wrapping
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func cellTexts(row *html.Node) []string {
	cells := collectElements(row, "td")
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(nodeText(c))
	}
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
