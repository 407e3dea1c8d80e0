package screens

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Row is one rendered table row.
type Row struct {
	ID         string
	Cells      []string
	DeleteHref string
}

// Stat is one summary figure above the table.
type Stat struct {
	Label string
	Value string
}

// listEnvelope covers the paginated shapes the backend answers with. A bare array is
// handled separately.
type listEnvelope struct {
	Data    []map[string]any `json:"data"`
	Items   []map[string]any `json:"items"`
	Results []map[string]any `json:"results"`
	Total   *int             `json:"total"`
	Count   *int             `json:"count"`
	Meta    struct {
		Total *int `json:"total"`
	} `json:"meta"`
}

// decodeList accepts either a JSON array of records or an object carrying the
// records under data, items or results. total falls back to the number of records.
func decodeList(raw []byte) (records []map[string]any, total int, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, 0, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if raw[0] == '[' {
		if err := dec.Decode(&records); err != nil {
			return nil, 0, fmt.Errorf("screens: decode list: %w", err)
		}
		return records, len(records), nil
	}
	var env listEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, 0, fmt.Errorf("screens: decode list: %w", err)
	}
	switch {
	case env.Data != nil:
		records = env.Data
	case env.Items != nil:
		records = env.Items
	default:
		records = env.Results
	}
	total = len(records)
	for _, t := range []*int{env.Total, env.Count, env.Meta.Total} {
		if t != nil {
			total = *t
			break
		}
	}
	return records, total, nil
}

func buildRows(res Resource, records []map[string]any) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := Row{ID: formatValue(rec["id"])}
		if row.ID != "" {
			row.DeleteHref = res.Path() + "/" + url.PathEscape(row.ID) + "/delete"
		}
		for _, col := range res.Columns {
			row.Cells = append(row.Cells, cell(formatValue(lookup(rec, col.Key))))
		}
		rows = append(rows, row)
	}
	return rows
}

// lookup follows a dotted key through nested objects.
func lookup(rec map[string]any, key string) any {
	var cur any = rec
	for _, part := range strings.Split(key, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[part]
	}
	return cur
}

const emptyCell = "—"

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			return t.Format("02 Jan 2006 15:04")
		}
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case map[string]any:
		for _, k := range []string{"name", "title", "label", "code"} {
			if s := formatValue(x[k]); s != "" {
				return s
			}
		}
		return ""
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := formatValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}

func cell(s string) string {
	if s == "" {
		return emptyCell
	}
	return s
}

// decodeStats turns {"low_stock": 3, ...} into labelled figures ordered by key.
func decodeStats(raw []byte) ([]Stat, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("screens: decode stats: %w", err)
	}
	if nested, ok := doc["data"].(map[string]any); ok {
		doc = nested
	}
	keys := make([]string, 0, len(doc))
	for k, v := range doc {
		switch v.(type) {
		case json.Number, string:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	caser := cases.Title(language.English)
	stats := make([]Stat, 0, len(keys))
	for _, k := range keys {
		stats = append(stats, Stat{Label: caser.String(strings.ReplaceAll(k, "_", " ")), Value: formatValue(doc[k])})
	}
	return stats, nil
}
