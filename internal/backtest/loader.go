package backtest

// loader.go: lectura y escritura de series históricas.
//
// CSV con cabecera: timestamp,condition_id,question,yes_price,no_price,volume
// y opcionalmente liquidity, end_date, category, active y winner (yes|no). JSON: array de objetos
// con las mismas claves. Los token IDs se derivan como {condition_id}_yes/_no.

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{
	"timestamp", "condition_id", "question", "yes_price", "no_price", "volume",
	"liquidity", "end_date", "category", "active", "winner",
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// record es una fila de la serie tal como viene del fichero.
type record struct {
	Timestamp   string   `json:"timestamp"`
	ConditionID string   `json:"condition_id"`
	Question    string   `json:"question"`
	YesPrice    float64  `json:"yes_price"`
	NoPrice     *float64 `json:"no_price"`
	Volume      float64  `json:"volume"`
	Liquidity   float64  `json:"liquidity"`
	EndDate     string   `json:"end_date"`
	Category    string   `json:"category"`
	Active      *bool    `json:"active"`
	Winner      string   `json:"winner"`
}

// Load lee una serie desde path; el formato se decide por la extensión.
func Load(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("backtest.Load: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(f)
	case ".json":
		return LoadJSON(f)
	default:
		return nil, fmt.Errorf("backtest.Load: unsupported format %q", filepath.Ext(path))
	}
}

// LoadCSV lee una serie en CSV. Las columnas pueden venir en cualquier orden.
func LoadCSV(r io.Reader) ([]Point, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("backtest.LoadCSV: header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"timestamp", "condition_id", "yes_price"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("backtest.LoadCSV: missing column %q", req)
		}
	}
	get := func(row []string, name string) string {
		if i, ok := col[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var points []Point
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("backtest.LoadCSV: line %d: %w", line, err)
		}

		rec := record{
			Timestamp:   get(row, "timestamp"),
			ConditionID: get(row, "condition_id"),
			Question:    get(row, "question"),
			EndDate:     get(row, "end_date"),
			Category:    get(row, "category"),
			Winner:      get(row, "winner"),
		}
		if get(row, "yes_price") == "" {
			return nil, fmt.Errorf("backtest.LoadCSV: line %d: empty yes_price", line)
		}
		if rec.YesPrice, err = parseFloat(get(row, "yes_price")); err != nil {
			return nil, fmt.Errorf("backtest.LoadCSV: line %d: yes_price: %w", line, err)
		}
		if s := get(row, "no_price"); s != "" {
			v, err := parseFloat(s)
			if err != nil {
				return nil, fmt.Errorf("backtest.LoadCSV: line %d: no_price: %w", line, err)
			}
			rec.NoPrice = &v
		}
		if rec.Volume, err = parseFloat(get(row, "volume")); err != nil {
			return nil, fmt.Errorf("backtest.LoadCSV: line %d: volume: %w", line, err)
		}
		if rec.Liquidity, err = parseFloat(get(row, "liquidity")); err != nil {
			return nil, fmt.Errorf("backtest.LoadCSV: line %d: liquidity: %w", line, err)
		}
		if s := get(row, "active"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, fmt.Errorf("backtest.LoadCSV: line %d: active: %w", line, err)
			}
			rec.Active = &v
		}

		p, err := rec.point()
		if err != nil {
			return nil, fmt.Errorf("backtest.LoadCSV: line %d: %w", line, err)
		}
		points = append(points, p)
	}
	SortPoints(points)
	return points, nil
}

// LoadJSON lee una serie en JSON.
func LoadJSON(r io.Reader) ([]Point, error) {
	var recs []record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("backtest.LoadJSON: %w", err)
	}
	points := make([]Point, 0, len(recs))
	for i, rec := range recs {
		p, err := rec.point()
		if err != nil {
			return nil, fmt.Errorf("backtest.LoadJSON: record %d: %w", i, err)
		}
		points = append(points, p)
	}
	SortPoints(points)
	return points, nil
}

// WriteCSV escribe la serie en el formato que lee LoadCSV.
func WriteCSV(w io.Writer, points []Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("backtest.WriteCSV: %w", err)
	}
	for _, p := range points {
		m := p.Market
		winner := ""
		if m.Resolved() {
			winner = "no"
			if m.YesToken().Winner {
				winner = "yes"
			}
		}
		endDate := ""
		if !m.EndDate.IsZero() {
			endDate = m.EndDate.UTC().Format(time.RFC3339)
		}
		row := []string{
			p.Timestamp.UTC().Format(time.RFC3339),
			m.ConditionID,
			m.Question,
			strconv.FormatFloat(p.Price, 'f', 6, 64),
			strconv.FormatFloat(m.NoToken().Price, 'f', 6, 64),
			strconv.FormatFloat(m.Volume, 'f', 2, 64),
			strconv.FormatFloat(m.Liquidity, 'f', 2, 64),
			endDate,
			m.Category,
			strconv.FormatBool(m.Active),
			winner,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("backtest.WriteCSV: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("backtest.WriteCSV: %w", err)
	}
	return nil
}

func (r record) point() (Point, error) {
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return Point{}, err
	}
	no := 1 - r.YesPrice
	if r.NoPrice != nil {
		no = *r.NoPrice
	}

	m := binaryMarket(r.ConditionID, r.Question, r.Category, r.YesPrice, no)
	m.Volume = r.Volume
	m.Liquidity = r.Liquidity
	if strings.TrimSpace(r.EndDate) != "" {
		if m.EndDate, err = parseTimestamp(r.EndDate); err != nil {
			return Point{}, fmt.Errorf("end_date: %w", err)
		}
	}
	if r.Active != nil {
		m.Active = *r.Active
	}
	switch strings.ToLower(r.Winner) {
	case "":
	case "yes":
		resolve(&m, true)
	case "no":
		resolve(&m, false)
	default:
		return Point{}, fmt.Errorf("unknown winner %q", r.Winner)
	}

	p := Point{Timestamp: ts, Market: m, Price: m.YesToken().Price}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
