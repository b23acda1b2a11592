// Package ingest reads lead records from permit export files. Two formats
// are accepted: a JSON array of records and CSV with a header row. Ingestion
// is forgiving about optional columns but strict about file-level problems.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/permit-radar/internal/model"
)

// LoadFile reads lead records from path, dispatching on the file extension.
func LoadFile(path string) ([]model.LeadRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return ReadJSON(f)
	case ".csv":
		return ReadCSV(f)
	default:
		return nil, eris.Errorf("ingest: unsupported input format %q", ext)
	}
}

// ReadJSON decodes a JSON array of lead records. Records without an id are
// assigned a fresh UUID so downstream identity semantics hold.
func ReadJSON(r io.Reader) ([]model.LeadRecord, error) {
	var records []model.LeadRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, eris.Wrap(err, "ingest: decode json")
	}
	fillIDs(records)
	zap.L().Debug("ingest: read json records", zap.Int("count", len(records)))
	return records, nil
}

// ReadCSV decodes lead records from CSV with a header row. Column order is
// free; unknown columns are ignored, missing optional columns leave the
// corresponding fields zero. Rows with a malformed numeric or date cell are
// skipped with a warning rather than aborting the whole file.
func ReadCSV(r io.Reader) ([]model.LeadRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["address"]; !ok {
		return nil, eris.New("ingest: csv missing required address column")
	}

	var records []model.LeadRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read csv line %d", line)
		}
		rec, err := rowToRecord(cols, row)
		if err != nil {
			zap.L().Warn("ingest: skipping malformed csv row",
				zap.Int("line", line), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	fillIDs(records)
	zap.L().Debug("ingest: read csv records", zap.Int("count", len(records)))
	return records, nil
}

func rowToRecord(cols map[string]int, row []string) (model.LeadRecord, error) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := model.LeadRecord{
		ID:          cell("id"),
		DataSource:  cell("data_source"),
		Address:     cell("address"),
		City:        cell("city"),
		Applicant:   cell("applicant"),
		Description: cell("description"),
		PermitType:  cell("permit_type"),
		LandUse:     model.LandUse(strings.ToUpper(cell("land_use"))),
		AICategory:  cell("ai_category"),
	}
	if stage := cell("project_stage"); stage != "" {
		rec.ProjectStage = model.ProjectStage(strings.ToLower(stage))
	}

	var err error
	if v := cell("valuation"); v != "" {
		rec.Valuation, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return rec, eris.Wrap(err, "parse valuation")
		}
	}
	if v := cell("applied_date"); v != "" {
		rec.AppliedDate, err = parseDate(v)
		if err != nil {
			return rec, err
		}
	}
	if rec.Latitude, err = optFloat(cell("latitude")); err != nil {
		return rec, eris.Wrap(err, "parse latitude")
	}
	if rec.Longitude, err = optFloat(cell("longitude")); err != nil {
		return rec, eris.Wrap(err, "parse longitude")
	}
	if rec.AIConfidence, err = optFloat(cell("ai_confidence")); err != nil {
		return rec, eris.Wrap(err, "parse ai_confidence")
	}
	if rec.ContractorQualityScore, err = optFloat(cell("contractor_quality_score")); err != nil {
		return rec, eris.Wrap(err, "parse contractor_quality_score")
	}
	if rec.MLProbabilityScore, err = optFloat(cell("ml_probability_score")); err != nil {
		return rec, eris.Wrap(err, "parse ml_probability_score")
	}
	if v := cell("enrichment_verified"); v != "" {
		rec.EnrichmentVerified, err = strconv.ParseBool(v)
		if err != nil {
			return rec, eris.Wrap(err, "parse enrichment_verified")
		}
	}
	return rec, nil
}

func optFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "01/02/2006"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("parse applied_date %q", s)
}

func fillIDs(records []model.LeadRecord) {
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
	}
}
