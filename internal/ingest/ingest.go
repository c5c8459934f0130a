// Package ingest reads raw event JSON, normalizes titles and cities,
// computes blocking keys, and writes records into the store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"dublette/internal/config"
	"dublette/internal/event"
	"dublette/internal/logging"
	"dublette/internal/store"
	"dublette/internal/textnorm"
)

// RawRecord is the wire format of one event entry in an input file. The
// normalized fields and blocking keys are computed here, never trusted from
// the file.
type RawRecord struct {
	ID               string            `json:"id"`
	SourceCode       string            `json:"source_code"`
	SourceType       string            `json:"source_type"`
	Title            string            `json:"title"`
	ShortDescription string            `json:"short_description"`
	Description      string            `json:"description"`
	Highlights       []string          `json:"highlights"`
	LocationName     string            `json:"location_name"`
	LocationCity     string            `json:"location_city"`
	LocationDistrict string            `json:"location_district"`
	LocationStreet   string            `json:"location_street"`
	LocationZipcode  string            `json:"location_zipcode"`
	GeoLatitude      *float64          `json:"geo_latitude"`
	GeoLongitude     *float64          `json:"geo_longitude"`
	GeoConfidence    *float64          `json:"geo_confidence"`
	Categories       []string          `json:"categories"`
	IsFamilyEvent    *bool             `json:"is_family_event"`
	IsChildFocused   *bool             `json:"is_child_focused"`
	AdmissionFree    *bool             `json:"admission_free"`
	Dates            []event.EventDate `json:"dates"`
}

// RecordError reports one rejected record. Rejections are reported, never
// retried.
type RecordError struct {
	Index int
	ID    string
	Err   string
}

// Result summarizes one ingested file.
type Result struct {
	FilePath   string
	SourceCode string
	Total      int
	Accepted   int
	Rejected   int
	Errors     []RecordError
}

// Ingestor normalizes and persists raw records.
type Ingestor struct {
	store    *store.Store
	norm     *textnorm.Normalizer
	stripper *textnorm.PrefixStripper
}

// New builds an ingestor from the configured normalization tables.
func New(cfg *config.Config, s *store.Store) (*Ingestor, error) {
	norm, err := textnorm.New(cfg.Text.Synonyms, cfg.Text.CityAliases)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	return &Ingestor{
		store:    s,
		norm:     norm,
		stripper: textnorm.NewPrefixStripper(cfg.Text.DashPrefixes, cfg.Text.ColonPrefixes),
	}, nil
}

// IngestFile parses one JSON file (an array of raw records), upserts the
// valid records, and appends a file_ingestions row. Invalid records are
// collected in the result; only file-level failures return an error.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryIngest, "IngestFile")
	defer timer.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", store.ErrInvalidInput, path, err)
	}
	var raws []RawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", store.ErrInvalidInput, path, err)
	}

	res := &Result{FilePath: path, Total: len(raws)}
	var records []event.Record
	for i, raw := range raws {
		if err := validate(&raw); err != nil {
			res.Rejected++
			res.Errors = append(res.Errors, RecordError{Index: i, ID: raw.ID, Err: err.Error()})
			logging.Ingest("rejected record %d (%s) in %s: %v", i, raw.ID, path, err)
			continue
		}
		records = append(records, in.build(&raw))
		if res.SourceCode == "" {
			res.SourceCode = raw.SourceCode
		}
	}
	res.Accepted = len(records)

	if len(records) > 0 {
		if err := in.store.UpsertEvents(ctx, records); err != nil {
			return nil, err
		}
	}
	if err := in.store.RecordIngestion(ctx, &store.Ingestion{
		FilePath:        path,
		SourceCode:      res.SourceCode,
		RecordsTotal:    res.Total,
		RecordsAccepted: res.Accepted,
		RecordsRejected: res.Rejected,
	}); err != nil {
		return nil, err
	}
	logging.Ingest("%s: %d records, %d accepted, %d rejected", path, res.Total, res.Accepted, res.Rejected)
	return res, nil
}

// Renormalize recomputes normalized titles, city aliases, and blocking keys
// for every stored record, for after a change to the normalization tables.
func (in *Ingestor) Renormalize(ctx context.Context) (int, error) {
	timer := logging.StartTimer(logging.CategoryIngest, "Renormalize")
	defer timer.Stop()

	records, err := in.store.ListEvents(ctx)
	if err != nil {
		return 0, err
	}
	for i := range records {
		r := &records[i]
		r.TitleNormalized = in.norm.Normalize(in.stripper.Strip(r.Title))
		r.LocationCityNormalized = in.norm.NormalizeCity(r.LocationCity)
		r.BlockingKeys = event.ComputeBlockingKeys(r)
	}
	if err := in.store.UpsertEvents(ctx, records); err != nil {
		return 0, err
	}
	logging.Ingest("renormalized %d records", len(records))
	return len(records), nil
}

func validate(raw *RawRecord) error {
	if raw.ID == "" {
		return fmt.Errorf("missing id")
	}
	if raw.SourceCode == "" {
		return fmt.Errorf("missing source_code")
	}
	switch event.SourceType(raw.SourceType) {
	case event.SourceArticle, event.SourceListing, event.SourceAd:
	default:
		return fmt.Errorf("unknown source_type %q", raw.SourceType)
	}
	if raw.Title == "" {
		return fmt.Errorf("missing title")
	}
	for i, d := range raw.Dates {
		if d.Date == "" {
			return fmt.Errorf("dates[%d] missing date", i)
		}
	}
	if raw.GeoConfidence != nil && (*raw.GeoConfidence < 0 || *raw.GeoConfidence > 1) {
		return fmt.Errorf("geo_confidence %v outside [0,1]", *raw.GeoConfidence)
	}
	return nil
}

func (in *Ingestor) build(raw *RawRecord) event.Record {
	r := event.Record{
		ID:               raw.ID,
		SourceCode:       raw.SourceCode,
		SourceType:       event.SourceType(raw.SourceType),
		Title:            raw.Title,
		ShortDescription: raw.ShortDescription,
		Description:      raw.Description,
		Highlights:       raw.Highlights,
		LocationName:     raw.LocationName,
		LocationCity:     raw.LocationCity,
		LocationDistrict: raw.LocationDistrict,
		LocationStreet:   raw.LocationStreet,
		LocationZipcode:  raw.LocationZipcode,
		GeoLatitude:      raw.GeoLatitude,
		GeoLongitude:     raw.GeoLongitude,
		GeoConfidence:    raw.GeoConfidence,
		Categories:       raw.Categories,
		IsFamilyEvent:    raw.IsFamilyEvent,
		IsChildFocused:   raw.IsChildFocused,
		AdmissionFree:    raw.AdmissionFree,
		Dates:            raw.Dates,
	}
	r.TitleNormalized = in.norm.Normalize(in.stripper.Strip(r.Title))
	r.LocationCityNormalized = in.norm.NormalizeCity(r.LocationCity)
	r.BlockingKeys = event.ComputeBlockingKeys(&r)
	return r
}
