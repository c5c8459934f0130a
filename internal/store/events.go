package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"dublette/internal/event"
	"dublette/internal/logging"
)

// UpsertEvents writes a batch of records in one transaction, replacing any
// existing row and its child dates.
func (s *Store) UpsertEvents(ctx context.Context, records []event.Record) error {
	timer := logging.StartTimer(logging.CategoryStore, "UpsertEvents")
	defer timer.Stop()

	return s.WithTx(ctx, func(tx *Tx) error {
		for i := range records {
			if err := tx.upsertEvent(ctx, &records[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (t *Tx) upsertEvent(ctx context.Context, r *event.Record) error {
	if r.ID == "" || r.SourceCode == "" {
		return fmt.Errorf("%w: record requires id and source_code", ErrInvalidInput)
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO source_events (
			id, source_code, source_type, title, title_normalized,
			short_description, description, highlights,
			location_name, location_city, location_city_normalized,
			location_district, location_street, location_zipcode,
			geo_latitude, geo_longitude, geo_confidence,
			categories, is_family_event, is_child_focused, admission_free,
			blocking_keys, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			source_code=excluded.source_code,
			source_type=excluded.source_type,
			title=excluded.title,
			title_normalized=excluded.title_normalized,
			short_description=excluded.short_description,
			description=excluded.description,
			highlights=excluded.highlights,
			location_name=excluded.location_name,
			location_city=excluded.location_city,
			location_city_normalized=excluded.location_city_normalized,
			location_district=excluded.location_district,
			location_street=excluded.location_street,
			location_zipcode=excluded.location_zipcode,
			geo_latitude=excluded.geo_latitude,
			geo_longitude=excluded.geo_longitude,
			geo_confidence=excluded.geo_confidence,
			categories=excluded.categories,
			is_family_event=excluded.is_family_event,
			is_child_focused=excluded.is_child_focused,
			admission_free=excluded.admission_free,
			blocking_keys=excluded.blocking_keys,
			updated_at=CURRENT_TIMESTAMP`,
		r.ID, r.SourceCode, string(r.SourceType), r.Title, r.TitleNormalized,
		r.ShortDescription, r.Description, jsonList(r.Highlights),
		r.LocationName, r.LocationCity, r.LocationCityNormalized,
		r.LocationDistrict, r.LocationStreet, r.LocationZipcode,
		r.GeoLatitude, r.GeoLongitude, r.GeoConfidence,
		jsonList(r.Categories), boolValue(r.IsFamilyEvent),
		boolValue(r.IsChildFocused), boolValue(r.AdmissionFree),
		jsonList(r.BlockingKeys))
	if err != nil {
		return fmt.Errorf("%w: upsert event %s: %v", ErrInternal, r.ID, err)
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM event_dates WHERE event_id = ?`, r.ID); err != nil {
		return fmt.Errorf("%w: clear dates for %s: %v", ErrInternal, r.ID, err)
	}
	for _, d := range r.Dates {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO event_dates (event_id, date, start_time, end_time, end_date)
			VALUES (?,?,?,?,?)`,
			r.ID, d.Date, nullString(d.StartTime), nullString(d.EndTime), nullString(d.EndDate)); err != nil {
			return fmt.Errorf("%w: insert date for %s: %v", ErrInternal, r.ID, err)
		}
	}
	return nil
}

// ListEvents returns all source events ordered by id, the stable order the
// pipeline and synthesis depend on.
func (s *Store) ListEvents(ctx context.Context) ([]event.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_code, source_type, title, title_normalized,
			short_description, description, highlights,
			location_name, location_city, location_city_normalized,
			location_district, location_street, location_zipcode,
			geo_latitude, geo_longitude, geo_confidence,
			categories, is_family_event, is_child_focused, admission_free,
			blocking_keys
		FROM source_events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", ErrInternal, err)
	}
	defer rows.Close()

	var records []event.Record
	for rows.Next() {
		r, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list events: %v", ErrInternal, err)
	}
	if err := s.attachDates(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetEventsByIDs fetches the named records in id order. Missing ids yield
// ErrNotFound.
func (s *Store) GetEventsByIDs(ctx context.Context, ids []string) ([]event.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_code, source_type, title, title_normalized,
			short_description, description, highlights,
			location_name, location_city, location_city_normalized,
			location_district, location_street, location_zipcode,
			geo_latitude, geo_longitude, geo_confidence,
			categories, is_family_event, is_child_focused, admission_free,
			blocking_keys
		FROM source_events WHERE id IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: get events: %v", ErrInternal, err)
	}
	defer rows.Close()

	var records []event.Record
	for rows.Next() {
		r, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: get events: %v", ErrInternal, err)
	}
	if len(records) != len(ids) {
		return nil, fmt.Errorf("%w: %d of %d events", ErrNotFound, len(records), len(ids))
	}
	if err := s.attachDates(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// CountEvents reports total rows and distinct sources.
func (s *Store) CountEvents(ctx context.Context) (total int, sources int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT source_code) FROM source_events`).Scan(&total, &sources)
	if err != nil {
		err = fmt.Errorf("%w: count events: %v", ErrInternal, err)
	}
	return
}

func (s *Store) attachDates(ctx context.Context, records []event.Record) error {
	if len(records) == 0 {
		return nil
	}
	byID := make(map[string]*event.Record, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, date, start_time, end_time, end_date
		FROM event_dates ORDER BY event_id, id`)
	if err != nil {
		return fmt.Errorf("%w: load dates: %v", ErrInternal, err)
	}
	defer rows.Close()
	for rows.Next() {
		var eventID string
		var d event.EventDate
		var start, end, endDate sql.NullString
		if err := rows.Scan(&eventID, &d.Date, &start, &end, &endDate); err != nil {
			return fmt.Errorf("%w: scan date: %v", ErrInternal, err)
		}
		d.StartTime, d.EndTime, d.EndDate = start.String, end.String, endDate.String
		if r, ok := byID[eventID]; ok {
			r.Dates = append(r.Dates, d)
		}
	}
	return rows.Err()
}

func scanEvent(rows *sql.Rows) (*event.Record, error) {
	var r event.Record
	var sourceType string
	var shortDesc, desc, highlights, locName, locCity, locCityNorm sql.NullString
	var locDistrict, locStreet, locZip, categories, blockingKeys sql.NullString
	var lat, lon, conf sql.NullFloat64
	var family, child, free sql.NullBool
	if err := rows.Scan(&r.ID, &r.SourceCode, &sourceType, &r.Title, &r.TitleNormalized,
		&shortDesc, &desc, &highlights,
		&locName, &locCity, &locCityNorm,
		&locDistrict, &locStreet, &locZip,
		&lat, &lon, &conf,
		&categories, &family, &child, &free,
		&blockingKeys); err != nil {
		return nil, fmt.Errorf("%w: scan event: %v", ErrInternal, err)
	}
	r.SourceType = event.SourceType(sourceType)
	r.ShortDescription = shortDesc.String
	r.Description = desc.String
	r.Highlights = parseList(highlights)
	r.LocationName = locName.String
	r.LocationCity = locCity.String
	r.LocationCityNormalized = locCityNorm.String
	r.LocationDistrict = locDistrict.String
	r.LocationStreet = locStreet.String
	r.LocationZipcode = locZip.String
	if lat.Valid {
		r.GeoLatitude = &lat.Float64
	}
	if lon.Valid {
		r.GeoLongitude = &lon.Float64
	}
	if conf.Valid {
		r.GeoConfidence = &conf.Float64
	}
	r.Categories = parseList(categories)
	if family.Valid {
		r.IsFamilyEvent = &family.Bool
	}
	if child.Valid {
		r.IsChildFocused = &child.Bool
	}
	if free.Valid {
		r.AdmissionFree = &free.Bool
	}
	r.BlockingKeys = parseList(blockingKeys)
	return &r, nil
}

func jsonList(items []string) interface{} {
	if len(items) == 0 {
		return nil
	}
	out, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return string(out)
}

func parseList(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s.String), &items); err != nil {
		return nil
	}
	return items
}

func boolValue(b *bool) interface{} {
	if b == nil {
		return nil
	}
	return *b
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
