package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"dublette/internal/canonical"
	"dublette/internal/event"
)

// insertCanonical writes the canonical row and its source links.
func (t *Tx) insertCanonical(ctx context.Context, c *canonical.Canonical, sourceIDs []string) error {
	if c.ID == "" {
		return fmt.Errorf("%w: canonical requires an id", ErrInvalidInput)
	}
	datesJSON, err := json.Marshal(c.Dates)
	if err != nil {
		return fmt.Errorf("%w: marshal dates: %v", ErrInternal, err)
	}
	provJSON, err := json.Marshal(c.Provenance)
	if err != nil {
		return fmt.Errorf("%w: marshal provenance: %v", ErrInternal, err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO canonical_events (
			id, title, short_description, description, highlights,
			location_name, location_city, location_district,
			location_street, location_zipcode,
			geo_latitude, geo_longitude, geo_confidence,
			categories, is_family_event, is_child_focused, admission_free,
			dates, source_count, match_confidence, needs_review, ai_assisted,
			first_date, last_date, provenance, version
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Title, nullString(c.ShortDescription), nullString(c.Description),
		jsonList(c.Highlights),
		nullString(c.LocationName), nullString(c.LocationCity),
		nullString(c.LocationDistrict), nullString(c.LocationStreet),
		nullString(c.LocationZipcode),
		c.GeoLatitude, c.GeoLongitude, c.GeoConfidence,
		jsonList(c.Categories), boolValue(c.IsFamilyEvent),
		boolValue(c.IsChildFocused), boolValue(c.AdmissionFree),
		string(datesJSON), c.SourceCount, c.MatchConfidence,
		c.NeedsReview, c.AIAssisted,
		nullString(c.FirstDate), nullString(c.LastDate),
		string(provJSON), c.Version)
	if err != nil {
		return fmt.Errorf("%w: insert canonical %s: %v", ErrInternal, c.ID, err)
	}
	for _, sid := range sourceIDs {
		if err := t.InsertLink(ctx, c.ID, sid); err != nil {
			return err
		}
	}
	return nil
}

// UpdateCanonical rewrites an existing canonical row in place, bumping
// updated_at. Source links are managed separately.
func (t *Tx) UpdateCanonical(ctx context.Context, c *canonical.Canonical) error {
	datesJSON, err := json.Marshal(c.Dates)
	if err != nil {
		return fmt.Errorf("%w: marshal dates: %v", ErrInternal, err)
	}
	provJSON, err := json.Marshal(c.Provenance)
	if err != nil {
		return fmt.Errorf("%w: marshal provenance: %v", ErrInternal, err)
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE canonical_events SET
			title=?, short_description=?, description=?, highlights=?,
			location_name=?, location_city=?, location_district=?,
			location_street=?, location_zipcode=?,
			geo_latitude=?, geo_longitude=?, geo_confidence=?,
			categories=?, is_family_event=?, is_child_focused=?, admission_free=?,
			dates=?, source_count=?, match_confidence=?, needs_review=?,
			ai_assisted=?, first_date=?, last_date=?, provenance=?, version=?,
			updated_at=CURRENT_TIMESTAMP
		WHERE id=?`,
		c.Title, nullString(c.ShortDescription), nullString(c.Description),
		jsonList(c.Highlights),
		nullString(c.LocationName), nullString(c.LocationCity),
		nullString(c.LocationDistrict), nullString(c.LocationStreet),
		nullString(c.LocationZipcode),
		c.GeoLatitude, c.GeoLongitude, c.GeoConfidence,
		jsonList(c.Categories), boolValue(c.IsFamilyEvent),
		boolValue(c.IsChildFocused), boolValue(c.AdmissionFree),
		string(datesJSON), c.SourceCount, c.MatchConfidence, c.NeedsReview,
		c.AIAssisted, nullString(c.FirstDate), nullString(c.LastDate),
		string(provJSON), c.Version, c.ID)
	if err != nil {
		return fmt.Errorf("%w: update canonical %s: %v", ErrInternal, c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: canonical %s", ErrNotFound, c.ID)
	}
	return nil
}

// InsertCanonical exposes canonical insertion to review operations.
func (t *Tx) InsertCanonical(ctx context.Context, c *canonical.Canonical, sourceIDs []string) error {
	return t.insertCanonical(ctx, c, sourceIDs)
}

// GetCanonical loads one canonical by id.
func (t *Tx) GetCanonical(ctx context.Context, id string) (*canonical.Canonical, error) {
	return scanCanonical(t.tx.QueryRowContext(ctx, canonicalSelect+` WHERE id=?`, id), id)
}

// GetCanonical loads one canonical by id outside any transaction.
func (s *Store) GetCanonical(ctx context.Context, id string) (*canonical.Canonical, error) {
	return scanCanonical(s.db.QueryRowContext(ctx, canonicalSelect+` WHERE id=?`, id), id)
}

// DeleteCanonical removes the canonical; links cascade.
func (t *Tx) DeleteCanonical(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM canonical_events WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete canonical %s: %v", ErrInternal, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: canonical %s", ErrNotFound, id)
	}
	return nil
}

// InsertLink adds a source link, erroring with ErrConflict on duplicates.
func (t *Tx) InsertLink(ctx context.Context, canonicalID, sourceID string) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO canonical_event_sources (canonical_id, source_event_id)
		VALUES (?,?)`, canonicalID, sourceID)
	if err != nil {
		return fmt.Errorf("%w: link %s to %s: %v", ErrInternal, sourceID, canonicalID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: link %s already on %s", ErrConflict, sourceID, canonicalID)
	}
	return nil
}

// DeleteLink removes one source link.
func (t *Tx) DeleteLink(ctx context.Context, canonicalID, sourceID string) error {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM canonical_event_sources
		WHERE canonical_id=? AND source_event_id=?`, canonicalID, sourceID)
	if err != nil {
		return fmt.Errorf("%w: unlink %s from %s: %v", ErrInternal, sourceID, canonicalID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: link %s on %s", ErrNotFound, sourceID, canonicalID)
	}
	return nil
}

// ListLinks returns the source ids linked to a canonical, ordered by id.
func (t *Tx) ListLinks(ctx context.Context, canonicalID string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT source_event_id FROM canonical_event_sources
		WHERE canonical_id=? ORDER BY source_event_id`, canonicalID)
	if err != nil {
		return nil, fmt.Errorf("%w: list links for %s: %v", ErrInternal, canonicalID, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan link: %v", ErrInternal, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetEventsByIDs loads records inside the transaction, in id order.
func (t *Tx) GetEventsByIDs(ctx context.Context, ids []string) ([]event.Record, error) {
	var records []event.Record
	for _, id := range ids {
		rows, err := t.tx.QueryContext(ctx, `
			SELECT id, source_code, source_type, title, title_normalized,
				short_description, description, highlights,
				location_name, location_city, location_city_normalized,
				location_district, location_street, location_zipcode,
				geo_latitude, geo_longitude, geo_confidence,
				categories, is_family_event, is_child_focused, admission_free,
				blocking_keys
			FROM source_events WHERE id=?`, id)
		if err != nil {
			return nil, fmt.Errorf("%w: get event %s: %v", ErrInternal, id, err)
		}
		if !rows.Next() {
			rows.Close()
			return nil, fmt.Errorf("%w: event %s", ErrNotFound, id)
		}
		r, err := scanEvent(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		if err := t.attachDates(ctx, r); err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, nil
}

func (t *Tx) attachDates(ctx context.Context, r *event.Record) error {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT date, start_time, end_time, end_date
		FROM event_dates WHERE event_id=? ORDER BY id`, r.ID)
	if err != nil {
		return fmt.Errorf("%w: load dates for %s: %v", ErrInternal, r.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var d event.EventDate
		var start, end, endDate sql.NullString
		if err := rows.Scan(&d.Date, &start, &end, &endDate); err != nil {
			return fmt.Errorf("%w: scan date: %v", ErrInternal, err)
		}
		d.StartTime, d.EndTime, d.EndDate = start.String, end.String, endDate.String
		r.Dates = append(r.Dates, d)
	}
	return rows.Err()
}

const canonicalSelect = `
	SELECT id, title, short_description, description, highlights,
		location_name, location_city, location_district,
		location_street, location_zipcode,
		geo_latitude, geo_longitude, geo_confidence,
		categories, is_family_event, is_child_focused, admission_free,
		dates, source_count, match_confidence, needs_review, ai_assisted,
		first_date, last_date, provenance, version, created_at, updated_at
	FROM canonical_events`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCanonical(row rowScanner, id string) (*canonical.Canonical, error) {
	var c canonical.Canonical
	var shortDesc, desc, highlights, locName, locCity sql.NullString
	var locDistrict, locStreet, locZip, categories sql.NullString
	var dates, firstDate, lastDate, prov sql.NullString
	var lat, lon, conf, matchConf sql.NullFloat64
	var family, child, free sql.NullBool
	err := row.Scan(&c.ID, &c.Title, &shortDesc, &desc, &highlights,
		&locName, &locCity, &locDistrict, &locStreet, &locZip,
		&lat, &lon, &conf,
		&categories, &family, &child, &free,
		&dates, &c.SourceCount, &matchConf, &c.NeedsReview, &c.AIAssisted,
		&firstDate, &lastDate, &prov, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: canonical %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan canonical %s: %v", ErrInternal, id, err)
	}
	c.ShortDescription = shortDesc.String
	c.Description = desc.String
	c.Highlights = parseList(highlights)
	c.LocationName = locName.String
	c.LocationCity = locCity.String
	c.LocationDistrict = locDistrict.String
	c.LocationStreet = locStreet.String
	c.LocationZipcode = locZip.String
	if lat.Valid {
		c.GeoLatitude = &lat.Float64
	}
	if lon.Valid {
		c.GeoLongitude = &lon.Float64
	}
	if conf.Valid {
		c.GeoConfidence = &conf.Float64
	}
	if matchConf.Valid {
		c.MatchConfidence = &matchConf.Float64
	}
	c.Categories = parseList(categories)
	if family.Valid {
		c.IsFamilyEvent = &family.Bool
	}
	if child.Valid {
		c.IsChildFocused = &child.Bool
	}
	if free.Valid {
		c.AdmissionFree = &free.Bool
	}
	if dates.Valid && dates.String != "" {
		if err := json.Unmarshal([]byte(dates.String), &c.Dates); err != nil {
			return nil, fmt.Errorf("%w: parse dates for %s: %v", ErrInternal, id, err)
		}
	}
	c.FirstDate = firstDate.String
	c.LastDate = lastDate.String
	if prov.Valid && prov.String != "" {
		if err := json.Unmarshal([]byte(prov.String), &c.Provenance); err != nil {
			return nil, fmt.Errorf("%w: parse provenance for %s: %v", ErrInternal, id, err)
		}
	}
	return &c, nil
}

// SetReviewState updates only the review flag and match confidence, used by
// dismiss which must not touch synthesized fields.
func (t *Tx) SetReviewState(ctx context.Context, id string, needsReview bool, matchConfidence *float64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE canonical_events SET needs_review=?, match_confidence=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=?`, needsReview, matchConfidence, id)
	if err != nil {
		return fmt.Errorf("%w: set review state %s: %v", ErrInternal, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: canonical %s", ErrNotFound, id)
	}
	return nil
}

// CanonicalSummary is the review-queue projection.
type CanonicalSummary struct {
	ID              string
	Title           string
	SourceCount     int
	MatchConfidence *float64
	NeedsReview     bool
	AIAssisted      bool
	FirstDate       string
}

// ListCanonicals returns summaries, optionally limited to the review queue.
func (s *Store) ListCanonicals(ctx context.Context, needsReviewOnly bool) ([]CanonicalSummary, error) {
	query := `SELECT id, title, source_count, match_confidence, needs_review, ai_assisted, COALESCE(first_date,'')
		FROM canonical_events`
	if needsReviewOnly {
		query += ` WHERE needs_review = 1`
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list canonicals: %v", ErrInternal, err)
	}
	defer rows.Close()
	var out []CanonicalSummary
	for rows.Next() {
		var c CanonicalSummary
		var conf sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.Title, &c.SourceCount, &conf, &c.NeedsReview, &c.AIAssisted, &c.FirstDate); err != nil {
			return nil, fmt.Errorf("%w: scan canonical summary: %v", ErrInternal, err)
		}
		if conf.Valid {
			c.MatchConfidence = &conf.Float64
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountCanonicals reports totals for the stats command.
func (s *Store) CountCanonicals(ctx context.Context) (total, needsReview, aiAssisted int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(needs_review), 0),
			COALESCE(SUM(ai_assisted), 0)
		FROM canonical_events`).Scan(&total, &needsReview, &aiAssisted)
	if err != nil {
		err = fmt.Errorf("%w: count canonicals: %v", ErrInternal, err)
	}
	return
}
