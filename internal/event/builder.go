package event

// Builder assembles Records field by field. It exists mainly for tests and
// fixtures; ingestion builds records directly from the wire format.
type Builder struct {
	r Record
}

// NewBuilder starts a record with the given id and source code.
func NewBuilder(id, sourceCode string) *Builder {
	return &Builder{r: Record{
		ID:         id,
		SourceCode: sourceCode,
		SourceType: SourceListing,
	}}
}

func (b *Builder) SourceType(t SourceType) *Builder {
	b.r.SourceType = t
	return b
}

func (b *Builder) Title(raw, normalized string) *Builder {
	b.r.Title = raw
	b.r.TitleNormalized = normalized
	return b
}

func (b *Builder) Descriptions(short, long string) *Builder {
	b.r.ShortDescription = short
	b.r.Description = long
	return b
}

func (b *Builder) Highlights(hs ...string) *Builder {
	b.r.Highlights = hs
	return b
}

func (b *Builder) City(raw, normalized string) *Builder {
	b.r.LocationCity = raw
	b.r.LocationCityNormalized = normalized
	return b
}

func (b *Builder) Venue(name string) *Builder {
	b.r.LocationName = name
	return b
}

func (b *Builder) Address(district, street, zipcode string) *Builder {
	b.r.LocationDistrict = district
	b.r.LocationStreet = street
	b.r.LocationZipcode = zipcode
	return b
}

func (b *Builder) Geo(lat, lon, confidence float64) *Builder {
	b.r.GeoLatitude = &lat
	b.r.GeoLongitude = &lon
	b.r.GeoConfidence = &confidence
	return b
}

func (b *Builder) Categories(cats ...string) *Builder {
	b.r.Categories = cats
	return b
}

func (b *Builder) Flags(family, child, free *bool) *Builder {
	b.r.IsFamilyEvent = family
	b.r.IsChildFocused = child
	b.r.AdmissionFree = free
	return b
}

func (b *Builder) On(date string) *Builder {
	b.r.Dates = append(b.r.Dates, EventDate{Date: date})
	return b
}

func (b *Builder) OnAt(date, startTime string) *Builder {
	b.r.Dates = append(b.r.Dates, EventDate{Date: date, StartTime: startTime})
	return b
}

func (b *Builder) Span(start, end string) *Builder {
	b.r.Dates = append(b.r.Dates, EventDate{Date: start, EndDate: end})
	return b
}

// Build finalizes the record, computing blocking keys from what was set.
func (b *Builder) Build() Record {
	r := b.r
	r.BlockingKeys = ComputeBlockingKeys(&r)
	return r
}

// BoolPtr is a small helper for nullable flags in fixtures.
func BoolPtr(v bool) *bool { return &v }
