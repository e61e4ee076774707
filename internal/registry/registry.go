package registry

// Package registry is the single source of truth mapping a record type to its
// field schema and presentation metadata. Lookups are pure and allocation-free;
// the tables are assembled once at init and never mutated.

// FieldKind enumerates the input kinds a field can render as.
type FieldKind string

const (
	KindText        FieldKind = "text"
	KindTextarea    FieldKind = "textarea"
	KindNumber      FieldKind = "number"
	KindDate        FieldKind = "date"
	KindURL         FieldKind = "url"
	KindSelect      FieldKind = "select"
	KindMultiSelect FieldKind = "multiselect"
	KindFile        FieldKind = "file"
)

// Option is one choice of a select or multiselect field.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FieldDefinition describes one input field of a record type schema.
type FieldDefinition struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	Options  []Option  `json:"options,omitempty"`
	GridSpan int       `json:"grid_span,omitempty"`
}

// Schema is the ordered field list for one record type.
type Schema struct {
	Type   string            `json:"type"`
	Fields []FieldDefinition `json:"fields"`
}

// FieldKeys returns the set of keys defined by the schema.
func (s Schema) FieldKeys() map[string]struct{} {
	keys := make(map[string]struct{}, len(s.Fields))
	for _, field := range s.Fields {
		keys[field.Key] = struct{}{}
	}
	return keys
}

// Field returns the definition for a key, if present.
func (s Schema) Field(key string) (FieldDefinition, bool) {
	for _, field := range s.Fields {
		if field.Key == key {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

// TypeMeta carries display metadata for a record type badge.
type TypeMeta struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	PluralLabel string `json:"plural_label"`
	ShortLabel  string `json:"short_label"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	BadgeColor  string `json:"badge_color"`
}

// Record type keys. The set is closed; extending it means adding a schema and
// meta entry below.
const (
	TypeIPR         = "ipr"
	TypeJournal     = "journal"
	TypeConference  = "conference"
	TypeBook        = "book"
	TypeAward       = "award"
	TypeConsultancy = "consultancy"
	TypeGrant       = "grant"
	TypePhDStudent  = "phd_student"
	TypeOther       = "other"
)

// DefaultType is the fallback schema used for retired or unknown types so
// historical records keep rendering after schema changes.
const DefaultType = TypeJournal

// commonFields are present on every type. Title and year are mirrored from
// the record's top-level columns into the payload, so every schema must carry
// them. Domain is an optional departmental tag.
func commonFields() []FieldDefinition {
	return []FieldDefinition{
		{Key: "title", Label: "Title", Kind: KindText, Required: true, GridSpan: 2},
		{Key: "description", Label: "Description", Kind: KindTextarea, GridSpan: 2},
		{Key: "domain", Label: "Domain", Kind: KindSelect, Options: []Option{
			{Label: "Computer Science", Value: "cs"},
			{Label: "Electronics", Value: "ece"},
			{Label: "Mechanical", Value: "mech"},
			{Label: "Civil", Value: "civil"},
			{Label: "Biotechnology", Value: "biotech"},
			{Label: "Management", Value: "mgmt"},
			{Label: "Other", Value: "other"},
		}},
		{Key: "year", Label: "Year", Kind: KindNumber, Required: true},
	}
}

func withCommon(fields ...FieldDefinition) []FieldDefinition {
	return append(commonFields(), fields...)
}

var schemas = map[string]Schema{
	TypeIPR: {Type: TypeIPR, Fields: withCommon(
		FieldDefinition{Key: "inventors", Label: "Inventors", Kind: KindText, Required: true, GridSpan: 2},
		FieldDefinition{Key: "applicationNo", Label: "Application No.", Kind: KindText, Required: true},
		FieldDefinition{Key: "filingDate", Label: "Filing Date", Kind: KindDate, Required: true},
		FieldDefinition{Key: "status", Label: "Status", Kind: KindSelect, Required: true, Options: []Option{
			{Label: "Filed", Value: "filed"},
			{Label: "Published", Value: "published"},
			{Label: "Granted", Value: "granted"},
		}},
		FieldDefinition{Key: "publicationDate", Label: "Publication Date", Kind: KindDate},
		FieldDefinition{Key: "grantDate", Label: "Grant Date", Kind: KindDate},
		FieldDefinition{Key: "patentNo", Label: "Patent No.", Kind: KindText},
	)},
	TypeJournal: {Type: TypeJournal, Fields: withCommon(
		FieldDefinition{Key: "journalName", Label: "Journal Name", Kind: KindText, Required: true, GridSpan: 2},
		FieldDefinition{Key: "authors", Label: "Authors", Kind: KindText, Required: true},
		FieldDefinition{Key: "publicationDate", Label: "Publication Date", Kind: KindDate, Required: true},
		FieldDefinition{Key: "publisher", Label: "Publisher", Kind: KindText, Required: true},
		FieldDefinition{Key: "volume", Label: "Volume", Kind: KindText},
		FieldDefinition{Key: "issue", Label: "Issue", Kind: KindText},
		FieldDefinition{Key: "pages", Label: "Pages", Kind: KindText},
		FieldDefinition{Key: "issn", Label: "ISSN", Kind: KindText},
		FieldDefinition{Key: "indexing", Label: "Indexing", Kind: KindSelect, Options: []Option{
			{Label: "SCI", Value: "sci"},
			{Label: "Scopus", Value: "scopus"},
			{Label: "UGC Care", Value: "ugc"},
			{Label: "Other", Value: "other"},
		}},
		FieldDefinition{Key: "impactFactor", Label: "Impact Factor", Kind: KindNumber},
		FieldDefinition{Key: "doi", Label: "DOI", Kind: KindURL},
		FieldDefinition{Key: "link", Label: "Link", Kind: KindURL},
	)},
	TypeConference: {Type: TypeConference, Fields: withCommon(
		FieldDefinition{Key: "conferenceName", Label: "Conference Name", Kind: KindText, Required: true, GridSpan: 2},
		FieldDefinition{Key: "organizer", Label: "Organizer", Kind: KindText, Required: true},
		FieldDefinition{Key: "location", Label: "Location", Kind: KindText, Required: true},
		FieldDefinition{Key: "startDate", Label: "Start Date", Kind: KindDate, Required: true},
		FieldDefinition{Key: "endDate", Label: "End Date", Kind: KindDate, Required: true},
		FieldDefinition{Key: "authors", Label: "Authors", Kind: KindText, Required: true},
		FieldDefinition{Key: "presentationType", Label: "Presentation Type", Kind: KindSelect, Required: true, Options: []Option{
			{Label: "Oral", Value: "oral"},
			{Label: "Poster", Value: "poster"},
			{Label: "Keynote", Value: "keynote"},
		}},
		FieldDefinition{Key: "proceedingsLink", Label: "Proceedings Link", Kind: KindURL},
	)},
	TypeBook: {Type: TypeBook, Fields: withCommon(
		FieldDefinition{Key: "type", Label: "Type", Kind: KindSelect, Required: true, Options: []Option{
			{Label: "Authored Book", Value: "authored_book"},
			{Label: "Edited Book", Value: "edited_book"},
			{Label: "Book Chapter", Value: "chapter"},
		}},
		FieldDefinition{Key: "authors", Label: "Authors/Editors", Kind: KindText, Required: true},
		FieldDefinition{Key: "publisher", Label: "Publisher", Kind: KindText, Required: true},
		FieldDefinition{Key: "publicationYear", Label: "Publication Year", Kind: KindNumber, Required: true},
		FieldDefinition{Key: "isbn", Label: "ISBN", Kind: KindText, Required: true},
		FieldDefinition{Key: "doi", Label: "DOI", Kind: KindURL},
	)},
	TypeAward: {Type: TypeAward, Fields: withCommon(
		FieldDefinition{Key: "agency", Label: "Awarding Agency", Kind: KindText, Required: true},
		FieldDefinition{Key: "date", Label: "Date", Kind: KindDate, Required: true},
	)},
	TypeConsultancy: {Type: TypeConsultancy, Fields: withCommon(
		FieldDefinition{Key: "client", Label: "Client Organization", Kind: KindText, Required: true},
		FieldDefinition{Key: "amount", Label: "Amount (INR)", Kind: KindNumber, Required: true},
		FieldDefinition{Key: "startDate", Label: "Start Date", Kind: KindDate, Required: true},
		FieldDefinition{Key: "endDate", Label: "End Date", Kind: KindDate},
		FieldDefinition{Key: "status", Label: "Status", Kind: KindSelect, Required: true, Options: []Option{
			{Label: "Ongoing", Value: "ongoing"},
			{Label: "Completed", Value: "completed"},
		}},
	)},
	TypeGrant: {Type: TypeGrant, Fields: withCommon(
		FieldDefinition{Key: "agency", Label: "Funding Agency", Kind: KindText, Required: true},
		FieldDefinition{Key: "amount", Label: "Amount", Kind: KindNumber, Required: true},
		FieldDefinition{Key: "startDate", Label: "Start Date", Kind: KindDate, Required: true},
		FieldDefinition{Key: "endDate", Label: "End Date", Kind: KindDate, Required: true},
		FieldDefinition{Key: "pi", Label: "Principal Investigator", Kind: KindText, Required: true},
		FieldDefinition{Key: "coPi", Label: "Co-PI", Kind: KindText},
		FieldDefinition{Key: "status", Label: "Status", Kind: KindSelect, Required: true, Options: []Option{
			{Label: "Submitted", Value: "submitted"},
			{Label: "Sanctioned", Value: "sanctioned"},
			{Label: "Completed", Value: "completed"},
			{Label: "Rejected", Value: "rejected"},
		}},
	)},
	TypePhDStudent: {Type: TypePhDStudent, Fields: withCommon(
		FieldDefinition{Key: "studentName", Label: "Student Name", Kind: KindText, Required: true, GridSpan: 2},
		FieldDefinition{Key: "enrollmentNumber", Label: "Enrollment Number", Kind: KindText, Required: true},
		FieldDefinition{Key: "supervisorType", Label: "Supervisor Type", Kind: KindSelect, Options: []Option{
			{Label: "Supervisor", Value: "supervisor"},
			{Label: "Co-Supervisor", Value: "co_supervisor"},
		}},
		FieldDefinition{Key: "phdStream", Label: "PhD Stream", Kind: KindText},
	)},
	TypeOther: {Type: TypeOther, Fields: withCommon(
		FieldDefinition{Key: "category", Label: "Category", Kind: KindText, Required: true},
		FieldDefinition{Key: "details", Label: "Details", Kind: KindTextarea, GridSpan: 2},
		FieldDefinition{Key: "supportingDocument", Label: "Supporting Document", Kind: KindFile},
	)},
}

var metas = map[string]TypeMeta{
	TypeIPR: {
		Type: TypeIPR, Label: "IPR", PluralLabel: "IPRs", ShortLabel: "IPR",
		Description: "Patents, Copyrights, and Intellectual Property Rights",
		Icon:        "Shield", BadgeColor: "violet",
	},
	TypeJournal: {
		Type: TypeJournal, Label: "Journal Publication", PluralLabel: "Journal Publications", ShortLabel: "Journal",
		Description: "Research papers published in academic journals",
		Icon:        "BookOpen", BadgeColor: "blue",
	},
	TypeConference: {
		Type: TypeConference, Label: "Conference Paper", PluralLabel: "Conference Papers", ShortLabel: "Conference",
		Description: "Papers presented at conferences and symposiums",
		Icon:        "Users", BadgeColor: "cyan",
	},
	TypeBook: {
		Type: TypeBook, Label: "Book/Chapter", PluralLabel: "Books & Chapters", ShortLabel: "Book",
		Description: "Books authored, edited, or book chapters",
		Icon:        "BookMarked", BadgeColor: "amber",
	},
	TypeAward: {
		Type: TypeAward, Label: "Award", PluralLabel: "Awards", ShortLabel: "Award",
		Description: "Academic and professional recognitions",
		Icon:        "Award", BadgeColor: "rose",
	},
	TypeConsultancy: {
		Type: TypeConsultancy, Label: "Consultancy", PluralLabel: "Consultancies", ShortLabel: "Consult.",
		Description: "Industry consultancy projects",
		Icon:        "Briefcase", BadgeColor: "emerald",
	},
	TypeGrant: {
		Type: TypeGrant, Label: "Research Grant", PluralLabel: "Research Grants", ShortLabel: "Grant",
		Description: "Funded research projects",
		Icon:        "Banknote", BadgeColor: "green",
	},
	TypePhDStudent: {
		Type: TypePhDStudent, Label: "PhD Student", PluralLabel: "PhD Students", ShortLabel: "PhD",
		Description: "Doctoral students under supervision",
		Icon:        "GraduationCap", BadgeColor: "indigo",
	},
	TypeOther: {
		Type: TypeOther, Label: "Other", PluralLabel: "Other Activities", ShortLabel: "Other",
		Description: "Other academic activities",
		Icon:        "MoreHorizontal", BadgeColor: "slate",
	},
}

// Types lists the registered record type keys in a stable order.
func Types() []string {
	return []string{
		TypeIPR, TypeJournal, TypeConference, TypeBook, TypeAward,
		TypeConsultancy, TypeGrant, TypePhDStudent, TypeOther,
	}
}

// IsKnown reports whether the type key is part of the registered set.
func IsKnown(recordType string) bool {
	_, ok := schemas[recordType]
	return ok
}

// Lookup returns the schema for a record type. The second return value is
// false for unknown types; callers that render historical data should prefer
// SchemaOrDefault.
func Lookup(recordType string) (Schema, bool) {
	schema, ok := schemas[recordType]
	return schema, ok
}

// SchemaOrDefault returns the schema for a record type, falling back to the
// journal schema when the type has been retired from the registry.
func SchemaOrDefault(recordType string) Schema {
	if schema, ok := schemas[recordType]; ok {
		return schema
	}
	return schemas[DefaultType]
}

// Meta returns display metadata for a record type, falling back to the
// default type's badge for unknown keys.
func Meta(recordType string) TypeMeta {
	if meta, ok := metas[recordType]; ok {
		return meta
	}
	return metas[DefaultType]
}
