package patent

import (
	"strings"

	"github.com/turtacn/KeyIP-PatentDoc/internal/domain/classification"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// ErrMissingRequiredIdentifier is returned by Builder.Build when no primary
// identifier was gathered.  It is fatal for the document being parsed.
var ErrMissingRequiredIdentifier = errors.New(errors.ErrCodeMissingIdentifier, "document has no primary identifier")

// ErrIdentifierAlreadySet is returned when a second, different primary
// identifier is offered to a Builder.
var ErrIdentifierAlreadySet = errors.New(errors.ErrCodeConflict, "primary identifier already set")

// ErrInvalidPatentType is returned by ParsePatentType for unknown values.
var ErrInvalidPatentType = errors.New(errors.ErrCodeInvalidPatentType, "invalid patent type")

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle and PatentType
// ─────────────────────────────────────────────────────────────────────────────

// Lifecycle distinguishes published applications from granted patents.
type Lifecycle uint8

const (
	LifecycleUnknown     Lifecycle = 0
	LifecycleApplication Lifecycle = 1
	LifecycleGrant       Lifecycle = 2
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleApplication:
		return "application"
	case LifecycleGrant:
		return "grant"
	default:
		return "unknown"
	}
}

// PatentType is the statutory type of the document.
type PatentType string

const (
	PatentTypeUnknown     PatentType = ""
	PatentTypeUtility     PatentType = "utility"
	PatentTypeDesign      PatentType = "design"
	PatentTypePlant       PatentType = "plant"
	PatentTypeReissue     PatentType = "reissue"
	PatentTypeDefensive   PatentType = "defensive-publication"
	PatentTypeSIR         PatentType = "sir"
	PatentTypeProvisional PatentType = "provisional"
)

// ParsePatentType accepts the textual values of the XML formats ("utility",
// "design", "plant", "reissue", "sir", ...) and the numeric APT codes of the
// fixed-format records (1 utility, 2 reissue, 4 design, 5 defensive
// publication, 6 plant, 7 SIR).
func ParsePatentType(s string) (PatentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "utility", "1":
		return PatentTypeUtility, nil
	case "reissue", "2":
		return PatentTypeReissue, nil
	case "design", "4":
		return PatentTypeDesign, nil
	case "defensive-publication", "defensive publication", "5":
		return PatentTypeDefensive, nil
	case "plant", "6":
		return PatentTypePlant, nil
	case "sir", "statutory invention registration", "7":
		return PatentTypeSIR, nil
	case "provisional":
		return PatentTypeProvisional, nil
	default:
		return PatentTypeUnknown, ErrInvalidPatentType.WithDetailf("value=%q", s)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Document, Patent, Application, Grant
// ─────────────────────────────────────────────────────────────────────────────

// Document holds the fields shared by every lifecycle.  Optional values are
// nil or empty when absent from the source.
type Document struct {
	ID              DocumentID         `json:"id"`
	ApplicationID   *DocumentID        `json:"application_id,omitempty"`
	RelatedIDs      []DocumentID       `json:"related_ids,omitempty"`
	PatentType      PatentType         `json:"patent_type,omitempty"`
	Title           string             `json:"title,omitempty"`
	Abstract        string             `json:"abstract,omitempty"`
	Description     string             `json:"description,omitempty"`
	Claims          ClaimSet           `json:"claims,omitempty"`
	Inventors       []Party            `json:"inventors,omitempty"`
	Applicants      []Party            `json:"applicants,omitempty"`
	Agents          []Party            `json:"agents,omitempty"`
	Assignees       []Party            `json:"assignees,omitempty"`
	Citations       []Citation         `json:"citations,omitempty"`
	Classifications classification.Set `json:"classifications"`
	DateProduced    *DocumentDate      `json:"date_produced,omitempty"`
	DatePublished   *DocumentDate      `json:"date_published,omitempty"`
}

// ClaimTree derives the dependency forest of the document's claims.
func (d *Document) ClaimTree() ClaimTree { return NewClaimTree(d.Claims) }

// Patent is the sealed union of Application and Grant.
type Patent interface {
	// Base returns the shared document fields.
	Base() *Document
	// Lifecycle returns LifecycleApplication or LifecycleGrant.
	Lifecycle() Lifecycle

	sealed()
}

// Application is a published patent application.
type Application struct {
	Document
}

func (a *Application) Base() *Document     { return &a.Document }
func (a *Application) Lifecycle() Lifecycle { return LifecycleApplication }
func (a *Application) sealed()              {}

// Grant is an issued patent.
type Grant struct {
	Document
	PrimaryExaminer string `json:"primary_examiner,omitempty"`
}

func (g *Grant) Base() *Document     { return &g.Document }
func (g *Grant) Lifecycle() Lifecycle { return LifecycleGrant }
func (g *Grant) sealed()              {}

// Record is the serialized form of a Patent: the document fields plus its
// lifecycle and the grant-only examiner.
type Record struct {
	Lifecycle string `json:"lifecycle"`
	Document
	PrimaryExaminer string `json:"primary_examiner,omitempty"`
}

// NewRecord flattens p for encoding.  A nil p yields the zero Record.
func NewRecord(p Patent) Record {
	if p == nil {
		return Record{}
	}
	r := Record{Lifecycle: p.Lifecycle().String(), Document: *p.Base()}
	if g, ok := p.(*Grant); ok {
		r.PrimaryExaminer = g.PrimaryExaminer
	}
	return r
}

// ─────────────────────────────────────────────────────────────────────────────
// Builder
// ─────────────────────────────────────────────────────────────────────────────

// Builder gathers document fields during a parse.  The typed Patent value is
// only created by Build, after every field has been offered, so no caller
// ever observes a half-populated document.  A Builder is single-use and not
// safe for concurrent use.
type Builder struct {
	doc       Document
	idSet     bool
	related   map[string]struct{}
	inventors partySet
	applicant partySet
	agents    partySet
	assignees partySet
	examiner  string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{related: make(map[string]struct{})}
}

// SetID records the primary identifier.  Offering the same identifier twice
// is a no-op; a different second identifier is rejected.
func (b *Builder) SetID(id DocumentID) error {
	if id.IsZero() {
		return ErrMissingRequiredIdentifier.WithDetail("empty document number")
	}
	if b.idSet {
		if b.doc.ID.Key() == id.Key() {
			return nil
		}
		return ErrIdentifierAlreadySet.WithDetailf("have=%s offered=%s", b.doc.ID, id)
	}
	if id.Type == "" {
		id.Type = IDTypePublication
	}
	b.doc.ID = id
	b.idSet = true
	return nil
}

// ID returns the primary identifier gathered so far.
func (b *Builder) ID() (DocumentID, bool) { return b.doc.ID, b.idSet }

// SetApplicationID records the application identifier.
func (b *Builder) SetApplicationID(id DocumentID) {
	if id.IsZero() {
		return
	}
	if id.Type == "" {
		id.Type = IDTypeApplication
	}
	b.doc.ApplicationID = &id
}

// AddRelatedID records a related identifier; duplicates are ignored.
func (b *Builder) AddRelatedID(id DocumentID) {
	if id.IsZero() {
		return
	}
	k := string(id.Type) + "|" + id.Key()
	if _, ok := b.related[k]; ok {
		return
	}
	b.related[k] = struct{}{}
	b.doc.RelatedIDs = append(b.doc.RelatedIDs, id)
}

func (b *Builder) SetPatentType(t PatentType)       { b.doc.PatentType = t }
func (b *Builder) SetTitle(title string)            { b.doc.Title = title }
func (b *Builder) SetAbstract(text string)          { b.doc.Abstract = text }
func (b *Builder) SetDescription(text string)       { b.doc.Description = text }
func (b *Builder) SetClaims(claims ClaimSet)        { b.doc.Claims = claims }
func (b *Builder) SetDateProduced(d *DocumentDate)  { b.doc.DateProduced = d }
func (b *Builder) SetDatePublished(d *DocumentDate) { b.doc.DatePublished = d }
func (b *Builder) SetPrimaryExaminer(name string)   { b.examiner = strings.TrimSpace(name) }

// AddParty records p in the collection selected by its role; duplicates and
// nameless parties are ignored.
func (b *Builder) AddParty(p Party) {
	switch p.Role {
	case RoleInventor:
		b.inventors.add(p)
	case RoleApplicant:
		b.applicant.add(p)
	case RoleAgent:
		b.agents.add(p)
	case RoleAssignee:
		b.assignees.add(p)
	}
}

// AddCitation appends c, assigning a sequence number when none is set.
func (b *Builder) AddCitation(c Citation) {
	if c.DocumentID == nil && strings.TrimSpace(c.Text) == "" {
		return
	}
	if c.Sequence == 0 {
		c.Sequence = len(b.doc.Citations) + 1
	}
	b.doc.Citations = append(b.doc.Citations, c)
}

// AddClassification records c unless an entry with the same scheme and code
// exists.
func (b *Builder) AddClassification(c classification.Classification) {
	b.doc.Classifications.Add(c)
}

// Build creates the typed Patent.  It fails with ErrMissingRequiredIdentifier
// when no primary identifier was set.  The Builder is reset afterwards.
func (b *Builder) Build(lifecycle Lifecycle) (Patent, error) {
	if !b.idSet || b.doc.ID.IsZero() {
		return nil, ErrMissingRequiredIdentifier
	}
	doc := b.doc
	doc.Inventors = b.inventors.items
	doc.Applicants = b.applicant.items
	doc.Agents = b.agents.items
	doc.Assignees = b.assignees.items

	var p Patent
	switch lifecycle {
	case LifecycleApplication:
		p = &Application{Document: doc}
	case LifecycleGrant:
		p = &Grant{Document: doc, PrimaryExaminer: b.examiner}
	default:
		return nil, errors.New(errors.ErrCodeInternal, "unknown document lifecycle").
			WithDetailf("lifecycle=%d", lifecycle)
	}
	*b = *NewBuilder()
	return p, nil
}

//Personal.AI order the ending
