package patent

import (
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Parties
// ─────────────────────────────────────────────────────────────────────────────

// Name is a person or organisation name.  Organisations carry OrgName only.
type Name struct {
	First   string `json:"first,omitempty"`
	Middle  string `json:"middle,omitempty"`
	Last    string `json:"last,omitempty"`
	Suffix  string `json:"suffix,omitempty"`
	OrgName string `json:"org_name,omitempty"`
}

// IsZero reports whether no component is set.
func (n Name) IsZero() bool {
	return n.First == "" && n.Middle == "" && n.Last == "" && n.Suffix == "" && n.OrgName == ""
}

// IsOrganization reports whether n names an organisation.
func (n Name) IsOrganization() bool { return n.OrgName != "" }

// String renders "First Middle Last Suffix" or the organisation name.
func (n Name) String() string {
	if n.OrgName != "" {
		return n.OrgName
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{n.First, n.Middle, n.Last, n.Suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// ParseLastFirst splits the "Last; First Middle" layout used by fixed-format
// and SGML records.  A value without a separator is taken as a last name.
func ParseLastFirst(s string) Name {
	last, first, found := strings.Cut(s, ";")
	if !found {
		last, first, found = strings.Cut(s, ",")
	}
	n := Name{Last: strings.TrimSpace(last)}
	if found {
		fields := strings.Fields(first)
		if len(fields) > 0 {
			n.First = fields[0]
		}
		if len(fields) > 1 {
			n.Middle = strings.Join(fields[1:], " ")
		}
	}
	return n
}

// Address is a postal address; only the components found in the source are
// populated.
type Address struct {
	Street     string      `json:"street,omitempty"`
	City       string      `json:"city,omitempty"`
	State      string      `json:"state,omitempty"`
	PostalCode string      `json:"postal_code,omitempty"`
	Country    CountryCode `json:"country,omitempty"`
}

// IsZero reports whether no component is set.
func (a Address) IsZero() bool { return a == Address{} }

// PartyRole distinguishes the four party collections of a document.
type PartyRole string

const (
	RoleInventor  PartyRole = "inventor"
	RoleApplicant PartyRole = "applicant"
	RoleAgent     PartyRole = "agent"
	RoleAssignee  PartyRole = "assignee"
)

// Party is an inventor, applicant, agent or assignee.
type Party struct {
	Role     PartyRole `json:"role"`
	Name     Name      `json:"name"`
	Address  Address   `json:"address,omitempty"`
	// RoleCode is the office-specific type code, e.g. "02" for a US company
	// assignee.
	RoleCode string `json:"role_code,omitempty"`
	Sequence int    `json:"sequence,omitempty"`
}

// key identifies a party within its role for set semantics.
func (p Party) key() string {
	return string(p.Role) + "|" + strings.ToLower(p.Name.String()) + "|" + strings.ToLower(p.Address.City)
}

// partySet accumulates parties in first-seen order without duplicates.
type partySet struct {
	items []Party
	seen  map[string]struct{}
}

func (s *partySet) add(p Party) bool {
	if p.Name.IsZero() {
		return false
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	k := p.key()
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	s.items = append(s.items, p)
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Citations
// ─────────────────────────────────────────────────────────────────────────────

// CitationKind separates patent citations from non-patent literature.
type CitationKind string

const (
	CitationPatent    CitationKind = "patent"
	CitationNonPatent CitationKind = "non-patent"
)

// CitedBy records who introduced a citation.
type CitedBy string

const (
	CitedByExaminer   CitedBy = "examiner"
	CitedByApplicant  CitedBy = "applicant"
	CitedByThirdParty CitedBy = "third-party"
	CitedByUnknown    CitedBy = ""
)

// ParseCitedBy maps the category text of the XML formats ("cited by
// examiner", "cited by applicant") to a CitedBy value.
func ParseCitedBy(s string) CitedBy {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "examiner"):
		return CitedByExaminer
	case strings.Contains(s, "applicant"):
		return CitedByApplicant
	case strings.Contains(s, "third"):
		return CitedByThirdParty
	default:
		return CitedByUnknown
	}
}

// Citation is a reference to prior art.  Patent citations carry a DocumentID;
// non-patent citations carry free text.
type Citation struct {
	Sequence   int          `json:"sequence"`
	Kind       CitationKind `json:"kind"`
	DocumentID *DocumentID  `json:"document_id,omitempty"`
	Text       string       `json:"text,omitempty"`
	CitedBy    CitedBy      `json:"cited_by,omitempty"`
}

//Personal.AI order the ending
