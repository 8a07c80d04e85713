package transfer

import (
	"time"

	"github.com/dukerupert/kinvault/internal/kind"
	"github.com/dukerupert/kinvault/internal/model"
)

// Document is the export format. Field values are plaintext.
type Document struct {
	ExportedAt time.Time     `json:"exportedAt"`
	UserID     int64         `json:"userId"`
	FamilyData []FamilyEntry `json:"familyData"`
}

// FamilyEntry is one member with every record under it.
type FamilyEntry struct {
	Member         model.FamilyMember `json:"member"`
	Documents      []model.Record     `json:"documents"`
	Accounts       []model.Record     `json:"accounts"`
	InsuranceLoans []model.Record     `json:"insurances_loans"`
	Lockers        []model.Record     `json:"lockers"`
	Properties     []model.Record     `json:"properties"`
}

// Rows returns a pointer to the entry's slice for k, or nil for an unknown kind.
func (e *FamilyEntry) Rows(k kind.Kind) *[]model.Record {
	switch k {
	case kind.Documents:
		return &e.Documents
	case kind.Accounts:
		return &e.Accounts
	case kind.InsuranceLoans:
		return &e.InsuranceLoans
	case kind.Lockers:
		return &e.Lockers
	case kind.Properties:
		return &e.Properties
	}
	return nil
}

// Result counts what an import created.
type Result struct {
	Members int               `json:"members"`
	Skipped int               `json:"skipped"`
	Records map[kind.Kind]int `json:"-"`
}

// RecordTotal is the number of records created across all kinds.
func (r Result) RecordTotal() int {
	n := 0
	for _, c := range r.Records {
		n += c
	}
	return n
}
