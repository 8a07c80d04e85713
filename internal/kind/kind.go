// Package kind describes the child record categories stored under a family
// member. Each Kind has one declarative Descriptor; the record store, the
// encryption policy and the export format are all driven from it.
package kind

import (
	"fmt"
	"strings"
)

type Kind int

const (
	Documents Kind = iota + 1
	Accounts
	InsuranceLoans
	Lockers
	Properties
)

// Field is one column of a record table.
type Field struct {
	Name      string
	Numeric   bool
	Sensitive bool
}

// Descriptor declares the storage layout of a Kind.
type Descriptor struct {
	Kind Kind
	// Name is the table name and the key used in export documents.
	Name   string
	Label  string
	Fields []Field
}

var descriptors = map[Kind]Descriptor{
	Documents: {
		Kind:  Documents,
		Name:  "documents",
		Label: "Documents",
		Fields: []Field{
			{Name: "type"},
			{Name: "number", Sensitive: true},
			{Name: "issue_date"},
			{Name: "expiry_date"},
			{Name: "authority"},
			{Name: "file_ref"},
			{Name: "notes"},
		},
	},
	Accounts: {
		Kind:  Accounts,
		Name:  "accounts",
		Label: "Accounts & Investments",
		Fields: []Field{
			{Name: "type"},
			{Name: "institution"},
			{Name: "branch"},
			{Name: "account_number", Sensitive: true},
			{Name: "nickname"},
			{Name: "holder_type"},
			{Name: "joint_holders"},
			{Name: "ifsc"},
			{Name: "open_date"},
			{Name: "maturity_date"},
			{Name: "value", Numeric: true},
			{Name: "nominee"},
			{Name: "notes"},
		},
	},
	InsuranceLoans: {
		Kind:  InsuranceLoans,
		Name:  "insurances_loans",
		Label: "Insurances & Loans",
		Fields: []Field{
			{Name: "category"},
			{Name: "company"},
			{Name: "policy_loan_number", Sensitive: true},
			{Name: "product_name"},
			{Name: "amount", Numeric: true},
			{Name: "premium_emi", Numeric: true},
			{Name: "frequency"},
			{Name: "start_date"},
			{Name: "end_date"},
			{Name: "nominee"},
			{Name: "linked_asset"},
			{Name: "status"},
			{Name: "notes"},
		},
	},
	Lockers: {
		Kind:  Lockers,
		Name:  "lockers",
		Label: "Lockers",
		Fields: []Field{
			{Name: "bank_name"},
			{Name: "branch"},
			{Name: "locker_number", Sensitive: true},
			{Name: "joint_holders"},
			{Name: "nominee"},
			{Name: "notes"},
		},
	},
	Properties: {
		Kind:  Properties,
		Name:  "properties",
		Label: "Properties",
		Fields: []Field{
			{Name: "title"},
			{Name: "address", Sensitive: true},
			{Name: "city"},
			{Name: "state"},
			{Name: "property_type"},
			{Name: "linked_docs"},
			{Name: "ownership_type"},
			{Name: "co_owners"},
			{Name: "notes"},
		},
	},
}

// All returns every Kind in export order.
func All() []Kind {
	return []Kind{Documents, Accounts, InsuranceLoans, Lockers, Properties}
}

// Describe returns the descriptor for k.
func Describe(k Kind) (Descriptor, bool) {
	d, ok := descriptors[k]
	return d, ok
}

func (k Kind) String() string {
	if d, ok := descriptors[k]; ok {
		return d.Name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Parse resolves a table name or a common alias ("insurance-loans",
// "insuranceLoans") to a Kind.
func Parse(s string) (Kind, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(s)))
	switch norm {
	case "documents", "document", "docs":
		return Documents, nil
	case "accounts", "account":
		return Accounts, nil
	case "insurances_loans", "insuranceloans", "insurance_loans", "insurance", "loans":
		return InsuranceLoans, nil
	case "lockers", "locker":
		return Lockers, nil
	case "properties", "property":
		return Properties, nil
	}
	return 0, fmt.Errorf("unknown record kind %q", s)
}

// FieldNames returns the ordered column names of the descriptor.
func (d Descriptor) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// SensitiveFields returns the names of the fields stored encrypted.
func (d Descriptor) SensitiveFields() []string {
	var names []string
	for _, f := range d.Fields {
		if f.Sensitive {
			names = append(names, f.Name)
		}
	}
	return names
}

// Field looks up a field by name.
func (d Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
