// Package lead holds the lead record, its identity key and the mapping from the
// listing page state to records.
package lead

import (
	"fmt"
	"strings"
)

// Placeholder stands in for a missing company name or phone number.
const Placeholder = "N/A"

// Columns is the output header, in order.
var Columns = []string{
	"company",
	"address",
	"business_phone",
	"cortera_score",
	"avg_mo_cortera_balance",
	"rep",
	"industry_category",
	"notes",
}

// Record is one normalized supplier listing.
type Record struct {
	Company             string
	Address             string
	BusinessPhone       string
	CorteraScore        string
	AvgMoCorteraBalance string
	Rep                 string
	IndustryCategory    string
	Notes               string
}

// Key identifies a lead across runs.
type Key struct {
	Company string
	Phone   string
}

// Key returns the identity key of r.
func (r Record) Key() Key {
	return Key{Company: r.Company, Phone: r.BusinessPhone}
}

// Row returns the record's cells in Columns order.
func (r Record) Row() []string {
	return []string{
		r.Company,
		r.Address,
		r.BusinessPhone,
		r.CorteraScore,
		r.AvgMoCorteraBalance,
		r.Rep,
		r.IndustryCategory,
		r.Notes,
	}
}

// Header maps column names to their position in a parsed header row.
type Header map[string]int

// ParseHeader indexes a header row. Column names are matched case-insensitively
// with surrounding space removed. The identity columns are required.
func ParseHeader(row []string) (Header, error) {
	h := make(Header, len(row))
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	for _, required := range []string{"company", "business_phone"} {
		if _, ok := h[required]; !ok {
			return nil, fmt.Errorf("header missing column %q", required)
		}
	}
	return h, nil
}

func (h Header) cell(row []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Record builds a record from a data row laid out as h describes.
func (h Header) Record(row []string) Record {
	return Record{
		Company:             h.cell(row, "company"),
		Address:             h.cell(row, "address"),
		BusinessPhone:       h.cell(row, "business_phone"),
		CorteraScore:        h.cell(row, "cortera_score"),
		AvgMoCorteraBalance: h.cell(row, "avg_mo_cortera_balance"),
		Rep:                 h.cell(row, "rep"),
		IndustryCategory:    h.cell(row, "industry_category"),
		Notes:               h.cell(row, "notes"),
	}
}
