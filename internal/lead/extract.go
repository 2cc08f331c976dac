package lead

import "strings"

// Extract maps every company in state to a record, in page order. Missing
// names and phones become Placeholder and the enrichment columns stay empty.
func Extract(state PageState, rep string) []Record {
	records := make([]Record, 0, len(state.Companies))
	for _, c := range state.Companies {
		records = append(records, Record{
			Company:       orPlaceholder(c.Name.String()),
			Address:       AssembleAddress(c.Address),
			BusinessPhone: orPlaceholder(c.PrimaryPhone.String()),
			Rep:           rep,
		})
	}
	return records
}

// AssembleAddress joins the non-empty parts of a in street-to-country order.
func AssembleAddress(a *Address) string {
	if a == nil {
		return ""
	}

	parts := make([]string, 0, 6)
	for _, p := range []Text{a.Address1, a.Address2, a.City, a.State, a.Zip, a.Country} {
		if s := p.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
