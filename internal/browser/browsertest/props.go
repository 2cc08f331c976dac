package browsertest

// Company is a listing entry for Props.
type Company struct {
	Name  string
	Phone string
	City  string
}

// Props builds a pageProps object listing companies the way the site does.
func Props(companies ...Company) map[string]any {
	list := make([]map[string]any, 0, len(companies))
	for _, c := range companies {
		entry := map[string]any{"name": c.Name}
		if c.Phone != "" {
			entry["primaryPhone"] = c.Phone
		}
		if c.City != "" {
			entry["address"] = map[string]any{"city": c.City}
		}
		list = append(list, entry)
	}
	return map[string]any{"companies": list}
}
