package output

import (
	"encoding/csv"
	"os"

	"supplier_leads_scraper/internal/lead"
)

func writeCSV(path string, records []lead.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(lead.Columns); err != nil {
		_ = f.Close()
		return err
	}
	for _, r := range records {
		if err := w.Write(r.Row()); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}
