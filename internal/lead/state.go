package lead

import (
	"bytes"
	"encoding/json"
	"strings"
)

// PageState is the part of the listing page's pageProps the scraper reads.
type PageState struct {
	Companies []Company `json:"companies"`
}

// Company is one entry of the companies array.
type Company struct {
	Name         Text     `json:"name"`
	PrimaryPhone Text     `json:"primaryPhone"`
	Address      *Address `json:"address"`
}

// Address is a company's postal address.
type Address struct {
	Address1 Text `json:"address1"`
	Address2 Text `json:"address2"`
	City     Text `json:"city"`
	State    Text `json:"state"`
	Zip      Text `json:"zip"`
	Country  Text `json:"country"`
}

// UnmarshalJSON implements json.Unmarshaler. Anything but an object reads as
// an empty address.
func (a *Address) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*a = Address{}
		return nil
	}
	type plain Address
	return json.Unmarshal(data, (*plain)(a))
}

// Text is a JSON scalar read as a string. Numbers keep their literal form,
// null and absent fields are empty.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		*t = ""
	default:
		*t = Text(data)
	}
	return nil
}

// String returns t with surrounding whitespace removed.
func (t Text) String() string {
	return strings.TrimSpace(string(t))
}

// ParseState decodes a serialized pageProps object.
func ParseState(raw []byte) (PageState, error) {
	var s PageState
	if err := json.Unmarshal(raw, &s); err != nil {
		return PageState{}, err
	}
	return s, nil
}
