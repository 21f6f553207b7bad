package mercadopago

import (
	"bytes"
	"encoding/json"
)

// ID tolerates the provider's habit of sending the same identifier as a JSON
// number in some payloads and a string in others.
type ID string

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if string(b) == "null" {
		*id = ""
		return nil
	}
	*id = ID(b)
	return nil
}
