package session

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// redactObject builds the public view of a stored payload: a copy of the
// top-level JSON object with the private fields removed. Kept fields
// come through byte for byte, in their stored order. Any payload that is
// not a JSON object, a literal null included, is rejected.
func redactObject(raw []byte) (PublicView, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("payload is not a JSON object")
	}

	var out bytes.Buffer
	out.WriteByte('{')
	wrote := false
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("non-string object key")
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		if isPrivateField(key) {
			continue
		}
		if wrote {
			out.WriteByte(',')
		}
		wrote = true
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		out.Write(keyJSON)
		out.WriteByte(':')
		out.Write(val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	out.WriteByte('}')

	return PublicView(out.Bytes()), nil
}

func isPrivateField(key string) bool {
	for _, p := range privateFields {
		if key == p {
			return true
		}
	}
	return false
}
