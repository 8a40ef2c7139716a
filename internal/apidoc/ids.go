package apidoc

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ID is an entity identifier taken from a caller. On the wire it is either
// a JSON integer or a string of decimal digits; null and "" decode to zero.
type ID uint

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return invalidf("identifier %s", b)
		}
		// an empty string stands for an omitted identifier
		if s == "" {
			*id = 0
			return nil
		}
	} else {
		s = string(b)
	}

	v, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = ID(v)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(id), 10), nil
}

// ParseID accepts ASCII decimal digits only: no sign, no exponent, no blanks.
func ParseID(s string) (uint, error) {
	if !isDecimal(s) {
		return 0, invalidf("identifier %q is not decimal", s)
	}
	v, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return 0, invalidf("identifier %q out of range", s)
	}
	return uint(v), nil
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// optional unwraps an optional identifier, treating zero as absent.
func optional(id *ID) (uint, bool) {
	if id == nil || *id == 0 {
		return 0, false
	}
	return uint(*id), true
}

// IDList is a batch of identifiers. It decodes from a JSON array of IDs or
// from one comma separated string.
type IDList []uint

func (l *IDList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return invalidf("identifier list %s", b)
		}
		ids, err := ParseIDList(s)
		if err != nil {
			return err
		}
		*l = ids
		return nil
	}

	var raw []ID
	if err := json.Unmarshal(b, &raw); err != nil {
		return invalidf("identifier list %s", b)
	}
	ids := make(IDList, len(raw))
	for i, id := range raw {
		ids[i] = uint(id)
	}
	*l = ids
	return nil
}

func ParseIDList(s string) (IDList, error) {
	if s == "" {
		return nil, invalidf("empty identifier list")
	}
	parts := strings.Split(s, ",")
	ids := make(IDList, 0, len(parts))
	for _, p := range parts {
		v, err := ParseID(p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, v)
	}
	return ids, nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
