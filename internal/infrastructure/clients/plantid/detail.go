package plantid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/smartgarden/backend/internal/domain/entities"
)

// StringOrStructured decodes detail fields the API returns either as plain text or as an
// object such as {"value": "...", "citation": "..."} or {"chemical": [...], "biological": [...]}.
type StringOrStructured struct {
	Text     string
	Citation string
	Sections map[string][]string
}

// UnmarshalJSON implements json.Unmarshaler
func (s *StringOrStructured) UnmarshalJSON(data []byte) error {
	*s = StringOrStructured{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		return json.Unmarshal(data, &s.Text)
	case '[':
		items, err := scalarList(data)
		if err != nil {
			return err
		}
		s.Text = strings.Join(items, "\n")
		return nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		for key, raw := range obj {
			switch key {
			case "value":
				v, err := scalarString(raw)
				if err != nil {
					return fmt.Errorf("detail value: %w", err)
				}
				s.Text = v
			case "citation":
				v, err := scalarString(raw)
				if err != nil {
					return fmt.Errorf("detail citation: %w", err)
				}
				s.Citation = v
			default:
				items, err := scalarList(raw)
				if err != nil {
					// unmodeled shapes are kept as compact JSON
					var compact bytes.Buffer
					if json.Compact(&compact, raw) != nil {
						continue
					}
					log.Debug().Str("section", key).Msg("detail section kept as raw JSON")
					items = []string{compact.String()}
				}
				if len(items) == 0 {
					continue
				}
				if s.Sections == nil {
					s.Sections = map[string][]string{}
				}
				s.Sections[key] = items
			}
		}
		return nil
	default:
		v, err := scalarString(data)
		if err != nil {
			return err
		}
		s.Text = v
		return nil
	}
}

// Normalize converts the wire value into the domain representation
func (s StringOrStructured) Normalize() entities.DetailText {
	out := entities.DetailText{
		Text:     strings.TrimSpace(s.Text),
		Citation: strings.TrimSpace(s.Citation),
	}
	if len(s.Sections) > 0 {
		out.Sections = make(map[string][]string, len(s.Sections))
		for k, v := range s.Sections {
			out.Sections[k] = append([]string(nil), v...)
		}
	}
	return out
}

// SectionNames returns the section keys in sorted order
func (s StringOrStructured) SectionNames() []string {
	names := make([]string, 0, len(s.Sections))
	for k := range s.Sections {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// stringList accepts a string, an array of strings, or null
type stringList []string

// UnmarshalJSON implements json.Unmarshaler
func (l *stringList) UnmarshalJSON(data []byte) error {
	items, err := scalarList(data)
	if err != nil {
		return err
	}
	*l = items
	return nil
}

func scalarList(data []byte) ([]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] != '[' {
		v, err := scalarString(data)
		if err != nil {
			return nil, err
		}
		if v == "" {
			return nil, nil
		}
		return []string{v}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	items := make([]string, 0, len(raw))
	for _, r := range raw {
		v, err := scalarString(r)
		if err != nil {
			return nil, err
		}
		if v != "" {
			items = append(items, v)
		}
	}
	return items, nil
}

func scalarString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	switch data[0] {
	case '"':
		var s string
		err := json.Unmarshal(data, &s)
		return s, err
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case '{', '[':
		return "", fmt.Errorf("unexpected nested value %s", truncate(data))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

func truncate(data []byte) string {
	if len(data) > 40 {
		return string(data[:40]) + "..."
	}
	return string(data)
}
