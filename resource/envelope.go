package resource

import (
	"bytes"
	"encoding/json"

	"github.com/teranos/hirepanel/errors"
)

// Record is one row as the API returned it. Fields vary per resource.
type Record map[string]any

// ID returns the record's "id" field as text, or "" when absent
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// Meta is the pagination block of the envelope
type Meta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
	From        int `json:"from"`
	To          int `json:"to"`
}

// Envelope is the paginated list response
type Envelope struct {
	Data  []Record       `json:"data"`
	Meta  Meta           `json:"meta"`
	Links map[string]any `json:"links,omitempty"`
}

type rawEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  *rawMeta        `json:"meta"`
	Links map[string]any  `json:"links"`
}

// rawMeta tolerates numbers sent as strings or nulls
type rawMeta struct {
	CurrentPage json.Number `json:"current_page"`
	PerPage     json.Number `json:"per_page"`
	Total       json.Number `json:"total"`
	LastPage    json.Number `json:"last_page"`
	From        json.Number `json:"from"`
	To          json.Number `json:"to"`
}

func num(n json.Number) int {
	if n == "" {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return int(f)
	}
	return 0
}

// DecodeEnvelope parses body. A body that is not JSON fails with
// ErrInvalidResponse; a "data" member that is not an array yields an empty
// list. Missing meta fields are filled from requestedPage/perPage.
func DecodeEnvelope(body []byte, requestedPage, perPage int) (*Envelope, error) {
	var raw rawEnvelope
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to decode list response"), errors.ErrInvalidResponse)
	}

	env := &Envelope{Data: []Record{}, Links: raw.Links}

	trimmed := bytes.TrimSpace(raw.Data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		rows := []Record{}
		d := json.NewDecoder(bytes.NewReader(trimmed))
		d.UseNumber()
		if err := d.Decode(&rows); err == nil {
			for _, r := range rows {
				if r != nil {
					env.Data = append(env.Data, r)
				}
			}
		}
	}

	if raw.Meta != nil {
		env.Meta = Meta{
			CurrentPage: num(raw.Meta.CurrentPage),
			PerPage:     num(raw.Meta.PerPage),
			Total:       num(raw.Meta.Total),
			LastPage:    num(raw.Meta.LastPage),
			From:        num(raw.Meta.From),
			To:          num(raw.Meta.To),
		}
	}
	env.Meta.normalize(requestedPage, perPage, len(env.Data))
	return env, nil
}

func (m *Meta) normalize(requestedPage, perPage, rows int) {
	if m.PerPage <= 0 {
		m.PerPage = perPage
	}
	if m.CurrentPage <= 0 {
		m.CurrentPage = requestedPage
	}
	if m.CurrentPage <= 0 {
		m.CurrentPage = 1
	}
	if m.LastPage <= 0 {
		m.LastPage = LastPage(m.Total, m.PerPage)
	}
	if m.Total == 0 && rows > 0 && m.From == 0 {
		m.Total = rows
	}
}

// LastPage is ceil(total/perPage), never less than 1
func LastPage(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
