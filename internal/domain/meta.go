package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeFile  MessageType = "file"
)

// HasAttachment reports whether the type carries an uploaded resource in its meta.
func (t MessageType) HasAttachment() bool {
	return t == TypeImage || t == TypeFile
}

var ErrInvalidAttachment = errors.New("invalid attachment")

var validate = validator.New()

// Attachment points at an already uploaded resource. Same shape as the upload endpoint reply.
type Attachment struct {
	URL      string `json:"url" validate:"required,url"`
	Filename string `json:"filename,omitempty" validate:"max=255"`
	Size     int64  `json:"size,omitempty" validate:"gte=0"`
}

// Meta is the per-type payload of a message.
// Text carries nothing, image and file carry an Attachment,
// any other type keeps its raw JSON object in Extra.
type Meta struct {
	Attachment *Attachment
	Extra      json.RawMessage
}

func (m Meta) IsZero() bool {
	return m.Attachment == nil && len(m.Extra) == 0
}

func (m Meta) MarshalJSON() ([]byte, error) {
	switch {
	case m.Attachment != nil:
		return json.Marshal(m.Attachment)
	case len(m.Extra) > 0:
		return m.Extra, nil
	default:
		return []byte("{}"), nil
	}
}

// UnmarshalJSON keeps the raw bytes; ParseMeta resolves them once the type is known.
func (m *Meta) UnmarshalJSON(data []byte) error {
	m.Attachment = nil
	m.Extra = nil
	if isEmptyJSON(data) {
		return nil
	}
	m.Extra = append(json.RawMessage(nil), data...)
	return nil
}

func (m Meta) clone() Meta {
	out := Meta{}
	if m.Attachment != nil {
		a := *m.Attachment
		out.Attachment = &a
	}
	if m.Extra != nil {
		out.Extra = append(json.RawMessage(nil), m.Extra...)
	}
	return out
}

// ParseMeta turns a raw meta object into the variant declared by the message type.
func ParseMeta(t MessageType, raw json.RawMessage) (Meta, error) {
	switch {
	case t == TypeText:
		return Meta{}, nil
	case t.HasAttachment():
		if isEmptyJSON(raw) {
			return Meta{}, fmt.Errorf("%w: url required", ErrInvalidAttachment)
		}
		var a Attachment
		if err := json.Unmarshal(raw, &a); err != nil {
			return Meta{}, fmt.Errorf("%w: %v", ErrInvalidAttachment, err)
		}
		if err := validate.Struct(a); err != nil {
			return Meta{}, fmt.Errorf("%w: %v", ErrInvalidAttachment, err)
		}
		return Meta{Attachment: &a}, nil
	default:
		if isEmptyJSON(raw) {
			return Meta{}, nil
		}
		trimmed := bytes.TrimSpace(raw)
		if !json.Valid(trimmed) || trimmed[0] != '{' {
			return Meta{}, fmt.Errorf("meta must be a JSON object")
		}
		return Meta{Extra: append(json.RawMessage(nil), trimmed...)}, nil
	}
}

func isEmptyJSON(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}"))
}
