package net

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"LocalBoard/internal/state"

	"github.com/tidwall/gjson"
)

// ErrMalformed marks an inbound message that cannot be turned into an
// operation.
var ErrMalformed = errors.New("malformed message")

// MessageType discriminates sync messages. An absent type means a stroke.
type MessageType string

const (
	TypeStroke MessageType = "stroke"
	TypeClear  MessageType = "clear"
)

// MaxWidth caps inbound stroke widths.
const MaxWidth = 200.0

// Message is one sync payload. Strokes travel as
// {points:[{x,y}...], color, width} plus the optional id, origin and eraser
// fields; a clear carries owner_id ("all" clears everyone).
type Message struct {
	Type    MessageType   `json:"type,omitempty"`
	ID      string        `json:"id,omitempty"`
	Origin  string        `json:"origin,omitempty"`
	Points  []state.Point `json:"points,omitempty"`
	Color   string        `json:"color,omitempty"`
	Width   float64       `json:"width,omitempty"`
	Eraser  bool          `json:"eraser,omitempty"`
	OwnerID string        `json:"owner_id,omitempty"`
}

// StrokeMessage wraps a stroke for broadcast. The local sequence number is
// not sent: every participant orders by its own arrival order.
func StrokeMessage(s state.Stroke) Message {
	return Message{
		Type:   TypeStroke,
		ID:     s.ID,
		Origin: s.Origin,
		Points: s.Points,
		Color:  s.Color,
		Width:  s.Width,
		Eraser: s.IsEraser,
	}
}

// ClearMessage asks participants to drop the strokes of owner.
func ClearMessage(owner string) Message {
	return Message{Type: TypeClear, OwnerID: owner}
}

// Stroke converts a stroke message into an unsequenced stroke. Payloads from
// relays that do not assign ids get a fresh one.
func (m Message) Stroke() (state.Stroke, error) {
	if m.Type != TypeStroke && m.Type != "" {
		return state.Stroke{}, fmt.Errorf("%w: %q is not a stroke", ErrMalformed, m.Type)
	}
	id := m.ID
	if id == "" {
		id = state.NewID()
	}
	s := state.Stroke{
		ID:       id,
		Points:   append([]state.Point(nil), m.Points...),
		Color:    m.Color,
		Width:    m.Width,
		IsEraser: m.Eraser,
		Origin:   m.Origin,
	}
	if err := s.Validate(); err != nil {
		return state.Stroke{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s, nil
}

// EncodeMessage renders m as JSON.
func EncodeMessage(m Message) ([]byte, error) {
	if m.Type == "" {
		m.Type = TypeStroke
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// DecodeMessage parses a sync payload leniently: missing or mistyped style
// fields fall back to defaults, unparsable points are skipped. Only a payload
// with no usable point, an unknown type, or invalid JSON is rejected.
func DecodeMessage(data []byte) (Message, error) {
	if !gjson.ValidBytes(data) {
		return Message{}, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Message{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	m := Message{
		Type:   MessageType(root.Get("type").String()),
		ID:     root.Get("id").String(),
		Origin: root.Get("origin").String(),
	}
	switch m.Type {
	case "", TypeStroke:
		m.Type = TypeStroke
	case TypeClear:
		m.OwnerID = root.Get("owner_id").String()
		if m.OwnerID == "" {
			m.OwnerID = state.OriginAll
		}
		return m, nil
	default:
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, m.Type)
	}

	points := root.Get("points")
	if !points.IsArray() {
		return Message{}, fmt.Errorf("%w: points missing", ErrMalformed)
	}
	points.ForEach(func(_, p gjson.Result) bool {
		x, okX := number(p.Get("x"))
		y, okY := number(p.Get("y"))
		if pt := (state.Point{X: x, Y: y}); okX && okY && pt.Valid() {
			m.Points = append(m.Points, pt)
		}
		return true
	})
	if len(m.Points) == 0 {
		return Message{}, fmt.Errorf("%w: no valid points", ErrMalformed)
	}

	m.Color = root.Get("color").String()
	if m.Color == "" {
		m.Color = state.DefaultColor
	}
	switch w, ok := number(root.Get("width")); {
	case !ok || w <= 0:
		m.Width = state.DefaultWidth
	case w > MaxWidth:
		m.Width = MaxWidth
	default:
		m.Width = w
	}
	m.Eraser = root.Get("eraser").Bool()
	return m, nil
}

func number(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		v, err := strconv.ParseFloat(r.Str, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	}
	return 0, false
}
