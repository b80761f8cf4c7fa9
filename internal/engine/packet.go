package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Field is one measurement of an observation packet.
type Field struct {
	Name  string
	Value interface{}
}

// Packet is an observation record. Fields keep the order they were added
// in, which for decoded packets is the order of the JSON object keys.
type Packet struct {
	fields []Field
	index  map[string]int
}

// NewPacket builds a packet from fields, later duplicates overwriting earlier ones.
func NewPacket(fields ...Field) *Packet {
	p := &Packet{}
	for _, f := range fields {
		p.Set(f.Name, f.Value)
	}
	return p
}

// Set stores value under name. A new name is appended; an existing name
// keeps its position.
func (p *Packet) Set(name string, value interface{}) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[name]; ok {
		p.fields[i].Value = value
		return
	}
	p.index[name] = len(p.fields)
	p.fields = append(p.fields, Field{Name: name, Value: value})
}

// Get returns the value stored under name.
func (p *Packet) Get(name string) (interface{}, bool) {
	if p == nil {
		return nil, false
	}
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.fields[i].Value, true
}

// Len returns the number of fields.
func (p *Packet) Len() int {
	if p == nil {
		return 0
	}
	return len(p.fields)
}

// Fields returns a copy of the fields in packet order.
func (p *Packet) Fields() []Field {
	if p == nil {
		return nil
	}
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// UnmarshalJSON decodes a flat JSON object. Numbers are kept as json.Number
// so their text reaches the sender unchanged.
func (p *Packet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read packet: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("packet must be a JSON object, got %v", tok)
	}

	*p = Packet{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read packet key: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected packet key %v", tok)
		}

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to read value of %q: %w", name, err)
		}
		switch value.(type) {
		case map[string]interface{}, []interface{}:
			return fmt.Errorf("value of %q is not a scalar", name)
		}
		p.Set(name, value)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to read packet end: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after packet")
	}
	return nil
}

// MarshalJSON encodes the packet as a JSON object in field order.
func (p *Packet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParsePacket decodes a single JSON object into a packet.
func ParsePacket(data []byte) (*Packet, error) {
	p := &Packet{}
	if err := p.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return p, nil
}
