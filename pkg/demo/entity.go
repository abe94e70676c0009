package demo

import (
	"encoding/json"
)

const (
	MaxEdicts = 2048
	// Entity ids above this end an entity update list.
	entitySentinel = 9999
	// Width of an entity handle serial number.
	serialNumBits = 10
)

type Vector struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Prop is a decoded property value. Value holds int32, int64, float32,
// Vector, string or []any for arrays.
type Prop struct {
	Def   *SendProp
	Value any
}

// Entity is one networked object. Props keep the order they were first seen in.
type Entity struct {
	ID        int
	ClassID   int
	SerialNum int
	props     []Prop
	index     map[string]int
}

func newEntity(id, classID, serial int) *Entity {
	return &Entity{
		ID:        id,
		ClassID:   classID,
		SerialNum: serial,
		index:     map[string]int{},
	}
}

// set replaces the value of a known prop or appends a new one.
func (e *Entity) set(def *SendProp, v any) {
	if i, ok := e.index[def.Name]; ok {
		e.props[i] = Prop{Def: def, Value: v}
		return
	}
	e.index[def.Name] = len(e.props)
	e.props = append(e.props, Prop{Def: def, Value: v})
}

func (e *Entity) resetProps() {
	e.props = e.props[:0]
	e.index = map[string]int{}
}

func (e *Entity) Props() []Prop {
	return e.props
}

func (e *Entity) Prop(name string) (any, bool) {
	i, ok := e.index[name]
	if !ok {
		return nil, false
	}
	return e.props[i].Value, true
}

func (e *Entity) Int(name string) (int32, bool) {
	v, ok := e.Prop(name)
	if !ok {
		return 0, false
	}
	i, ok := v.(int32)
	return i, ok
}

func (e *Entity) Float(name string) (float32, bool) {
	v, ok := e.Prop(name)
	if !ok {
		return 0, false
	}
	f, ok := v.(float32)
	return f, ok
}

func (e *Entity) Vector(name string) (Vector, bool) {
	v, ok := e.Prop(name)
	if !ok {
		return Vector{}, false
	}
	vec, ok := v.(Vector)
	return vec, ok
}

// clone returns a copy safe to hand out while the parse keeps mutating e.
func (e *Entity) clone() *Entity {
	c := newEntity(e.ID, e.ClassID, e.SerialNum)
	c.props = append(c.props, e.props...)
	for k, v := range e.index {
		c.index[k] = v
	}
	return c
}

func (e *Entity) MarshalJSON() ([]byte, error) {
	props := make(map[string]any, len(e.props))
	for _, p := range e.props {
		props[p.Def.Name] = p.Value
	}
	return json.Marshal(struct {
		ID        int            `json:"id"`
		ClassID   int            `json:"classId"`
		SerialNum int            `json:"serial"`
		Props     map[string]any `json:"props"`
	}{e.ID, e.ClassID, e.SerialNum, props})
}
