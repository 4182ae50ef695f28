package model

import (
	"errors"
	"fmt"
)

var errIndexOutOfRange = errors.New("form schema: field index out of range")

// AddField appends a default definition of the given kind and assigns the
// next free generated name. Returns the index of the new field.
func (s *FormSchema) AddField(t FieldType) int {
	def := DefaultField(t)
	def.Name = s.nextName()
	s.Fields = append(s.Fields, def)
	return len(s.Fields) - 1
}

// ReplaceField applies a whole-field update at index i (see Update).
func (s *FormSchema) ReplaceField(i int, patch FieldDefinition) error {
	if i < 0 || i >= len(s.Fields) {
		return errIndexOutOfRange
	}
	s.Fields[i] = Update(s.Fields[i], patch)
	return nil
}

// RemoveField deletes the field at index i, shifting later fields down.
func (s *FormSchema) RemoveField(i int) error {
	if i < 0 || i >= len(s.Fields) {
		return errIndexOutOfRange
	}
	s.Fields = append(s.Fields[:i], s.Fields[i+1:]...)
	return nil
}

// MoveField relocates the field at from to position to. Reordering is purely
// positional, so no reference graph exists and no cycles are possible.
func (s *FormSchema) MoveField(from, to int) error {
	if from < 0 || from >= len(s.Fields) || to < 0 || to >= len(s.Fields) {
		return errIndexOutOfRange
	}
	if from == to {
		return nil
	}
	field := s.Fields[from]
	rest := append(s.Fields[:from:from], s.Fields[from+1:]...)
	s.Fields = append(rest[:to:to], append([]FieldDefinition{field}, rest[to:]...)...)
	return nil
}

func (s *FormSchema) nextName() string {
	taken := make(map[string]struct{}, len(s.Fields))
	for _, field := range s.Fields {
		taken[field.Name] = struct{}{}
	}
	for i := len(s.Fields) + 1; ; i++ {
		candidate := fmt.Sprintf("field_%d", i)
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
	}
}
