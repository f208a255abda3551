package models

import "fmt"

// MealType is an enumerated slot in a day. Snacks is part of the canonical set;
// older three-meal data simply never uses it.
type MealType string

const (
	MealBreakfast MealType = "Breakfast"
	MealLunch     MealType = "Lunch"
	MealSnacks    MealType = "Snacks"
	MealDinner    MealType = "Dinner"
)

// MealTypes lists all meal slots in day order.
func MealTypes() []MealType {
	return []MealType{MealBreakfast, MealLunch, MealSnacks, MealDinner}
}

// ParseMealType validates a client-supplied meal type string.
func ParseMealType(s string) (MealType, error) {
	switch MealType(s) {
	case MealBreakfast, MealLunch, MealSnacks, MealDinner:
		return MealType(s), nil
	}
	return "", fmt.Errorf("invalid meal type %q", s)
}

func (m MealType) String() string { return string(m) }
