package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest marks an exam request rejected before generation.
var ErrInvalidRequest = errors.New("invalid exam request")

type QuestionType string

const (
	TypeSingle       QuestionType = "單題"
	TypeGroup        QuestionType = "題組"
	TypeMixedGroup   QuestionType = "混合題組"
	DifficultySimple Difficulty   = "簡單"
	DifficultyMedium Difficulty   = "中等"
	DifficultyHard   Difficulty   = "困難"
)

type Difficulty string

var (
	QuestionTypes = []QuestionType{TypeSingle, TypeGroup, TypeMixedGroup}
	Difficulties  = []Difficulty{DifficultySimple, DifficultyMedium, DifficultyHard}
)

// IsGroup reports whether the type carries a shared reading passage.
func (t QuestionType) IsGroup() bool {
	return t == TypeGroup || t == TypeMixedGroup
}

type RequirementMode string

const (
	ModeFlat RequirementMode = "flat"
	ModeGrid RequirementMode = "grid"
)

// FlatCounts is the simple/medium/hard triple.
type FlatCounts struct {
	Simple int `json:"simple" yaml:"simple"`
	Medium int `json:"medium" yaml:"medium"`
	Hard   int `json:"hard" yaml:"hard"`
}

func (f FlatCounts) Total() int {
	return f.Simple + f.Medium + f.Hard
}

// GridCount is one {question type x difficulty} cell.
type GridCount struct {
	Type       QuestionType `json:"type" yaml:"type"`
	Difficulty Difficulty   `json:"difficulty" yaml:"difficulty"`
	Count      int          `json:"count" yaml:"count"`
}

// Requirement is either a flat triple or a grid of cells, selected by Mode.
type Requirement struct {
	Mode RequirementMode `json:"mode" yaml:"mode"`
	Flat FlatCounts      `json:"flat" yaml:"flat"`
	Grid []GridCount     `json:"grid,omitempty" yaml:"grid,omitempty"`
}

// NewFlatRequirement builds a flat requirement.
func NewFlatRequirement(simple, medium, hard int) Requirement {
	return Requirement{Mode: ModeFlat, Flat: FlatCounts{Simple: simple, Medium: medium, Hard: hard}}
}

// NewGridRequirement builds a grid requirement from its cells.
func NewGridRequirement(cells ...GridCount) Requirement {
	return Requirement{Mode: ModeGrid, Grid: cells}
}

// Total is the number of questions requested.
func (r Requirement) Total() int {
	if r.Mode == ModeGrid {
		total := 0
		for _, c := range r.Grid {
			if c.Count > 0 {
				total += c.Count
			}
		}
		return total
	}
	return r.Flat.Total()
}

// ExamRequest is what a user submits from the exam settings form
type ExamRequest struct {
	Labels             []string    `json:"labels"`
	Requirement        Requirement `json:"requirement"`
	CustomInstructions string      `json:"custom_instructions,omitempty"`
}

// Scope joins the labels the way the exam header shows them.
func (r ExamRequest) Scope() string {
	return strings.Join(r.Labels, "、")
}

// Validate rejects requests the form would not submit.
func (r ExamRequest) Validate() error {
	if len(r.Labels) == 0 {
		return fmt.Errorf("%w: 請至少選擇一篇課文", ErrInvalidRequest)
	}
	switch r.Requirement.Mode {
	case ModeFlat, ModeGrid, "":
	default:
		return fmt.Errorf("%w: unknown requirement mode %q", ErrInvalidRequest, r.Requirement.Mode)
	}
	if r.Requirement.Mode != ModeGrid {
		f := r.Requirement.Flat
		if f.Simple < 0 || f.Medium < 0 || f.Hard < 0 {
			return fmt.Errorf("%w: 題數不能為負數", ErrInvalidRequest)
		}
	}
	if r.Requirement.Total() == 0 && strings.TrimSpace(r.CustomInstructions) == "" {
		return fmt.Errorf("%w: 總題數不能為 0", ErrInvalidRequest)
	}
	return nil
}
