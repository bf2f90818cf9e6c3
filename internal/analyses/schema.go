package analyses

import (
	"errors"
	"fmt"
)

// AnalysisResult is the validated output of a document analysis. Field names
// mirror the JSON schema the model is instructed to produce.
type AnalysisResult struct {
	Persona               string        `json:"persona"`
	TargetAction          string        `json:"target_action"`
	ProcessMap            []ProcessStep `json:"process_map"`
	EASTAnalysis          EASTAnalysis  `json:"east_analysis"`
	Improvements          []string      `json:"improvements"`
	AdditionalTouchpoints []string      `json:"additional_touchpoints"`
}

// ProcessStep is one ordered step of the behavior process map.
type ProcessStep struct {
	Step        string `json:"step"`
	Description string `json:"description"`
	Touchpoint  string `json:"touchpoint"`
}

// EASTAnalysis holds the four EAST framework dimensions.
type EASTAnalysis struct {
	Easy       string `json:"easy"`
	Attractive string `json:"attractive"`
	Social     string `json:"social"`
	Timely     string `json:"timely"`
}

// Validate checks the all-or-nothing schema constraints. A result either
// passes completely or is rejected; partial results are never accepted.
func (r *AnalysisResult) Validate() error {
	if r == nil {
		return errors.New("analysis result is nil")
	}
	if r.Persona == "" {
		return errors.New("persona is required")
	}
	if r.TargetAction == "" {
		return errors.New("target_action is required")
	}
	if r.ProcessMap == nil {
		return errors.New("process_map is required")
	}
	for i, step := range r.ProcessMap {
		if step.Step == "" {
			return fmt.Errorf("process_map[%d].step is required", i)
		}
		if step.Description == "" {
			return fmt.Errorf("process_map[%d].description is required", i)
		}
		if step.Touchpoint == "" {
			return fmt.Errorf("process_map[%d].touchpoint is required", i)
		}
	}
	if r.EASTAnalysis.Easy == "" {
		return errors.New("east_analysis.easy is required")
	}
	if r.EASTAnalysis.Attractive == "" {
		return errors.New("east_analysis.attractive is required")
	}
	if r.EASTAnalysis.Social == "" {
		return errors.New("east_analysis.social is required")
	}
	if r.EASTAnalysis.Timely == "" {
		return errors.New("east_analysis.timely is required")
	}
	if r.Improvements == nil {
		return errors.New("improvements is required")
	}
	if r.AdditionalTouchpoints == nil {
		return errors.New("additional_touchpoints is required")
	}
	return nil
}
