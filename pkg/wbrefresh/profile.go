package wbrefresh

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StepKind identifies what a workflow step does.
type StepKind string

const (
	// StepRefreshConnections refreshes every external connection in order.
	StepRefreshConnections StepKind = "refresh-connections"
	// StepPivotRefresh refreshes one pivot table.
	StepPivotRefresh StepKind = "pivot-refresh"
	// StepDateFilter replaces the visible items of a pivot field with its
	// non-blank items.
	StepDateFilter StepKind = "date-filter"
	// StepRecalculate recalculates, falling back to the workbook level.
	StepRecalculate StepKind = "recalculate"
)

// Step is one entry of a workflow.
type Step struct {
	Kind StepKind `yaml:"kind"`
	// Label names the step in console output and in the report.
	Label        string `yaml:"label,omitempty"`
	Sheet        string `yaml:"sheet,omitempty"`
	Pivot        string `yaml:"pivot,omitempty"`
	Field        string `yaml:"field,omitempty"`
	ClearFilters bool   `yaml:"clear_filters,omitempty"`
	RefreshCache bool   `yaml:"refresh_cache,omitempty"`
	RefreshTable bool   `yaml:"refresh_table,omitempty"`
	WaitAsync    bool   `yaml:"wait_async,omitempty"`
}

// Profile is the fixed ordered step list of one workflow.
type Profile struct {
	Name string `yaml:"name"`
	// Tag prefixes every console line of the run.
	Tag string `yaml:"tag"`
	// Strict makes a failed recoverable step fail the whole run.
	Strict bool   `yaml:"strict,omitempty"`
	Steps  []Step `yaml:"steps"`
}

// Circana returns the workflow for the Circana flat-file workbook.
func Circana() Profile {
	return Profile{
		Name: "circana",
		Tag:  "Circana",
		Steps: []Step{
			{Kind: StepRefreshConnections, Label: "connections"},
			{
				Kind:         StepDateFilter,
				Label:        "Dates",
				Sheet:        "Dates",
				Pivot:        "PivotTable2",
				Field:        "[TSM].[Date].[Date]",
				ClearFilters: true,
			},
			{
				Kind:         StepPivotRefresh,
				Label:        "Nespresso pivot",
				Sheet:        "Nespresso",
				Pivot:        "PivotTable1",
				RefreshTable: true,
				WaitAsync:    true,
			},
			{Kind: StepRecalculate, Label: "calculation"},
		},
	}
}

// NPD returns the workflow for the NPD workbook.
func NPD() Profile {
	return Profile{
		Name: "npd",
		Tag:  "NPD",
		Steps: []Step{
			{
				Kind:         StepPivotRefresh,
				Label:        "Pivot table",
				Sheet:        "Actuals",
				Pivot:        "PivotTable1",
				RefreshCache: true,
				WaitAsync:    true,
			},
			{
				Kind:  StepDateFilter,
				Label: "Dates",
				Sheet: "Actuals",
				Pivot: "PivotTable1",
				Field: "[Table1].[Weeks].[Weeks]",
			},
			{
				Kind:         StepPivotRefresh,
				Label:        "Power BI table",
				Sheet:        "For Power BI",
				Pivot:        "PivotTable2",
				RefreshCache: true,
				RefreshTable: true,
			},
		},
	}
}

// BuiltinProfile returns a built-in profile by name.
func BuiltinProfile(name string) (Profile, bool) {
	switch name {
	case "circana":
		return Circana(), true
	case "npd":
		return NPD(), true
	}
	return Profile{}, false
}

// LoadProfile reads a profile from a YAML file.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// ParseProfile decodes and validates a YAML profile. Unknown keys are
// rejected.
func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks that every step carries the targets its kind needs.
func (p Profile) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(p.Steps) == 0 {
		errs = append(errs, errors.New("at least one step is required"))
	}
	for i, s := range p.Steps {
		switch s.Kind {
		case StepRefreshConnections, StepRecalculate:
		case StepPivotRefresh:
			if s.Sheet == "" || s.Pivot == "" {
				errs = append(errs, fmt.Errorf("step %d: %s needs sheet and pivot", i+1, s.Kind))
			}
			if !s.RefreshCache && !s.RefreshTable {
				errs = append(errs, fmt.Errorf("step %d: %s needs refresh_cache or refresh_table", i+1, s.Kind))
			}
		case StepDateFilter:
			if s.Sheet == "" || s.Pivot == "" || s.Field == "" {
				errs = append(errs, fmt.Errorf("step %d: %s needs sheet, pivot and field", i+1, s.Kind))
			}
		default:
			errs = append(errs, fmt.Errorf("step %d: unknown kind %q", i+1, s.Kind))
		}
	}
	return errors.Join(errs...)
}

func (s Step) name() string {
	if s.Label != "" {
		return s.Label
	}
	if s.Pivot != "" {
		return s.Sheet + "/" + s.Pivot
	}
	return string(s.Kind)
}
