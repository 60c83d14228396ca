package request

import "fmt"

// Field is an optional value with a presence flag. A set field with an empty
// value clears the attribute; an unset field leaves it untouched.
type Field struct {
	value string
	set   bool
}

func Set(v string) Field {
	return Field{value: v, set: true}
}

func (f Field) Get() (string, bool) {
	return f.value, f.set
}

func (f Field) Value() string {
	return f.value
}

func (f Field) IsSet() bool {
	return f.set
}

// Field names, also used as keys in validation failures and audit details.
const (
	FieldRequester     = "requester"
	FieldRequestDate   = "request_date"
	FieldFactory       = "factory"
	FieldProject       = "project"
	FieldPhase         = "phase"
	FieldCategory      = "category"
	FieldStatus        = "status"
	FieldEquipment     = "equipment"
	FieldDetail        = "detail"
	FieldQty           = "qty"
	FieldTestCondition = "test_condition"
	FieldFinalResult   = "final_result"
	FieldPlanStart     = "plan_start"
	FieldPlanEnd       = "plan_end"
	FieldActualStart   = "actual_start"
	FieldActualEnd     = "actual_end"
	FieldDRI           = "dri"
	FieldLogFile       = "log_file"
	FieldLogLink       = "log_link"
	FieldNote          = "note"

	// Test items carry the column names of the legacy spreadsheet.
	FieldCosQty         = "cos"
	FieldCosResult      = "cos_res"
	FieldHCrossQty      = "hcross"
	FieldXHatchResult   = "xhatch_res"
	FieldXCrossQty      = "xcross"
	FieldXSectionResult = "xsection_res"
	FieldFuncTestQty    = "func_test"
	FieldFuncResult     = "func_res"
)

// Patch is the candidate field set submitted by a caller. Values are kept as
// entered; parsing happens in validation and in Request.Apply.
type Patch struct {
	Requester     Field
	RequestDate   Field
	Factory       Field
	Project       Field
	Phase         Field
	Category      Field
	Status        Field
	Equipment     Field
	Detail        Field
	Qty           Field
	TestCondition Field
	FinalResult   Field
	PlanStart     Field
	PlanEnd       Field
	ActualStart   Field
	ActualEnd     Field
	DRI           Field
	LogFile       Field
	LogLink       Field
	Note          Field

	CosQty         Field
	CosResult      Field
	HCrossQty      Field
	XHatchResult   Field
	XCrossQty      Field
	XSectionResult Field
	FuncTestQty    Field
	FuncResult     Field
}

// NamedField pairs a field name with its value.
type NamedField struct {
	Name  string
	Field Field
}

// Fields returns every field in a stable order.
func (p *Patch) Fields() []NamedField {
	return []NamedField{
		{FieldRequester, p.Requester},
		{FieldRequestDate, p.RequestDate},
		{FieldFactory, p.Factory},
		{FieldProject, p.Project},
		{FieldPhase, p.Phase},
		{FieldCategory, p.Category},
		{FieldStatus, p.Status},
		{FieldEquipment, p.Equipment},
		{FieldDetail, p.Detail},
		{FieldQty, p.Qty},
		{FieldTestCondition, p.TestCondition},
		{FieldCosQty, p.CosQty},
		{FieldCosResult, p.CosResult},
		{FieldHCrossQty, p.HCrossQty},
		{FieldXHatchResult, p.XHatchResult},
		{FieldXCrossQty, p.XCrossQty},
		{FieldXSectionResult, p.XSectionResult},
		{FieldFuncTestQty, p.FuncTestQty},
		{FieldFuncResult, p.FuncResult},
		{FieldFinalResult, p.FinalResult},
		{FieldPlanStart, p.PlanStart},
		{FieldPlanEnd, p.PlanEnd},
		{FieldActualStart, p.ActualStart},
		{FieldActualEnd, p.ActualEnd},
		{FieldDRI, p.DRI},
		{FieldLogFile, p.LogFile},
		{FieldLogLink, p.LogLink},
		{FieldNote, p.Note},
	}
}

// Changed returns the names of the set fields.
func (p *Patch) Changed() []string {
	var names []string
	for _, nf := range p.Fields() {
		if nf.Field.IsSet() {
			names = append(names, nf.Name)
		}
	}
	return names
}

func (p *Patch) IsEmpty() bool {
	return len(p.Changed()) == 0
}

// MapText rewrites every set free-text field through fn.
func (p *Patch) MapText(fn func(string) string) {
	for _, f := range []*Field{
		&p.Requester, &p.Detail, &p.TestCondition, &p.DRI, &p.LogFile, &p.LogLink, &p.Note,
	} {
		if f.set {
			f.value = fn(f.value)
		}
	}
}

// SetByName assigns value to the field called name.
func (p *Patch) SetByName(name, value string) error {
	f := p.byName(name)
	if f == nil {
		return fmt.Errorf("unknown field %q", name)
	}
	*f = Set(value)
	return nil
}

func (p *Patch) byName(name string) *Field {
	switch name {
	case FieldRequester:
		return &p.Requester
	case FieldRequestDate:
		return &p.RequestDate
	case FieldFactory:
		return &p.Factory
	case FieldProject:
		return &p.Project
	case FieldPhase:
		return &p.Phase
	case FieldCategory:
		return &p.Category
	case FieldStatus:
		return &p.Status
	case FieldEquipment:
		return &p.Equipment
	case FieldDetail:
		return &p.Detail
	case FieldQty:
		return &p.Qty
	case FieldTestCondition:
		return &p.TestCondition
	case FieldFinalResult:
		return &p.FinalResult
	case FieldPlanStart:
		return &p.PlanStart
	case FieldPlanEnd:
		return &p.PlanEnd
	case FieldActualStart:
		return &p.ActualStart
	case FieldActualEnd:
		return &p.ActualEnd
	case FieldDRI:
		return &p.DRI
	case FieldLogFile:
		return &p.LogFile
	case FieldLogLink:
		return &p.LogLink
	case FieldNote:
		return &p.Note
	case FieldCosQty:
		return &p.CosQty
	case FieldCosResult:
		return &p.CosResult
	case FieldHCrossQty:
		return &p.HCrossQty
	case FieldXHatchResult:
		return &p.XHatchResult
	case FieldXCrossQty:
		return &p.XCrossQty
	case FieldXSectionResult:
		return &p.XSectionResult
	case FieldFuncTestQty:
		return &p.FuncTestQty
	case FieldFuncResult:
		return &p.FuncResult
	}
	return nil
}
