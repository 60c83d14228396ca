// Package validation checks a candidate request field set before it is
// persisted: presence, then format, then references, then cross-field rules.
package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"kreltrack/internal/domain/lookup"
	"kreltrack/internal/domain/request"
	vo "kreltrack/internal/domain/request/valueobjects"
	"kreltrack/internal/shared/biztime"
	apperrors "kreltrack/internal/shared/errors"
)

type Mode int

const (
	ModeUnspecified Mode = iota
	ModeCreate
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeUpdate:
		return "update"
	default:
		return "unspecified"
	}
}

const (
	MinQty = 1
	MaxQty = 100000
)

// Failure messages shared with callers and tests.
const (
	MsgRequired          = "is required"
	MsgUnknownReference  = "unknown %s reference"
	MsgStartAfterEnd     = "start must be ≤ end"
	MsgIllegalTransition = "illegal status transition"
	MsgMustStartDraft    = "new request must start as Draft"
)

var (
	ErrInvalidMode    = errors.New("validation mode must be create or update")
	ErrMissingCurrent = errors.New("update validation needs the current request")
)

// LookupReader resolves reference codes.
type LookupReader interface {
	Get(ctx context.Context, table lookup.Table, code string) (lookup.Entry, bool, error)
}

// Result lists failures in the order the checks found them.
type Result struct {
	Failures []apperrors.FieldError
}

func (r Result) OK() bool {
	return len(r.Failures) == 0
}

// Err returns nil on success and a field validation error otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return apperrors.NewFieldValidationError(r.Failures)
}

func (r *Result) add(field, message string) {
	r.Failures = append(r.Failures, apperrors.FieldError{Field: field, Message: message})
}

func (r Result) failed(field string) bool {
	for _, f := range r.Failures {
		if f.Field == field {
			return true
		}
	}
	return false
}

// formatView carries the submitted text for the struct-level rules. Unset
// and blank fields stay empty and are skipped by omitempty.
type formatView struct {
	Requester     string `field:"requester" validate:"omitempty,min=2,max=100"`
	RequestDate   string `field:"request_date" validate:"omitempty,bizdate"`
	Factory       string `field:"factory" validate:"omitempty,max=64"`
	Project       string `field:"project" validate:"omitempty,max=64"`
	Phase         string `field:"phase" validate:"omitempty,max=64"`
	Category      string `field:"category" validate:"omitempty,max=64"`
	Status        string `field:"status" validate:"omitempty,oneof=Draft Submitted InProgress Completed Cancelled"`
	Equipment     string `field:"equipment" validate:"omitempty,max=64"`
	Detail        string `field:"detail" validate:"omitempty,max=4000"`
	Qty           string `field:"qty" validate:"omitempty,qty"`
	TestCondition string `field:"test_condition" validate:"omitempty,max=4000"`
	FinalResult   string `field:"final_result" validate:"omitempty,oneof=- Pass Fail Waiver"`
	CosQty        string `field:"cos" validate:"omitempty,qty"`
	CosResult     string `field:"cos_res" validate:"omitempty,oneof=- Pass Fail Waiver"`
	HCrossQty     string `field:"hcross" validate:"omitempty,qty"`
	XHatchResult  string `field:"xhatch_res" validate:"omitempty,oneof=- Pass Fail Waiver"`
	XCrossQty     string `field:"xcross" validate:"omitempty,qty"`
	XSectionRes   string `field:"xsection_res" validate:"omitempty,oneof=- Pass Fail Waiver"`
	FuncTestQty   string `field:"func_test" validate:"omitempty,qty"`
	FuncResult    string `field:"func_res" validate:"omitempty,oneof=- Pass Fail Waiver"`
	PlanStart     string `field:"plan_start" validate:"omitempty,bizdate"`
	PlanEnd       string `field:"plan_end" validate:"omitempty,bizdate"`
	ActualStart   string `field:"actual_start" validate:"omitempty,bizdate"`
	ActualEnd     string `field:"actual_end" validate:"omitempty,bizdate"`
	DRI           string `field:"dri" validate:"omitempty,max=100"`
	LogFile       string `field:"log_file" validate:"omitempty,max=500"`
	LogLink       string `field:"log_link" validate:"omitempty,url,max=500"`
	Note          string `field:"note" validate:"omitempty,max=4000"`
}

// createRequired must be present and non-blank on create.
var createRequired = []string{
	request.FieldRequester,
	request.FieldFactory,
	request.FieldProject,
	request.FieldPhase,
	request.FieldCategory,
}

// neverBlank may be omitted on update but not cleared.
var neverBlank = map[string]bool{
	request.FieldRequester:   true,
	request.FieldRequestDate: true,
	request.FieldFactory:     true,
	request.FieldProject:     true,
	request.FieldPhase:       true,
	request.FieldCategory:    true,
	request.FieldStatus:      true,
	request.FieldQty:         true,
}

// referenceFields maps request fields to the table their codes live in.
var referenceFields = []struct {
	field string
	table lookup.Table
}{
	{request.FieldFactory, lookup.TableFactory},
	{request.FieldProject, lookup.TableProject},
	{request.FieldPhase, lookup.TablePhase},
	{request.FieldCategory, lookup.TableCategory},
	{request.FieldStatus, lookup.TableStatus},
	{request.FieldEquipment, lookup.TableEquipment},
}

// Validator is stateless apart from its lookup source and compiled rules and
// is safe for concurrent use.
type Validator struct {
	lookups  LookupReader
	validate *validator.Validate
}

func New(lookups LookupReader) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("field")
	})
	_ = v.RegisterValidation("bizdate", func(fl validator.FieldLevel) bool {
		_, err := biztime.ParseDateTime(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("qty", func(fl validator.FieldLevel) bool {
		n, err := request.ParseQty(fl.Field().String())
		return err == nil && n >= MinQty && n <= MaxQty
	})
	return &Validator{lookups: lookups, validate: v}
}

// Validate checks candidate for mode. current is the stored request and is
// required for updates. A returned error means the check itself could not
// run; field problems are reported in Result.
func (v *Validator) Validate(ctx context.Context, candidate request.Patch, mode Mode, current *request.Request) (Result, error) {
	var res Result
	switch mode {
	case ModeCreate:
	case ModeUpdate:
		if current == nil {
			return res, ErrMissingCurrent
		}
	default:
		return res, ErrInvalidMode
	}

	v.checkRequired(&res, candidate, mode)
	v.checkFormat(&res, candidate)
	if err := v.checkReferences(ctx, &res, candidate, mode); err != nil {
		return Result{}, err
	}
	v.checkCrossField(&res, candidate, mode, current)
	return res, nil
}

func (v *Validator) checkRequired(res *Result, p request.Patch, mode Mode) {
	fields := p.Fields()
	if mode == ModeCreate {
		for _, name := range createRequired {
			if !nonBlank(fields, name) {
				res.add(name, MsgRequired)
			}
		}
	}
	for _, nf := range fields {
		if !nf.Field.IsSet() || !neverBlank[nf.Name] || res.failed(nf.Name) {
			continue
		}
		if strings.TrimSpace(nf.Field.Value()) == "" {
			res.add(nf.Name, MsgRequired)
		}
	}
}

func (v *Validator) checkFormat(res *Result, p request.Patch) {
	view := formatView{
		Requester:     trimmed(p.Requester),
		RequestDate:   trimmed(p.RequestDate),
		Factory:       trimmed(p.Factory),
		Project:       trimmed(p.Project),
		Phase:         trimmed(p.Phase),
		Category:      trimmed(p.Category),
		Status:        trimmed(p.Status),
		Equipment:     trimmed(p.Equipment),
		Detail:        p.Detail.Value(),
		Qty:           trimmed(p.Qty),
		TestCondition: p.TestCondition.Value(),
		FinalResult:   trimmed(p.FinalResult),
		CosQty:        trimmed(p.CosQty),
		CosResult:     trimmed(p.CosResult),
		HCrossQty:     trimmed(p.HCrossQty),
		XHatchResult:  trimmed(p.XHatchResult),
		XCrossQty:     trimmed(p.XCrossQty),
		XSectionRes:   trimmed(p.XSectionResult),
		FuncTestQty:   trimmed(p.FuncTestQty),
		FuncResult:    trimmed(p.FuncResult),
		PlanStart:     trimmed(p.PlanStart),
		PlanEnd:       trimmed(p.PlanEnd),
		ActualStart:   trimmed(p.ActualStart),
		ActualEnd:     trimmed(p.ActualEnd),
		DRI:           p.DRI.Value(),
		LogFile:       p.LogFile.Value(),
		LogLink:       trimmed(p.LogLink),
		Note:          p.Note.Value(),
	}

	err := v.validate.Struct(view)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.add("", err.Error())
		return
	}
	for _, fe := range verrs {
		if res.failed(fe.Field()) {
			continue
		}
		res.add(fe.Field(), formatMessage(fe))
	}
}

func formatMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "bizdate":
		return fmt.Sprintf("must be a date (%s) or date-time (%s)", biztime.DateLayout, biztime.DateTimeLayout)
	case "qty":
		return fmt.Sprintf("must be a whole number between %d and %d", MinQty, MaxQty)
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

// checkReferences resolves every submitted code. On create an omitted status
// is checked as the Draft it will default to.
func (v *Validator) checkReferences(ctx context.Context, res *Result, p request.Patch, mode Mode) error {
	fields := p.Fields()
	for _, ref := range referenceFields {
		code := ""
		for _, nf := range fields {
			if nf.Name == ref.field && nf.Field.IsSet() {
				code = strings.TrimSpace(nf.Field.Value())
			}
		}
		if code == "" && mode == ModeCreate && ref.field == request.FieldStatus {
			code = vo.StatusDraft.String()
		}
		if code == "" || res.failed(ref.field) {
			continue
		}
		entry, found, err := v.lookups.Get(ctx, ref.table, code)
		if err != nil {
			return fmt.Errorf("resolve %s reference: %w", ref.table, err)
		}
		if !found || !entry.Active {
			res.add(ref.field, fmt.Sprintf(MsgUnknownReference, ref.table))
		}
	}
	return nil
}

// checkCrossField evaluates the record as it would look after the change.
func (v *Validator) checkCrossField(res *Result, p request.Patch, mode Mode, current *request.Request) {
	pairs := []struct {
		startField, endField string
		start, end           request.Field
		curStart, curEnd     *time.Time
	}{
		{request.FieldPlanStart, request.FieldPlanEnd, p.PlanStart, p.PlanEnd, nil, nil},
		{request.FieldActualStart, request.FieldActualEnd, p.ActualStart, p.ActualEnd, nil, nil},
	}
	if current != nil {
		pairs[0].curStart, pairs[0].curEnd = current.PlanStart(), current.PlanEnd()
		pairs[1].curStart, pairs[1].curEnd = current.ActualStart(), current.ActualEnd()
	}

	for _, pair := range pairs {
		if res.failed(pair.startField) || res.failed(pair.endField) {
			continue
		}
		start, ok1 := merged(pair.start, pair.curStart)
		end, ok2 := merged(pair.end, pair.curEnd)
		if !ok1 || !ok2 || start == nil || end == nil {
			continue
		}
		if start.After(*end) {
			res.add(pair.endField, MsgStartAfterEnd)
		}
	}

	raw, ok := p.Status.Get()
	if !ok || res.failed(request.FieldStatus) {
		return
	}
	next, err := vo.NewStatus(strings.TrimSpace(raw))
	if err != nil {
		return
	}
	if mode == ModeCreate {
		if next != vo.StatusDraft {
			res.add(request.FieldStatus, MsgMustStartDraft)
		}
		return
	}
	if !current.Status().CanTransitionTo(next) {
		res.add(request.FieldStatus, MsgIllegalTransition)
	}
}

// merged returns the submitted time when the field is set, else the stored one.
func merged(f request.Field, stored *time.Time) (*time.Time, bool) {
	raw, ok := f.Get()
	if !ok {
		return stored, true
	}
	t, err := request.ParseOptionalTime(raw)
	if err != nil {
		return nil, false
	}
	return t, true
}

func nonBlank(fields []request.NamedField, name string) bool {
	for _, nf := range fields {
		if nf.Name == name {
			return nf.Field.IsSet() && strings.TrimSpace(nf.Field.Value()) != ""
		}
	}
	return false
}

func trimmed(f request.Field) string {
	return strings.TrimSpace(f.Value())
}
