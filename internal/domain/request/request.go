package request

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	vo "kreltrack/internal/domain/request/valueobjects"
	"kreltrack/internal/shared/biztime"
)

const DefaultQty = 1

// Request is a reliability-test booking. The number is assigned once at
// creation and never changes; version increases on every committed update.
type Request struct {
	id            uint
	number        string
	requester     string
	requestDate   time.Time
	factory       string
	project       string
	phase         string
	category      string
	status        vo.Status
	equipment     string
	detail        string
	qty           int
	testCondition string
	items         TestItems
	finalResult   vo.FinalResult
	planStart     *time.Time
	planEnd       *time.Time
	actualStart   *time.Time
	actualEnd     *time.Time
	dri           string
	logFile       string
	logLink       string
	note          string
	createdBy     string
	updatedBy     string
	version       int
	createdAt     time.Time
	updatedAt     time.Time
}

// NewRequest starts a Draft request owned by createdBy. Field values are
// applied afterwards with Apply.
func NewRequest(number string, createdBy string, now time.Time) (*Request, error) {
	if err := ValidateNumber(number); err != nil {
		return nil, err
	}
	if createdBy == "" {
		return nil, fmt.Errorf("creator is required")
	}

	now = now.UTC()
	return &Request{
		number:      number,
		requestDate: biztime.StartOfDayUTC(now),
		status:      vo.StatusDraft,
		qty:         DefaultQty,
		items:       NewTestItems(),
		finalResult: vo.FinalResultNone,
		createdBy:   createdBy,
		updatedBy:   createdBy,
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Snapshot carries every persisted attribute; used to rebuild a Request from storage.
type Snapshot struct {
	ID            uint
	Number        string
	Requester     string
	RequestDate   time.Time
	Factory       string
	Project       string
	Phase         string
	Category      string
	Status        string
	Equipment     string
	Detail        string
	Qty           int
	TestCondition string
	// Test item quantities are 0 when the item was not run.
	CosQty         int
	CosResult      string
	HCrossQty      int
	XHatchResult   string
	XCrossQty      int
	XSectionResult string
	FuncTestQty    int
	FuncResult     string
	FinalResult    string
	PlanStart      *time.Time
	PlanEnd        *time.Time
	ActualStart    *time.Time
	ActualEnd      *time.Time
	DRI            string
	LogFile        string
	LogLink        string
	Note           string
	CreatedBy      string
	UpdatedBy      string
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func ReconstructRequest(s Snapshot) (*Request, error) {
	if s.ID == 0 {
		return nil, fmt.Errorf("request ID cannot be zero")
	}
	if s.Number == "" {
		return nil, fmt.Errorf("request number is required")
	}
	status, err := vo.NewStatus(s.Status)
	if err != nil {
		return nil, err
	}
	result, err := vo.NewFinalResult(s.FinalResult)
	if err != nil {
		return nil, err
	}
	items, err := itemsFromSnapshot(s)
	if err != nil {
		return nil, err
	}

	return &Request{
		id:            s.ID,
		number:        s.Number,
		requester:     s.Requester,
		requestDate:   s.RequestDate.UTC(),
		factory:       s.Factory,
		project:       s.Project,
		phase:         s.Phase,
		category:      s.Category,
		status:        status,
		equipment:     s.Equipment,
		detail:        s.Detail,
		qty:           s.Qty,
		testCondition: s.TestCondition,
		items:         items,
		finalResult:   result,
		planStart:     utcPtr(s.PlanStart),
		planEnd:       utcPtr(s.PlanEnd),
		actualStart:   utcPtr(s.ActualStart),
		actualEnd:     utcPtr(s.ActualEnd),
		dri:           s.DRI,
		logFile:       s.LogFile,
		logLink:       s.LogLink,
		note:          s.Note,
		createdBy:     s.CreatedBy,
		updatedBy:     s.UpdatedBy,
		version:       s.Version,
		createdAt:     s.CreatedAt.UTC(),
		updatedAt:     s.UpdatedAt.UTC(),
	}, nil
}

// Snapshot exports the current state.
func (r *Request) Snapshot() Snapshot {
	s := Snapshot{
		ID:            r.id,
		Number:        r.number,
		Requester:     r.requester,
		RequestDate:   r.requestDate,
		Factory:       r.factory,
		Project:       r.project,
		Phase:         r.phase,
		Category:      r.category,
		Status:        r.status.String(),
		Equipment:     r.equipment,
		Detail:        r.detail,
		Qty:           r.qty,
		TestCondition: r.testCondition,
		FinalResult:   r.finalResult.String(),
		PlanStart:     copyTime(r.planStart),
		PlanEnd:       copyTime(r.planEnd),
		ActualStart:   copyTime(r.actualStart),
		ActualEnd:     copyTime(r.actualEnd),
		DRI:           r.dri,
		LogFile:       r.logFile,
		LogLink:       r.logLink,
		Note:          r.note,
		CreatedBy:     r.createdBy,
		UpdatedBy:     r.updatedBy,
		Version:       r.version,
		CreatedAt:     r.createdAt,
		UpdatedAt:     r.updatedAt,
	}
	r.items.toSnapshot(&s)
	return s
}

// Apply parses and assigns every set field of p. Values are expected to have
// passed validation; a parse failure or an illegal status change is still
// rejected and leaves the request unchanged.
func (r *Request) Apply(p Patch) error {
	next := *r

	if v, ok := p.Requester.Get(); ok {
		next.requester = strings.TrimSpace(v)
	}
	if v, ok := p.RequestDate.Get(); ok {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s cannot be cleared", FieldRequestDate)
		}
		t, err := biztime.ParseDateTime(v)
		if err != nil {
			return fmt.Errorf("%s: %w", FieldRequestDate, err)
		}
		next.requestDate = t
	}
	if v, ok := p.Factory.Get(); ok {
		next.factory = strings.TrimSpace(v)
	}
	if v, ok := p.Project.Get(); ok {
		next.project = strings.TrimSpace(v)
	}
	if v, ok := p.Phase.Get(); ok {
		next.phase = strings.TrimSpace(v)
	}
	if v, ok := p.Category.Get(); ok {
		next.category = strings.TrimSpace(v)
	}
	if v, ok := p.Status.Get(); ok {
		st, err := vo.NewStatus(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		if !r.status.CanTransitionTo(st) {
			return fmt.Errorf("illegal status transition %s -> %s", r.status, st)
		}
		next.status = st
	}
	if v, ok := p.Equipment.Get(); ok {
		next.equipment = strings.TrimSpace(v)
	}
	if v, ok := p.Detail.Get(); ok {
		next.detail = v
	}
	if v, ok := p.Qty.Get(); ok {
		n, err := ParseQty(v)
		if err != nil {
			return err
		}
		next.qty = n
	}
	if v, ok := p.TestCondition.Get(); ok {
		next.testCondition = v
	}
	if v, ok := p.FinalResult.Get(); ok {
		fr, err := vo.NewFinalResult(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		next.finalResult = fr
	}
	if err := next.items.apply(p); err != nil {
		return err
	}

	for _, tf := range []struct {
		name string
		f    Field
		dst  **time.Time
	}{
		{FieldPlanStart, p.PlanStart, &next.planStart},
		{FieldPlanEnd, p.PlanEnd, &next.planEnd},
		{FieldActualStart, p.ActualStart, &next.actualStart},
		{FieldActualEnd, p.ActualEnd, &next.actualEnd},
	} {
		v, ok := tf.f.Get()
		if !ok {
			continue
		}
		t, err := ParseOptionalTime(v)
		if err != nil {
			return fmt.Errorf("%s: %w", tf.name, err)
		}
		*tf.dst = t
	}

	if v, ok := p.DRI.Get(); ok {
		next.dri = v
	}
	if v, ok := p.LogFile.Get(); ok {
		next.logFile = v
	}
	if v, ok := p.LogLink.Get(); ok {
		next.logLink = strings.TrimSpace(v)
	}
	if v, ok := p.Note.Get(); ok {
		next.note = v
	}

	if !ordered(next.planStart, next.planEnd) || !ordered(next.actualStart, next.actualEnd) {
		return fmt.Errorf("start must be before end")
	}

	*r = next
	return nil
}

// MarkUpdated records a committed change by updatedBy. updatedAt never moves backwards.
func (r *Request) MarkUpdated(updatedBy string, now time.Time) {
	now = now.UTC()
	if now.Before(r.updatedAt) {
		now = r.updatedAt
	}
	r.updatedBy = updatedBy
	r.updatedAt = now
	r.version++
}

func (r *Request) SetID(id uint) error {
	if r.id != 0 {
		return fmt.Errorf("request ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("request ID cannot be zero")
	}
	r.id = id
	return nil
}

func (r *Request) ID() uint                    { return r.id }
func (r *Request) Number() string              { return r.number }
func (r *Request) Requester() string           { return r.requester }
func (r *Request) RequestDate() time.Time      { return r.requestDate }
func (r *Request) Factory() string             { return r.factory }
func (r *Request) Project() string             { return r.project }
func (r *Request) Phase() string               { return r.phase }
func (r *Request) Category() string            { return r.category }
func (r *Request) Status() vo.Status           { return r.status }
func (r *Request) Equipment() string           { return r.equipment }
func (r *Request) Detail() string              { return r.detail }
func (r *Request) Qty() int                    { return r.qty }
func (r *Request) TestCondition() string       { return r.testCondition }
func (r *Request) FinalResult() vo.FinalResult { return r.finalResult }
func (r *Request) TestItems() TestItems        { return r.items }
func (r *Request) PlanStart() *time.Time       { return copyTime(r.planStart) }
func (r *Request) PlanEnd() *time.Time         { return copyTime(r.planEnd) }
func (r *Request) ActualStart() *time.Time     { return copyTime(r.actualStart) }
func (r *Request) ActualEnd() *time.Time       { return copyTime(r.actualEnd) }
func (r *Request) DRI() string                 { return r.dri }
func (r *Request) LogFile() string             { return r.logFile }
func (r *Request) LogLink() string             { return r.logLink }
func (r *Request) Note() string                { return r.note }
func (r *Request) CreatedBy() string           { return r.createdBy }
func (r *Request) UpdatedBy() string           { return r.updatedBy }
func (r *Request) Version() int                { return r.version }
func (r *Request) CreatedAt() time.Time        { return r.createdAt }
func (r *Request) UpdatedAt() time.Time        { return r.updatedAt }

// FieldValue renders one attribute the way a caller would have submitted it.
func (r *Request) FieldValue(name string) string {
	switch name {
	case FieldRequester:
		return r.requester
	case FieldRequestDate:
		return biztime.FormatDateTime(r.requestDate)
	case FieldFactory:
		return r.factory
	case FieldProject:
		return r.project
	case FieldPhase:
		return r.phase
	case FieldCategory:
		return r.category
	case FieldStatus:
		return r.status.String()
	case FieldEquipment:
		return r.equipment
	case FieldDetail:
		return r.detail
	case FieldQty:
		return strconv.Itoa(r.qty)
	case FieldTestCondition:
		return r.testCondition
	case FieldFinalResult:
		return r.finalResult.String()
	case FieldCosQty, FieldCosResult, FieldHCrossQty, FieldXHatchResult,
		FieldXCrossQty, FieldXSectionResult, FieldFuncTestQty, FieldFuncResult:
		return r.items.fieldValue(name)
	case FieldPlanStart:
		return formatOptional(r.planStart)
	case FieldPlanEnd:
		return formatOptional(r.planEnd)
	case FieldActualStart:
		return formatOptional(r.actualStart)
	case FieldActualEnd:
		return formatOptional(r.actualEnd)
	case FieldDRI:
		return r.dri
	case FieldLogFile:
		return r.logFile
	case FieldLogLink:
		return r.logLink
	case FieldNote:
		return r.note
	}
	return ""
}

// ParseQty reads a quantity; range checks belong to validation.
func ParseQty(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("qty must be a whole number")
	}
	return n, nil
}

// ParseOptionalTime returns nil for a blank value.
func ParseOptionalTime(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := biztime.ParseDateTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func ordered(start, end *time.Time) bool {
	return start == nil || end == nil || !start.After(*end)
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return biztime.FormatDateTime(*t)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
