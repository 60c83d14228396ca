package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kreltrack/internal/domain/lookup"
	"kreltrack/internal/domain/request"
	vo "kreltrack/internal/domain/request/valueobjects"
	apperrors "kreltrack/internal/shared/errors"
)

type mockLookups struct {
	entries map[lookup.Table]map[string]lookup.Entry
	err     error
}

func newMockLookups() *mockLookups {
	m := &mockLookups{entries: make(map[lookup.Table]map[string]lookup.Entry)}
	m.add(lookup.TableFactory, "F1", true)
	m.add(lookup.TableFactory, "F9", false)
	m.add(lookup.TableProject, "P1", true)
	m.add(lookup.TablePhase, "EVT", true)
	m.add(lookup.TableCategory, "Drop", true)
	m.add(lookup.TableEquipment, "EQ-01", true)
	for _, s := range vo.AllStatuses {
		m.add(lookup.TableStatus, s.String(), true)
	}
	return m
}

func (m *mockLookups) add(table lookup.Table, code string, active bool) {
	if m.entries[table] == nil {
		m.entries[table] = make(map[string]lookup.Entry)
	}
	m.entries[table][code] = lookup.Entry{Table: table, Code: code, Label: code, Active: active}
}

func (m *mockLookups) Get(_ context.Context, table lookup.Table, code string) (lookup.Entry, bool, error) {
	if m.err != nil {
		return lookup.Entry{}, false, m.err
	}
	e, ok := m.entries[table][code]
	return e, ok, nil
}

func validCreate() request.Patch {
	return request.Patch{
		Requester: request.Set("Alice"),
		Factory:   request.Set("F1"),
		Project:   request.Set("P1"),
		Phase:     request.Set("EVT"),
		Category:  request.Set("Drop"),
		Equipment: request.Set("EQ-01"),
		Qty:       request.Set("3"),
	}
}

func stored(t *testing.T, status vo.Status) *request.Request {
	t.Helper()
	r, err := request.NewRequest("20260101-001", "alice", time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	p := validCreate()
	p.PlanStart = request.Set("2026-01-05 08:00")
	p.PlanEnd = request.Set("2026-01-06 08:00")
	require.NoError(t, r.Apply(p))

	path := map[vo.Status][]vo.Status{
		vo.StatusDraft:      nil,
		vo.StatusSubmitted:  {vo.StatusSubmitted},
		vo.StatusInProgress: {vo.StatusSubmitted, vo.StatusInProgress},
		vo.StatusCompleted:  {vo.StatusSubmitted, vo.StatusInProgress, vo.StatusCompleted},
		vo.StatusCancelled:  {vo.StatusCancelled},
	}
	for _, s := range path[status] {
		require.NoError(t, r.Apply(request.Patch{Status: request.Set(s.String())}))
	}
	return r
}

func messages(res Result) map[string]string {
	out := make(map[string]string, len(res.Failures))
	for _, f := range res.Failures {
		out[f.Field] = f.Message
	}
	return out
}

func TestValidateCreateAccepts(t *testing.T) {
	v := New(newMockLookups())

	res, err := v.Validate(context.Background(), validCreate(), ModeCreate, nil)

	require.NoError(t, err)
	assert.True(t, res.OK(), "unexpected failures: %v", res.Failures)
	assert.NoError(t, res.Err())
}

func TestValidateCreateRequiresMandatoryFields(t *testing.T) {
	v := New(newMockLookups())
	p := validCreate()
	p.Factory = request.Patch{}.Factory
	p.Phase = request.Set("   ")

	res, err := v.Validate(context.Background(), p, ModeCreate, nil)

	require.NoError(t, err)
	got := messages(res)
	assert.Equal(t, MsgRequired, got[request.FieldFactory])
	assert.Equal(t, MsgRequired, got[request.FieldPhase])
	assert.Len(t, res.Failures, 2)
}

func TestValidateUpdateRejectsClearingMandatoryField(t *testing.T) {
	v := New(newMockLookups())

	res, err := v.Validate(context.Background(), request.Patch{Qty: request.Set("")}, ModeUpdate, stored(t, vo.StatusDraft))

	require.NoError(t, err)
	assert.Equal(t, MsgRequired, messages(res)[request.FieldQty])
}

func TestValidateUpdateAllowsClearingOptionalField(t *testing.T) {
	v := New(newMockLookups())

	res, err := v.Validate(context.Background(), request.Patch{
		Equipment: request.Set(""),
		PlanEnd:   request.Set(""),
	}, ModeUpdate, stored(t, vo.StatusDraft))

	require.NoError(t, err)
	assert.True(t, res.OK(), "unexpected failures: %v", res.Failures)
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name  string
		patch request.Patch
		field string
	}{
		{"short requester", request.Patch{Requester: request.Set("A")}, request.FieldRequester},
		{"bad date", request.Patch{RequestDate: request.Set("31/01/2026")}, request.FieldRequestDate},
		{"qty not a number", request.Patch{Qty: request.Set("three")}, request.FieldQty},
		{"qty zero", request.Patch{Qty: request.Set("0")}, request.FieldQty},
		{"qty too large", request.Patch{Qty: request.Set("100001")}, request.FieldQty},
		{"unknown status", request.Patch{Status: request.Set("Paused")}, request.FieldStatus},
		{"unknown final result", request.Patch{FinalResult: request.Set("Maybe")}, request.FieldFinalResult},
		{"bad plan start", request.Patch{PlanStart: request.Set("soon")}, request.FieldPlanStart},
		{"bad log link", request.Patch{LogLink: request.Set("not a link")}, request.FieldLogLink},
		{"cosmetic qty zero", request.Patch{CosQty: request.Set("0")}, request.FieldCosQty},
		{"function qty not a number", request.Patch{FuncTestQty: request.Set("some")}, request.FieldFuncTestQty},
		{"unknown cross hatch result", request.Patch{XHatchResult: request.Set("OK")}, request.FieldXHatchResult},
	}

	v := New(newMockLookups())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Validate(context.Background(), tt.patch, ModeUpdate, stored(t, vo.StatusDraft))
			require.NoError(t, err)
			require.Len(t, res.Failures, 1, "failures: %v", res.Failures)
			assert.Equal(t, tt.field, res.Failures[0].Field)
		})
	}
}

func TestValidateUnknownReference(t *testing.T) {
	v := New(newMockLookups())
	p := validCreate()
	p.Factory = request.Set("F404")

	res, err := v.Validate(context.Background(), p, ModeCreate, nil)

	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, request.FieldFactory, res.Failures[0].Field)
	assert.Equal(t, "unknown factory reference", res.Failures[0].Message)

	verr := res.Err()
	require.Error(t, verr)
	assert.True(t, apperrors.IsValidationError(verr))
	assert.Contains(t, verr.Error(), "unknown factory reference")
}

func TestValidateInactiveReferenceRejected(t *testing.T) {
	v := New(newMockLookups())
	p := validCreate()
	p.Factory = request.Set("F9")

	res, err := v.Validate(context.Background(), p, ModeCreate, nil)

	require.NoError(t, err)
	assert.Equal(t, "unknown factory reference", messages(res)[request.FieldFactory])
}

func TestValidateTestItemsAcceptBlankAndResults(t *testing.T) {
	v := New(newMockLookups())

	res, err := v.Validate(context.Background(), request.Patch{
		CosQty:         request.Set("12"),
		CosResult:      request.Set("Waiver"),
		HCrossQty:      request.Set(""),
		XSectionResult: request.Set("-"),
		FuncResult:     request.Set("Pass"),
	}, ModeUpdate, stored(t, vo.StatusDraft))

	require.NoError(t, err)
	assert.True(t, res.OK(), "unexpected failures: %v", res.Failures)
}

func TestValidateCreateChecksDefaultStatus(t *testing.T) {
	lookups := newMockLookups()
	lookups.add(lookup.TableStatus, vo.StatusDraft.String(), false)
	v := New(lookups)

	res, err := v.Validate(context.Background(), validCreate(), ModeCreate, nil)

	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, request.FieldStatus, res.Failures[0].Field)
	assert.Equal(t, "unknown status reference", res.Failures[0].Message)

	// an update that leaves status alone does not look it up
	res, err = v.Validate(context.Background(), request.Patch{Note: request.Set("x")}, ModeUpdate, stored(t, vo.StatusDraft))
	require.NoError(t, err)
	assert.True(t, res.OK(), "unexpected failures: %v", res.Failures)
}

func TestValidateReferenceLookupFailure(t *testing.T) {
	lookups := newMockLookups()
	lookups.err = errors.New("store down")
	v := New(lookups)

	_, err := v.Validate(context.Background(), validCreate(), ModeCreate, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
}

func TestValidateStartAfterEnd(t *testing.T) {
	v := New(newMockLookups())
	p := validCreate()
	p.PlanStart = request.Set("2026-01-10 08:00")
	p.PlanEnd = request.Set("2026-01-09 08:00")

	res, err := v.Validate(context.Background(), p, ModeCreate, nil)

	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, request.FieldPlanEnd, res.Failures[0].Field)
	assert.Equal(t, "start must be ≤ end", res.Failures[0].Message)
}

func TestValidateStartAfterStoredEnd(t *testing.T) {
	v := New(newMockLookups())

	// stored plan end is 2026-01-06 08:00
	res, err := v.Validate(context.Background(), request.Patch{
		PlanStart: request.Set("2026-01-07"),
	}, ModeUpdate, stored(t, vo.StatusDraft))

	require.NoError(t, err)
	assert.Equal(t, MsgStartAfterEnd, messages(res)[request.FieldPlanEnd])
}

func TestValidateEqualStartAndEnd(t *testing.T) {
	v := New(newMockLookups())
	p := validCreate()
	p.ActualStart = request.Set("2026-01-10 08:00")
	p.ActualEnd = request.Set("2026-01-10 08:00")

	res, err := v.Validate(context.Background(), p, ModeCreate, nil)

	require.NoError(t, err)
	assert.True(t, res.OK(), "unexpected failures: %v", res.Failures)
}

func TestValidateCreateMustStartDraft(t *testing.T) {
	v := New(newMockLookups())
	p := validCreate()
	p.Status = request.Set("Submitted")

	res, err := v.Validate(context.Background(), p, ModeCreate, nil)

	require.NoError(t, err)
	assert.Equal(t, MsgMustStartDraft, messages(res)[request.FieldStatus])

	p.Status = request.Set("Draft")
	res, err = v.Validate(context.Background(), p, ModeCreate, nil)
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestValidateStatusTransitions(t *testing.T) {
	legal := map[[2]vo.Status]bool{
		{vo.StatusDraft, vo.StatusSubmitted}:      true,
		{vo.StatusDraft, vo.StatusCancelled}:      true,
		{vo.StatusSubmitted, vo.StatusInProgress}: true,
		{vo.StatusSubmitted, vo.StatusCancelled}:  true,
		{vo.StatusInProgress, vo.StatusCompleted}: true,
		{vo.StatusInProgress, vo.StatusCancelled}: true,
	}

	v := New(newMockLookups())
	for _, from := range vo.AllStatuses {
		for _, to := range vo.AllStatuses {
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				res, err := v.Validate(context.Background(), request.Patch{Status: request.Set(to.String())}, ModeUpdate, stored(t, from))
				require.NoError(t, err)
				if from == to || legal[[2]vo.Status{from, to}] {
					assert.True(t, res.OK(), "unexpected failures: %v", res.Failures)
					return
				}
				require.Len(t, res.Failures, 1)
				assert.Equal(t, request.FieldStatus, res.Failures[0].Field)
				assert.Equal(t, "illegal status transition", res.Failures[0].Message)
			})
		}
	}
}

func TestValidateFailedFieldSkipsLaterStages(t *testing.T) {
	v := New(newMockLookups())
	p := validCreate()
	p.Factory = request.Set("F1234567890123456789012345678901234567890123456789012345678901234567890")

	res, err := v.Validate(context.Background(), p, ModeCreate, nil)

	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "must be at most 64 characters", res.Failures[0].Message)
}

func TestValidateInvalidMode(t *testing.T) {
	v := New(newMockLookups())

	_, err := v.Validate(context.Background(), validCreate(), ModeUnspecified, nil)
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, err = v.Validate(context.Background(), validCreate(), Mode(42), nil)
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, err = v.Validate(context.Background(), validCreate(), ModeUpdate, nil)
	assert.ErrorIs(t, err, ErrMissingCurrent)
}
