package transfer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kreltrack/internal/domain/request"
	vo "kreltrack/internal/domain/request/valueobjects"
	"kreltrack/internal/domain/user"
	uvo "kreltrack/internal/domain/user/valueobjects"
	apperrors "kreltrack/internal/shared/errors"
	"kreltrack/internal/shared/logger"
)

var importer = user.Actor{UserID: 1, Username: "op", Role: uvo.RoleOperator}

func newTestService() (*Service, *mockWriter, *mockLister) {
	w := &mockWriter{}
	l := &mockLister{}
	return NewService(w, l, logger.NewDiscard()), w, l
}

func TestImportUTF8WithBOM(t *testing.T) {
	svc, w, _ := newTestService()
	data := "\ufeffrequest_no,requester,factory,project,phase,category,equipment,qty,note\n" +
		"20200101-001,Alice,F1,P1,EVT,Drop,EQ-01,3,first\n" +
		",,F1,P1,EVT,Drop,,,blank requester\n" +
		"(auto),Bob,F1,P1,DVT,Drop,,nan,\n"

	res, err := svc.Import(context.Background(), strings.NewReader(data), importer)
	require.NoError(t, err)

	assert.Equal(t, []string{"20260302-001", "20260302-002"}, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Errors)

	require.Len(t, w.created, 2)
	first := w.created[0]
	assert.Equal(t, "Alice", first.Requester.Value())
	assert.Equal(t, "3", first.Qty.Value())
	assert.Equal(t, "first", first.Note.Value())
	assert.NotContains(t, first.Changed(), "request_no")

	second := w.created[1]
	assert.False(t, second.Qty.IsSet())
	assert.False(t, second.Note.IsSet())
	assert.Empty(t, w.updates)
}

func TestImportWindows1252(t *testing.T) {
	svc, w, _ := newTestService()
	// 0xE9 is é in Windows-1252 and invalid on its own in UTF-8
	data := []byte("requester,factory,project,phase,category,note\nRen\xe9,F1,P1,EVT,Drop,caf\xe9\n")

	res, err := svc.Import(context.Background(), bytes.NewReader(data), importer)
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	assert.Equal(t, "René", w.created[0].Requester.Value())
	assert.Equal(t, "café", w.created[0].Note.Value())
}

func TestImportLocalisedHeaders(t *testing.T) {
	svc, w, _ := newTestService()
	data := "Mã YC,Người YC,Nhà Máy,Dự Án,Giai Đoạn,Hạng Mục,Mã TB,Số Lượng,Vào KH,Ra KH,Ghi Chú\n" +
		"(Tự động),Lan,F1,P1,EVT,Drop,EQ-01,2,2026-03-04 08:00,2026-03-05 08:00,mẫu\n"

	res, err := svc.Import(context.Background(), strings.NewReader(data), importer)
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)

	got := w.created[0]
	assert.Equal(t, "Lan", got.Requester.Value())
	assert.Equal(t, "EQ-01", got.Equipment.Value())
	assert.Equal(t, "2026-03-04 08:00", got.PlanStart.Value())
	assert.Equal(t, "mẫu", got.Note.Value())
}

func TestImportTestItems(t *testing.T) {
	svc, w, _ := newTestService()
	data := "Người YC,Nhà Máy,Dự Án,Giai Đoạn,Hạng Mục,CoS,KQ CoS,HCross,KQ XHatch,XCross,KQ XSection,Func Test,KQ Func\n" +
		"Lan,F1,P1,EVT,Drop,5,Pass,3,Fail,,-,2,Waiver\n"

	res, err := svc.Import(context.Background(), strings.NewReader(data), importer)
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)

	got := w.created[0]
	assert.Equal(t, "5", got.CosQty.Value())
	assert.Equal(t, "Pass", got.CosResult.Value())
	assert.Equal(t, "3", got.HCrossQty.Value())
	assert.Equal(t, "Fail", got.XHatchResult.Value())
	assert.False(t, got.XCrossQty.IsSet())
	assert.Equal(t, "-", got.XSectionResult.Value())
	assert.Equal(t, "2", got.FuncTestQty.Value())
	assert.Equal(t, "Waiver", got.FuncResult.Value())
}

func TestTemplateImportsBack(t *testing.T) {
	svc, w, _ := newTestService()
	now := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, svc.Template(&buf, now))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, utf8BOM))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Mã YC", records[0][0])
	for _, h := range records[0] {
		assert.NotEmpty(t, canonicalHeader(h), "header %q is not importable", h)
	}
	assert.Equal(t, "2026-03-02", records[1][1])

	res, err := svc.Import(context.Background(), strings.NewReader(out), importer)
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	got := w.created[0]
	assert.Equal(t, "Tên người yêu cầu", got.Requester.Value())
	assert.Equal(t, "2026-03-02", got.RequestDate.Value())
	assert.Equal(t, "-", got.CosResult.Value())
	assert.False(t, got.CosQty.IsSet())
}

func TestImportWalksStatus(t *testing.T) {
	svc, w, _ := newTestService()
	data := "requester,factory,project,phase,category,status\n" +
		"Alice,F1,P1,EVT,Drop,InProgress\n" +
		"Bob,F1,P1,EVT,Drop,Draft\n" +
		"Cara,F1,P1,EVT,Drop,Paused\n"

	res, err := svc.Import(context.Background(), strings.NewReader(data), importer)
	require.NoError(t, err)
	require.Len(t, res.Imported, 3)

	assert.False(t, w.created[0].Status.IsSet())
	assert.Equal(t, "Draft", w.created[1].Status.Value())
	// unknown values are passed on for validation to reject
	assert.Equal(t, "Paused", w.created[2].Status.Value())

	assert.Equal(t, []statusChange{
		{number: "20260302-001", status: "Submitted"},
		{number: "20260302-001", status: "InProgress"},
	}, w.updates)
}

func TestImportContinuesAfterRowFailure(t *testing.T) {
	svc, w, _ := newTestService()
	w.CreateFunc = func(p request.Patch) error {
		if p.Factory.Value() == "F404" {
			return apperrors.NewFieldValidationError([]apperrors.FieldError{{Field: "factory", Message: "unknown factory reference"}})
		}
		return nil
	}
	data := "requester,factory,project,phase,category\n" +
		"Alice,F404,P1,EVT,Drop\n" +
		"Bob,F1,P1,EVT,Drop\n"

	res, err := svc.Import(context.Background(), strings.NewReader(data), importer)
	require.NoError(t, err)
	assert.Len(t, res.Imported, 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Line)
	assert.Contains(t, res.Errors[0].Error(), "unknown factory reference")
}

func TestImportRejectsBadHeader(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Import(context.Background(), strings.NewReader("name,factory\nAlice,F1\n"), importer)
	assert.Error(t, err)

	_, err = svc.Import(context.Background(), strings.NewReader(""), importer)
	assert.Error(t, err)
}

func TestImportStopsWhenCancelled(t *testing.T) {
	svc, w, _ := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Import(ctx, strings.NewReader("requester\nAlice\n"), importer)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, w.created)
}

func TestExport(t *testing.T) {
	svc, _, lister := newTestService()

	r, err := request.NewRequest("20260302-001", "op", time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, r.Apply(request.Patch{
		Requester: request.Set("Alice"),
		Factory:   request.Set("F1"),
		Note:      request.Set("line, with comma"),
		CosQty:    request.Set("4"),
		CosResult: request.Set("Pass"),
	}))
	lister.requests = []*request.Request{r}

	var buf bytes.Buffer
	n, err := svc.Export(context.Background(), &buf, request.Filter{Statuses: []vo.Status{vo.StatusDraft}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []vo.Status{vo.StatusDraft}, lister.filter.Statuses)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, utf8BOM))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportColumns, records[0])
	row := map[string]string{}
	for i, col := range records[0] {
		row[col] = records[1][i]
	}
	assert.Equal(t, "20260302-001", row[ColumnNumber])
	assert.Equal(t, "Alice", row["requester"])
	assert.Equal(t, "line, with comma", row["note"])
	assert.Equal(t, "Draft", row["status"])
	assert.Equal(t, r.FieldValue(request.FieldRequestDate), row["request_date"])
	assert.Equal(t, "4", row["cos"])
	assert.Equal(t, "Pass", row["cos_res"])
	assert.Equal(t, "", row["func_test"])
	assert.Equal(t, "-", row["func_res"])
}

func TestExportListFailure(t *testing.T) {
	svc, _, lister := newTestService()
	lister.err = errors.New("store down")

	var buf bytes.Buffer
	_, err := svc.Export(context.Background(), &buf, request.Filter{})
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestStatusPath(t *testing.T) {
	assert.Equal(t, []vo.Status{vo.StatusSubmitted, vo.StatusInProgress, vo.StatusCompleted},
		statusPath(vo.StatusDraft, vo.StatusCompleted))
	assert.Equal(t, []vo.Status{vo.StatusCancelled}, statusPath(vo.StatusDraft, vo.StatusCancelled))
	assert.Nil(t, statusPath(vo.StatusCompleted, vo.StatusDraft))
}
