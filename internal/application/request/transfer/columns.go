package transfer

import (
	"strings"
	"time"

	"kreltrack/internal/domain/request"
	"kreltrack/internal/shared/biztime"
)

// ColumnNumber holds the request number on export; it is ignored on import
// because every imported row gets a fresh number.
const ColumnNumber = "request_no"

// exportColumns is the header written by Export, in order.
var exportColumns = []string{
	ColumnNumber,
	request.FieldRequestDate,
	request.FieldRequester,
	request.FieldFactory,
	request.FieldProject,
	request.FieldPhase,
	request.FieldCategory,
	request.FieldEquipment,
	request.FieldQty,
	request.FieldDetail,
	request.FieldTestCondition,
	request.FieldFinalResult,
	request.FieldCosQty,
	request.FieldCosResult,
	request.FieldHCrossQty,
	request.FieldXHatchResult,
	request.FieldXCrossQty,
	request.FieldXSectionResult,
	request.FieldFuncTestQty,
	request.FieldFuncResult,
	request.FieldStatus,
	request.FieldPlanStart,
	request.FieldPlanEnd,
	request.FieldActualStart,
	request.FieldActualEnd,
	request.FieldDRI,
	request.FieldLogFile,
	request.FieldLogLink,
	request.FieldNote,
}

// headerAliases maps legacy and localised headers onto field names.
var headerAliases = map[string]string{
	"equip_no":    request.FieldEquipment,
	"final_res":   request.FieldFinalResult,
	"mã yc":       ColumnNumber,
	"ngày yc":     request.FieldRequestDate,
	"người yc":    request.FieldRequester,
	"nhà máy":     request.FieldFactory,
	"dự án":       request.FieldProject,
	"giai đoạn":   request.FieldPhase,
	"hạng mục":    request.FieldCategory,
	"mã tb":       request.FieldEquipment,
	"số lượng":    request.FieldQty,
	"đk test":     request.FieldTestCondition,
	"kq cuối":     request.FieldFinalResult,
	"kq cos":      request.FieldCosResult,
	"kq xhatch":   request.FieldXHatchResult,
	"kq xsection": request.FieldXSectionResult,
	"func test":   request.FieldFuncTestQty,
	"kq func":     request.FieldFuncResult,
	"trạng thái":  request.FieldStatus,
	"vào kh":      request.FieldPlanStart,
	"ra kh":       request.FieldPlanEnd,
	"vào tt":      request.FieldActualStart,
	"ra tt":       request.FieldActualEnd,
	"ghi chú":     request.FieldNote,
	"dri":         request.FieldDRI,
}

// templateColumns is the localised header written by Template with the
// sample value shown under each column.
var templateColumns = []struct {
	header string
	sample func(now time.Time) string
}{
	{"Mã YC", fixed("(Tự động)")},
	{"Ngày YC", func(now time.Time) string { return now.In(biztime.Location()).Format(biztime.DateLayout) }},
	{"Người YC", fixed("Tên người yêu cầu")},
	{"Nhà Máy", fixed("F1/F2/F3...")},
	{"Dự Án", fixed("Tên dự án")},
	{"Giai Đoạn", fixed("EVT/DVT/PVT/MP")},
	{"Hạng Mục", fixed("Hạng mục test")},
	{"Mã TB", fixed("Mã thiết bị")},
	{"Số Lượng", fixed("1")},
	{"ĐK Test", fixed("Điều kiện test")},
	{"CoS", fixed("")},
	{"KQ CoS", fixed("-")},
	{"HCross", fixed("")},
	{"KQ XHatch", fixed("-")},
	{"XCross", fixed("")},
	{"KQ XSection", fixed("-")},
	{"Func Test", fixed("")},
	{"KQ Func", fixed("-")},
	{"Ghi Chú", fixed("")},
}

func fixed(v string) func(time.Time) string {
	return func(time.Time) string { return v }
}

var knownFields = func() map[string]bool {
	m := make(map[string]bool, len(exportColumns))
	for _, c := range exportColumns {
		m[c] = true
	}
	return m
}()

// canonicalHeader returns the field a header names, or "" for columns the
// importer does not read.
func canonicalHeader(h string) string {
	key := strings.ToLower(strings.TrimSpace(h))
	if knownFields[key] {
		return key
	}
	return headerAliases[key]
}
