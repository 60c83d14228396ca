package request

import (
	"fmt"
	"strconv"
	"strings"

	vo "kreltrack/internal/domain/request/valueobjects"
)

// TestItem is one inspection run on the samples: how many pieces went
// through it and the verdict. Qty is 0 when the item was not run.
type TestItem struct {
	Qty    int
	Result vo.FinalResult
}

// TestItems are the four standard inspections reported next to the final result.
type TestItems struct {
	Cosmetic     TestItem
	CrossHatch   TestItem
	CrossSection TestItem
	Function     TestItem
}

func NewTestItems() TestItems {
	none := TestItem{Result: vo.FinalResultNone}
	return TestItems{Cosmetic: none, CrossHatch: none, CrossSection: none, Function: none}
}

type itemField struct {
	qtyName, resultName string
	pick                func(*TestItems) *TestItem
	qty, result         func(*Patch) Field
}

var itemFields = []itemField{
	{FieldCosQty, FieldCosResult,
		func(t *TestItems) *TestItem { return &t.Cosmetic },
		func(p *Patch) Field { return p.CosQty }, func(p *Patch) Field { return p.CosResult }},
	{FieldHCrossQty, FieldXHatchResult,
		func(t *TestItems) *TestItem { return &t.CrossHatch },
		func(p *Patch) Field { return p.HCrossQty }, func(p *Patch) Field { return p.XHatchResult }},
	{FieldXCrossQty, FieldXSectionResult,
		func(t *TestItems) *TestItem { return &t.CrossSection },
		func(p *Patch) Field { return p.XCrossQty }, func(p *Patch) Field { return p.XSectionResult }},
	{FieldFuncTestQty, FieldFuncResult,
		func(t *TestItems) *TestItem { return &t.Function },
		func(p *Patch) Field { return p.FuncTestQty }, func(p *Patch) Field { return p.FuncResult }},
}

func (t *TestItems) apply(p Patch) error {
	for _, f := range itemFields {
		item := f.pick(t)
		if v, ok := f.qty(&p).Get(); ok {
			n, err := parseItemQty(v)
			if err != nil {
				return fmt.Errorf("%s: %w", f.qtyName, err)
			}
			item.Qty = n
		}
		if v, ok := f.result(&p).Get(); ok {
			r, err := vo.NewFinalResult(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", f.resultName, err)
			}
			item.Result = r
		}
	}
	return nil
}

func (t TestItems) fieldValue(name string) string {
	for _, f := range itemFields {
		item := f.pick(&t)
		switch name {
		case f.qtyName:
			if item.Qty == 0 {
				return ""
			}
			return strconv.Itoa(item.Qty)
		case f.resultName:
			return item.Result.String()
		}
	}
	return ""
}

func (t TestItems) toSnapshot(s *Snapshot) {
	s.CosQty, s.CosResult = t.Cosmetic.Qty, t.Cosmetic.Result.String()
	s.HCrossQty, s.XHatchResult = t.CrossHatch.Qty, t.CrossHatch.Result.String()
	s.XCrossQty, s.XSectionResult = t.CrossSection.Qty, t.CrossSection.Result.String()
	s.FuncTestQty, s.FuncResult = t.Function.Qty, t.Function.Result.String()
}

func itemsFromSnapshot(s Snapshot) (TestItems, error) {
	var t TestItems
	for _, src := range []struct {
		dst    *TestItem
		qty    int
		result string
	}{
		{&t.Cosmetic, s.CosQty, s.CosResult},
		{&t.CrossHatch, s.HCrossQty, s.XHatchResult},
		{&t.CrossSection, s.XCrossQty, s.XSectionResult},
		{&t.Function, s.FuncTestQty, s.FuncResult},
	} {
		r, err := vo.NewFinalResult(src.result)
		if err != nil {
			return TestItems{}, err
		}
		*src.dst = TestItem{Qty: src.qty, Result: r}
	}
	return t, nil
}

// parseItemQty reads a test item quantity; blank means the item was not run.
func parseItemQty(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return ParseQty(s)
}
