package mappers

import (
	"kreltrack/internal/domain/request"
	"kreltrack/internal/infrastructure/persistence/models"
)

// RequestMapper converts between the Request entity and its row.
type RequestMapper interface {
	ToModel(r *request.Request) *models.RequestModel
	ToDomain(model *models.RequestModel) (*request.Request, error)
	ToDomainList(rows []models.RequestModel) ([]*request.Request, error)
}

type RequestMapperImpl struct{}

func NewRequestMapper() RequestMapper {
	return &RequestMapperImpl{}
}

func (m *RequestMapperImpl) ToModel(r *request.Request) *models.RequestModel {
	s := r.Snapshot()
	return &models.RequestModel{
		ID:            s.ID,
		Number:        s.Number,
		Requester:     s.Requester,
		RequestDate:   s.RequestDate,
		Factory:       s.Factory,
		Project:       s.Project,
		Phase:         s.Phase,
		Category:      s.Category,
		Status:        s.Status,
		Equipment:     s.Equipment,
		Detail:        s.Detail,
		Qty:           s.Qty,
		TestCondition: s.TestCondition,
		FinalResult:   s.FinalResult,

		CosQty:         s.CosQty,
		CosResult:      s.CosResult,
		HCrossQty:      s.HCrossQty,
		XHatchResult:   s.XHatchResult,
		XCrossQty:      s.XCrossQty,
		XSectionResult: s.XSectionResult,
		FuncTestQty:    s.FuncTestQty,
		FuncResult:     s.FuncResult,

		PlanStart:     s.PlanStart,
		PlanEnd:       s.PlanEnd,
		ActualStart:   s.ActualStart,
		ActualEnd:     s.ActualEnd,
		DRI:           s.DRI,
		LogFile:       s.LogFile,
		LogLink:       s.LogLink,
		Note:          s.Note,
		CreatedBy:     s.CreatedBy,
		UpdatedBy:     s.UpdatedBy,
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (m *RequestMapperImpl) ToDomain(model *models.RequestModel) (*request.Request, error) {
	return request.ReconstructRequest(request.Snapshot{
		ID:            model.ID,
		Number:        model.Number,
		Requester:     model.Requester,
		RequestDate:   model.RequestDate,
		Factory:       model.Factory,
		Project:       model.Project,
		Phase:         model.Phase,
		Category:      model.Category,
		Status:        model.Status,
		Equipment:     model.Equipment,
		Detail:        model.Detail,
		Qty:           model.Qty,
		TestCondition: model.TestCondition,
		FinalResult:   model.FinalResult,

		CosQty:         model.CosQty,
		CosResult:      model.CosResult,
		HCrossQty:      model.HCrossQty,
		XHatchResult:   model.XHatchResult,
		XCrossQty:      model.XCrossQty,
		XSectionResult: model.XSectionResult,
		FuncTestQty:    model.FuncTestQty,
		FuncResult:     model.FuncResult,

		PlanStart:     model.PlanStart,
		PlanEnd:       model.PlanEnd,
		ActualStart:   model.ActualStart,
		ActualEnd:     model.ActualEnd,
		DRI:           model.DRI,
		LogFile:       model.LogFile,
		LogLink:       model.LogLink,
		Note:          model.Note,
		CreatedBy:     model.CreatedBy,
		UpdatedBy:     model.UpdatedBy,
		Version:       model.Version,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	})
}

func (m *RequestMapperImpl) ToDomainList(rows []models.RequestModel) ([]*request.Request, error) {
	out := make([]*request.Request, 0, len(rows))
	for i := range rows {
		r, err := m.ToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
