package http

import (
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/permit"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/request"
)

type SlotResponse struct {
	Party     string     `json:"party"`
	Decision  string     `json:"decision"`
	ActorID   *string    `json:"actor_id"`
	DecidedAt *time.Time `json:"decided_at"`
}

type WorkerResponse struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Code *string `json:"code"`
}

type PermitResponse struct {
	ID                 string           `json:"id"`
	Status             string           `json:"status"`
	CompanyName        string           `json:"company_name"`
	JobLocation        string           `json:"job_location"`
	OnsiteInCharge     string           `json:"onsite_in_charge"`
	ContactNo          string           `json:"contact_no"`
	Ref                *string          `json:"ref"`
	TenantOrContractor string           `json:"tenant_or_contractor"`
	JobDateFrom        time.Time        `json:"job_date_from"`
	JobDateTo          time.Time        `json:"job_date_to"`
	JobTimeFrom        string           `json:"job_time_from"`
	JobTimeTo          string           `json:"job_time_to"`
	JobType            string           `json:"job_type"`
	JobDescription     string           `json:"job_description"`
	RequestedBy        string           `json:"requested_by"`
	RiskAssessment     *string          `json:"risk_assessment"`
	SafetyMeasures     *string          `json:"safety_measures"`
	EquipmentList      []string         `json:"equipment_list"`
	NeedPowerCut       bool             `json:"need_power_cut"`
	NeedMallStaff      bool             `json:"need_mall_staff"`
	ExtraNotes         *string          `json:"extra_notes"`
	Approvals          []SlotResponse   `json:"approvals"`
	Workers            []WorkerResponse `json:"workers,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func NewPermitResponse(p *permit.Permit) PermitResponse {
	slots := make([]SlotResponse, len(p.Slots))
	for i, s := range p.Slots {
		slots[i] = SlotResponse{Party: string(s.Party), Decision: string(s.Decision), ActorID: s.ActorID, DecidedAt: s.DecidedAt}
	}
	var workers []WorkerResponse
	for _, w := range p.Workers {
		workers = append(workers, WorkerResponse{ID: w.ID, Name: w.Name, Code: w.Code})
	}
	equipment := p.EquipmentList
	if equipment == nil {
		equipment = []string{}
	}

	return PermitResponse{
		ID:                 p.ID,
		Status:             string(p.Status()),
		CompanyName:        p.CompanyName,
		JobLocation:        p.JobLocation,
		OnsiteInCharge:     p.OnsiteInCharge,
		ContactNo:          p.ContactNo,
		Ref:                p.Ref,
		TenantOrContractor: string(p.RequesterType),
		JobDateFrom:        p.JobDateFrom,
		JobDateTo:          p.JobDateTo,
		JobTimeFrom:        p.JobTimeFrom,
		JobTimeTo:          p.JobTimeTo,
		JobType:            p.JobType,
		JobDescription:     p.JobDescription,
		RequestedBy:        p.RequestedBy,
		RiskAssessment:     p.RiskAssessment,
		SafetyMeasures:     p.SafetyMeasures,
		EquipmentList:      equipment,
		NeedPowerCut:       p.NeedPowerCut,
		NeedMallStaff:      p.NeedMallStaff,
		ExtraNotes:         p.ExtraNotes,
		Approvals:          slots,
		Workers:            workers,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func NewPermitResponses(permits []*permit.Permit) []PermitResponse {
	out := make([]PermitResponse, len(permits))
	for i, p := range permits {
		out[i] = NewPermitResponse(p)
	}
	return out
}

// PermitBrief is the dashboard's summary line.
type PermitBrief struct {
	ID          string    `json:"id"`
	CompanyName string    `json:"company_name"`
	JobLocation string    `json:"job_location"`
	JobDateFrom time.Time `json:"job_date_from"`
	Status      string    `json:"status"`
}

func newBriefs(permits []*permit.Permit) []PermitBrief {
	out := make([]PermitBrief, len(permits))
	for i, p := range permits {
		out[i] = PermitBrief{
			ID:          p.ID,
			CompanyName: p.CompanyName,
			JobLocation: p.JobLocation,
			JobDateFrom: p.JobDateFrom,
			Status:      string(p.Status()),
		}
	}
	return out
}

type DashboardStats struct {
	Total      int `json:"total"`
	Approved   int `json:"approved"`
	Rejected   int `json:"rejected"`
	Incomplete int `json:"incomplete"`
	Pending    int `json:"pending"`
}

type DashboardResponse struct {
	Stats      DashboardStats `json:"stats"`
	Recent     []PermitBrief  `json:"recent"`
	Incomplete []PermitBrief  `json:"incomplete"`
}

func NewDashboardResponse(d *permit.Dashboard) DashboardResponse {
	return DashboardResponse{
		Stats: DashboardStats{
			Total:      d.Counts.Total,
			Approved:   d.Counts.Approved,
			Rejected:   d.Counts.Rejected,
			Incomplete: d.Counts.Incomplete,
			Pending:    d.Counts.Pending,
		},
		Recent:     newBriefs(d.Recent),
		Incomplete: newBriefs(d.Incomplete),
	}
}

type WorkerRequest struct {
	Name string  `json:"name" binding:"required"`
	Code *string `json:"code"`
}

type CreatePermitRequest struct {
	CompanyName        string          `json:"company_name" binding:"required"`
	JobLocation        string          `json:"job_location" binding:"required"`
	OnsiteInCharge     string          `json:"onsite_in_charge" binding:"required"`
	ContactNo          string          `json:"contact_no" binding:"required"`
	Ref                *string         `json:"ref"`
	TenantOrContractor string          `json:"tenant_or_contractor" binding:"required,oneof=tenant contractor"`
	JobDateFrom        time.Time       `json:"job_date_from" binding:"required"`
	JobDateTo          time.Time       `json:"job_date_to" binding:"required"`
	JobTimeFrom        string          `json:"job_time_from"`
	JobTimeTo          string          `json:"job_time_to"`
	JobType            string          `json:"job_type" binding:"required"`
	JobDescription     string          `json:"job_description"`
	RequestedBy        string          `json:"requested_by" binding:"required"`
	RiskAssessment     *string         `json:"risk_assessment"`
	SafetyMeasures     *string         `json:"safety_measures"`
	EquipmentList      []string        `json:"equipment_list"`
	NeedPowerCut       bool            `json:"need_power_cut"`
	NeedMallStaff      bool            `json:"need_mall_staff"`
	ExtraNotes         *string         `json:"extra_notes"`
	Workers            []WorkerRequest `json:"workers" binding:"dive"`
}

func (r CreatePermitRequest) toDomain() permit.CreateRequest {
	return permit.CreateRequest{
		Details: permit.Details{
			CompanyName:    r.CompanyName,
			JobLocation:    r.JobLocation,
			OnsiteInCharge: r.OnsiteInCharge,
			ContactNo:      r.ContactNo,
			Ref:            r.Ref,
			RequesterType:  permit.RequesterType(r.TenantOrContractor),
			JobDateFrom:    r.JobDateFrom,
			JobDateTo:      r.JobDateTo,
			JobTimeFrom:    r.JobTimeFrom,
			JobTimeTo:      r.JobTimeTo,
			JobType:        r.JobType,
			JobDescription: r.JobDescription,
			RequestedBy:    r.RequestedBy,
			RiskAssessment: r.RiskAssessment,
			SafetyMeasures: r.SafetyMeasures,
			EquipmentList:  r.EquipmentList,
			NeedPowerCut:   r.NeedPowerCut,
			NeedMallStaff:  r.NeedMallStaff,
			ExtraNotes:     r.ExtraNotes,
		},
		Workers: toWorkers(r.Workers),
	}
}

type EditPermitRequest struct {
	CompanyName        *string          `json:"company_name"`
	JobLocation        *string          `json:"job_location"`
	OnsiteInCharge     *string          `json:"onsite_in_charge"`
	ContactNo          *string          `json:"contact_no"`
	Ref                *string          `json:"ref"`
	TenantOrContractor *string          `json:"tenant_or_contractor" binding:"omitempty,oneof=tenant contractor"`
	JobDateFrom        *time.Time       `json:"job_date_from"`
	JobDateTo          *time.Time       `json:"job_date_to"`
	JobTimeFrom        *string          `json:"job_time_from"`
	JobTimeTo          *string          `json:"job_time_to"`
	JobType            *string          `json:"job_type"`
	JobDescription     *string          `json:"job_description"`
	RequestedBy        *string          `json:"requested_by"`
	RiskAssessment     *string          `json:"risk_assessment"`
	SafetyMeasures     *string          `json:"safety_measures"`
	EquipmentList      *[]string        `json:"equipment_list"`
	NeedPowerCut       *bool            `json:"need_power_cut"`
	NeedMallStaff      *bool            `json:"need_mall_staff"`
	ExtraNotes         *string          `json:"extra_notes"`
	Workers            *[]WorkerRequest `json:"workers"`
	Note               *string          `json:"note"`
}

func (r EditPermitRequest) toDomain() permit.EditRequest {
	req := permit.EditRequest{
		CompanyName:    r.CompanyName,
		JobLocation:    r.JobLocation,
		OnsiteInCharge: r.OnsiteInCharge,
		ContactNo:      r.ContactNo,
		Ref:            r.Ref,
		JobDateFrom:    r.JobDateFrom,
		JobDateTo:      r.JobDateTo,
		JobTimeFrom:    r.JobTimeFrom,
		JobTimeTo:      r.JobTimeTo,
		JobType:        r.JobType,
		JobDescription: r.JobDescription,
		RequestedBy:    r.RequestedBy,
		RiskAssessment: r.RiskAssessment,
		SafetyMeasures: r.SafetyMeasures,
		EquipmentList:  r.EquipmentList,
		NeedPowerCut:   r.NeedPowerCut,
		NeedMallStaff:  r.NeedMallStaff,
		ExtraNotes:     r.ExtraNotes,
		Note:           r.Note,
	}
	if r.TenantOrContractor != nil {
		t := permit.RequesterType(*r.TenantOrContractor)
		req.RequesterType = &t
	}
	if r.Workers != nil {
		w := toWorkers(*r.Workers)
		req.Workers = &w
	}
	return req
}

func toWorkers(in []WorkerRequest) []permit.Worker {
	out := make([]permit.Worker, len(in))
	for i, w := range in {
		out[i] = permit.Worker{Name: w.Name, Code: w.Code}
	}
	return out
}

type DecisionURI struct {
	ID    string `uri:"id" binding:"required,uuid"`
	Party string `uri:"party" binding:"required"`
}

type DecisionRequest struct {
	Note *string `json:"note"`
}

type SetStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Note   *string `json:"note"`
}

type PartyURI struct {
	Party string `uri:"party" binding:"required"`
}

type ListPermitsRequest struct {
	request.ListParams
	Status      string `form:"status"`
	CompanyName string `form:"company_name"`
}
