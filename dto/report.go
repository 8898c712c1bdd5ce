package dto

type CreateReportRequest struct {
	Category    string `json:"category" validate:"required,oneof=bug content account suggestion other"`
	Subject     string `json:"subject" validate:"required,min=3,max=120"`
	Description string `json:"description" validate:"required,min=10,max=4000"`
}

func (r CreateReportRequest) Validate() error {
	return GetValidator().Struct(r)
}

type UpdateReportStatusRequest struct {
	Status string `json:"status" validate:"required,report_status"`
}

func (r UpdateReportStatusRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ReportResponse struct {
	ID          string `json:"id"`
	AuthorID    string `json:"author_id"`
	AuthorName  string `json:"author_name,omitempty"`
	Category    string `json:"category"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at,omitempty"`
}

type ReportListResponse struct {
	Reports []ReportResponse `json:"reports"`
	Total   int              `json:"total"`
}
