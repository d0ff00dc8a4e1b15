package dto

// IngestRequest triggers document ingestion for one tenant.
type IngestRequest struct {
	TenantId   string `json:"tenant_id" form:"tenant_id" validate:"required,max=128"`
	SourcePath string `json:"source_path" form:"source_path" validate:"required"`
}

type IngestResponse struct {
	TenantId string `json:"tenant_id"`
}

// IngestCompletedEvent is published on the in-process bus after a successful
// ingestion so live sessions of the tenant can be notified.
type IngestCompletedEvent struct {
	TenantId string `json:"tenant_id"`
}
