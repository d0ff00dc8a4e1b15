package pgstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// PassageModel is one embedded text window belonging to a tenant partition.
// Tenant isolation is enforced by the tenant_id filter on every query.
type PassageModel struct {
	Id        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantId  string          `gorm:"type:varchar(128);index;not null"`
	Content   string          `gorm:"type:text;not null"`
	Source    string          `gorm:"type:varchar(512)"`
	Embedding pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt time.Time
}

func (PassageModel) TableName() string {
	return "tenant_passages"
}
