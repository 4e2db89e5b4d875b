package model

type ConsultationCategory string

const (
	CategoryConsultation ConsultationCategory = "consultation"
	CategoryExamination  ConsultationCategory = "examination"
)

// ConsultationType is a catalog entry for a billable medical service.
type ConsultationType struct {
	Base
	Name        string               `db:"name" json:"name"`
	Description string               `db:"description" json:"description"`
	Price       float64              `db:"price" json:"price"`
	Category    ConsultationCategory `db:"category" json:"category"`
	IsActive    bool                 `db:"is_active" json:"is_active"`
}

type ConsultationTypeFilters struct {
	Category   ConsultationCategory
	ActiveOnly bool
}
