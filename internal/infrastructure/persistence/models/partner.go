package models

import (
	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/domain/partner"
)

// CustomerModel is the persistence model for the Customer domain entity.
type CustomerModel struct {
	BaseModel
	Name         string `gorm:"type:varchar(200);not null"`
	TaxID        string `gorm:"type:varchar(11);index"`
	TaxCondition int    `gorm:"not null;default:5"`
	Email        string `gorm:"type:varchar(200)"`
	Phone        string `gorm:"type:varchar(50)"`
	Active       bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer entity.
func (m *CustomerModel) ToDomain() *partner.Customer {
	return &partner.Customer{
		BaseEntity:   m.BaseModel.ToDomain(),
		Name:         m.Name,
		TaxID:        m.TaxID,
		TaxCondition: fiscal.TaxCondition(m.TaxCondition),
		Email:        m.Email,
		Phone:        m.Phone,
		Active:       m.Active,
	}
}

// FromDomain populates the persistence model from a domain Customer entity.
func (m *CustomerModel) FromDomain(c *partner.Customer) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.TaxID = c.TaxID
	m.TaxCondition = int(c.TaxCondition)
	m.Email = c.Email
	m.Phone = c.Phone
	m.Active = c.Active
}

// CustomerModelFromDomain creates a new persistence model from a domain Customer entity.
func CustomerModelFromDomain(c *partner.Customer) *CustomerModel {
	m := &CustomerModel{}
	m.FromDomain(c)
	return m
}
