package models

import (
	"github.com/retailcore/backoffice/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	BaseModel
	Code           string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_products_code"`
	Barcode        string          `gorm:"type:varchar(50);index"`
	Name           string          `gorm:"type:varchar(200);not null"`
	RetailPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	WholesalePrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	StockQuantity  int             `gorm:"not null;default:0"`
	MinStock       int             `gorm:"not null;default:0"`
	Active         bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:     m.BaseModel.ToDomain(),
		Code:           m.Code,
		Barcode:        m.Barcode,
		Name:           m.Name,
		RetailPrice:    m.RetailPrice,
		WholesalePrice: m.WholesalePrice,
		TaxRate:        m.TaxRate,
		StockQuantity:  m.StockQuantity,
		MinStock:       m.MinStock,
		Active:         m.Active,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Code = p.Code
	m.Barcode = p.Barcode
	m.Name = p.Name
	m.RetailPrice = p.RetailPrice
	m.WholesalePrice = p.WholesalePrice
	m.TaxRate = p.TaxRate
	m.StockQuantity = p.StockQuantity
	m.MinStock = p.MinStock
	m.Active = p.Active
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
