// Package models maps the domain aggregates onto the tables created by the
// migrations. The domain types carry no GORM tags; each model here converts
// with ToDomain and FromDomain.
//
//	catalog.go   products (price, tax rate, stock, minimum stock)
//	partner.go   customers
//	trade.go     sales, sale_items, quotes, quote_items
//	audit.go     audit_logs
package models
