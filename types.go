package main

import "ctrlos/internal/models"

// Type aliases so handlers and tests can use the unqualified names
// while the definitions live in internal/models.

type APIResponse = models.APIResponse
type Meta = models.Meta
type Customer = models.Customer
type Product = models.Product
type Service = models.Service
type WarrantyTerm = models.WarrantyTerm
type ServiceOrder = models.ServiceOrder
type Equipment = models.Equipment
type LineItem = models.LineItem
type Sale = models.Sale
type Budget = models.Budget
type FinancialRecord = models.FinancialRecord
type User = models.User
type SystemSettings = models.SystemSettings
type DashboardData = models.DashboardData
type MonthBucket = models.MonthBucket
type ProductRank = models.ProductRank
type Report = models.Report
type AuditEntry = models.AuditEntry
