package main

import "github.com/shopspring/decimal"

type sampleMedicine struct {
	Name         string
	Description  string
	Category     string
	Quantity     int64
	Unit         string
	Manufacturer string
	BatchNumber  string
	PurchasedAgo int
	ExpiresIn    int
	Price        decimal.Decimal
}

type sampleSupplier struct {
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
}

var sampleMedicines = []sampleMedicine{
	{"Paracetamol 500mg", "Pain reliever and fever reducer", "Tablet", 150, "Tablets", "PharmaCorp", "PCM2023-001", 30, 365, decimal.RequireFromString("5.99")},
	{"Amoxicillin 250mg", "Antibiotic for bacterial infections", "Capsule", 60, "Capsules", "MediPharm", "AMX2023-002", 15, 180, decimal.RequireFromString("12.50")},
	{"Ibuprofen 400mg", "NSAID for pain and inflammation", "Tablet", 100, "Tablets", "HealthMeds", "IBU2023-003", 45, 730, decimal.RequireFromString("7.25")},
	{"Cetirizine 10mg", "Antihistamine for allergies", "Tablet", 30, "Tablets", "AllergyRelief", "CET2023-004", 10, 90, decimal.RequireFromString("8.99")},
	{"Omeprazole 20mg", "Proton pump inhibitor for acid reflux", "Capsule", 28, "Capsules", "GastroHealth", "OME2023-005", 20, 15, decimal.RequireFromString("14.75")},
	{"Metformin 500mg", "Oral diabetes medication", "Tablet", 90, "Tablets", "DiabeCare", "MET2023-006", 60, 450, decimal.RequireFromString("9.50")},
	{"Salbutamol Inhaler", "Bronchodilator for asthma", "Inhaler", 5, "Inhalers", "RespiCare", "SAL2023-007", 5, 300, decimal.RequireFromString("22.99")},
	{"Aspirin 75mg", "Blood thinner", "Tablet", 28, "Tablets", "CardioHealth", "ASP2023-008", 25, 5, decimal.RequireFromString("4.25")},
	{"Diazepam 5mg", "Benzodiazepine for anxiety", "Tablet", 10, "Tablets", "NeuroCare", "DIA2023-009", 40, 270, decimal.RequireFromString("18.50")},
	{"Hydrocortisone Cream 1%", "Topical steroid for skin inflammation", "Cream", 3, "Tubes", "DermaCare", "HYD2023-010", 15, 180, decimal.RequireFromString("11.25")},
}

var sampleSuppliers = []sampleSupplier{
	{"MediSupply Inc.", "John Smith", "555-123-4567", "john@medisupply.com", "123 Pharma Street, Medical District, City"},
	{"Global Pharmaceuticals", "Sarah Johnson", "555-987-6543", "sarah@globalpharma.com", "456 Health Avenue, Wellness Park, City"},
	{"Healthcare Distributors", "Michael Brown", "555-456-7890", "michael@healthcaredist.com", "789 Medicine Road, Care Center, City"},
}
