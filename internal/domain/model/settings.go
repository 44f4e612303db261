package model

import "time"

// SettingsKey is the natural key of the single global settings row.
const SettingsKey = "global"

// CreditPackage is one purchasable credit bundle in the catalog.
type CreditPackage struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Credits int64  `json:"credits"`
	Price   int64  `json:"price"` // minor units
	Popular bool   `json:"popular"`
}

func (p CreditPackage) Valid() bool {
	return p.ID != "" && p.Name != "" && p.Credits > 0 && p.Price > 0
}

// Settings is the global configuration singleton. Read by nearly everything,
// written only through the administrative surface. Lazily materialized with
// defaults when the row is absent.
type Settings struct {
	Key string

	FreeMessagesLimit int
	CostPerMessage    int64

	PremiumEnabled      bool
	PremiumMonthlyPrice int64
	PremiumYearlyPrice  int64

	CreditPackages []CreditPackage

	MaintenanceMode bool
	PrivateMode     bool

	Currency  string
	UpdatedAt time.Time
}

// DefaultSettings are the hard-coded values used when no settings row exists.
func DefaultSettings() *Settings {
	return &Settings{
		Key:                 SettingsKey,
		FreeMessagesLimit:   5,
		CostPerMessage:      1,
		PremiumEnabled:      true,
		PremiumMonthlyPrice: 999,
		PremiumYearlyPrice:  7999,
		CreditPackages:      DefaultCreditPackages(),
		Currency:            "EUR",
		UpdatedAt:           time.Now(),
	}
}

// DefaultCreditPackages is the fallback catalog used when the stored catalog
// is empty or malformed.
func DefaultCreditPackages() []CreditPackage {
	return []CreditPackage{
		{ID: "pack_10", Name: "Starter", Credits: 10, Price: 199},
		{ID: "pack_50", Name: "Regular", Credits: 50, Price: 799, Popular: true},
		{ID: "pack_100", Name: "Pro", Credits: 100, Price: 1399},
		{ID: "pack_500", Name: "Club", Credits: 500, Price: 5999},
	}
}

// ValidCreditPackages returns the stored catalog when every entry is well
// formed, otherwise the default catalog.
func (s *Settings) ValidCreditPackages() []CreditPackage {
	if len(s.CreditPackages) == 0 {
		return DefaultCreditPackages()
	}
	for _, p := range s.CreditPackages {
		if !p.Valid() {
			return DefaultCreditPackages()
		}
	}
	return s.CreditPackages
}

// FindCreditPackage resolves one package by id from the effective catalog.
func (s *Settings) FindCreditPackage(id string) (CreditPackage, bool) {
	for _, p := range s.ValidCreditPackages() {
		if p.ID == id {
			return p, true
		}
	}
	return CreditPackage{}, false
}

func (s *Settings) PremiumPrice(plan PremiumPlan) int64 {
	if plan == PremiumPlanYearly {
		return s.PremiumYearlyPrice
	}
	return s.PremiumMonthlyPrice
}
