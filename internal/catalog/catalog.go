// Package catalog holds the static product catalogs that marketing plan
// templates are expanded from, plus the descriptive-content catalog shown
// to clients during presentations.
package catalog

import "github.com/shopspring/decimal"

// Product is a single catalog entry: a named service with a monthly price.
type Product struct {
	Name  string
	Price decimal.Decimal
}

// Description is an entry in the descriptive-content catalog. Options link
// to it by index, matched against their catalog name.
type Description struct {
	Title  string
	Detail string
}

// Catalog bundles the product lists a plan template draws from.
type Catalog struct {
	FoundationProducts []Product
	InternalProducts   []Product
	Descriptions       []Description
}

// DescriptionIndex returns the index of the description whose title exactly
// matches name. The boolean is false when no title matches; catalogs are
// not required to describe every product.
func (c *Catalog) DescriptionIndex(name string) (int, bool) {
	for i, d := range c.Descriptions {
		if d.Title == name {
			return i, true
		}
	}
	return 0, false
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Default returns the built-in product catalog.
func Default() *Catalog {
	return &Catalog{
		FoundationProducts: []Product{
			{Name: "Practice Branding", Price: price("500")},
			{Name: "Custom Website", Price: price("300")},
			{Name: "Search Engine Optimization", Price: price("750")},
			{Name: "Reputation Management", Price: price("250")},
			{Name: "Social Media Management", Price: price("400")},
		},
		InternalProducts: []Product{
			{Name: "Patient Referral Program", Price: price("200")},
			{Name: "In-Office Signage", Price: price("150")},
			{Name: "Patient Reactivation Campaign", Price: price("350")},
			{Name: "Review Generation", Price: price("175")},
		},
		Descriptions: []Description{
			{Title: "Practice Branding", Detail: "Logo, color palette and collateral that give the practice a consistent identity."},
			{Title: "Custom Website", Detail: "A responsive practice website with online scheduling and new-patient forms."},
			{Title: "Search Engine Optimization", Detail: "Ongoing on-page and local SEO so the practice ranks for nearby searches."},
			{Title: "Reputation Management", Detail: "Monitoring and response handling for the practice's online reviews."},
			{Title: "Social Media Management", Detail: "Scheduled posting and engagement on the practice's social accounts."},
			{Title: "Patient Referral Program", Detail: "A structured program rewarding existing patients for referrals."},
			{Title: "Patient Reactivation Campaign", Detail: "Outreach to lapsed patients to bring them back onto the schedule."},
			{Title: "Review Generation", Detail: "Automated post-visit requests that grow the practice's review count."},
		},
	}
}
