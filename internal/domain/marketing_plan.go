package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"smplanner/marketing-app/internal/catalog"
)

// OptionCategory groups marketing options for display and for the
// category-scoped queries on a plan.
type OptionCategory string

const (
	CategoryFoundation         OptionCategory = "foundation"
	CategoryInternal           OptionCategory = "internal"
	CategoryExternal           OptionCategory = "external"
	CategorySuburban           OptionCategory = "suburban"
	CategoryStartup            OptionCategory = "startup"
	CategoryBusinessToBusiness OptionCategory = "businessToBusiness"
)

// ExternalFocus is the direction chosen for a plan's external marketing
// option.
type ExternalFocus string

const (
	FocusDigital            ExternalFocus = "digital"
	FocusTraditional        ExternalFocus = "traditional"
	FocusDigitalTraditional ExternalFocus = "digitalTraditionalMix"
)

// ValidExternalFocus reports whether f is one of the known focus values.
func ValidExternalFocus(f ExternalFocus) bool {
	switch f {
	case FocusDigital, FocusTraditional, FocusDigitalTraditional:
		return true
	}
	return false
}

// B2BAudience is the audience targeted by business-to-business marketing.
type B2BAudience string

const (
	AudienceDoctors  B2BAudience = "doctors"
	AudiencePatients B2BAudience = "patients"
	AudienceBoth     B2BAudience = "both"
)

// Placeholder names used by plan templates before a real selection is made.
const (
	externalPlaceholderName = "no option selected"
	b2bPlaceholderName      = "none"
	startupPackageName      = "Startup Marketing Package"
)

// MarketingOption is a single priced, categorized, togglable line item in a
// plan. Options have no identity outside their plan; the ID exists so
// membership checks and toggles address exactly one option.
type MarketingOption struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Price    decimal.Decimal    `bson:"price" json:"price"` // Invariant: never negative
	Category OptionCategory     `bson:"category" json:"category"`
	Active   bool               `bson:"active" json:"active"`

	Description string `bson:"description,omitempty" json:"description,omitempty"`
	// Index into the descriptive-content catalog, when the option's name
	// matched a catalog title at template-expansion time.
	DescriptionIndex *int `bson:"descriptionIndex,omitempty" json:"descriptionIndex,omitempty"`
}

// MarketingPlan is the ordered collection of marketing options attached to
// one client. Order is a display contract only. The plan holds a direct
// reference to its designated external-marketing option, set when the plan
// template is expanded, so external operations never scan by category.
type MarketingPlan struct {
	RecordName string              `bson:"recordName" json:"recordName"` // Stable opaque key used by the cloud replica
	Options    []MarketingOption   `bson:"options" json:"options"`
	ExternalID *primitive.ObjectID `bson:"externalOptionId,omitempty" json:"externalOptionId,omitempty"`
}

// NewMarketingPlan expands the plan template for the given practice type.
//
// General practices get the external placeholder (active, price 0) followed
// by one inactive option per foundation and internal catalog entry.
// Specialty practices get a business-to-business placeholder, the foundation
// catalog, then the external placeholder. Startups get a single inactive
// startup option. Catalogs may contain duplicate names; the template does
// not deduplicate.
func NewMarketingPlan(practiceType PracticeType, cat *catalog.Catalog) *MarketingPlan {
	plan := &MarketingPlan{RecordName: uuid.NewString()}
	switch practiceType {
	case PracticeSpecialty:
		plan.appendOption(MarketingOption{
			Name:     b2bPlaceholderName,
			Price:    decimal.Zero,
			Category: CategoryBusinessToBusiness,
		})
		plan.appendCatalog(cat.FoundationProducts, CategoryFoundation, cat)
		plan.appendExternalPlaceholder()
	case PracticeStartup:
		plan.appendOption(MarketingOption{
			Name:     startupPackageName,
			Price:    decimal.Zero,
			Category: CategoryStartup,
		})
	default: // general
		plan.appendExternalPlaceholder()
		plan.appendCatalog(cat.FoundationProducts, CategoryFoundation, cat)
		plan.appendCatalog(cat.InternalProducts, CategoryInternal, cat)
	}
	return plan
}

func (p *MarketingPlan) appendOption(opt MarketingOption) *MarketingOption {
	opt.ID = primitive.NewObjectID()
	p.Options = append(p.Options, opt)
	return &p.Options[len(p.Options)-1]
}

func (p *MarketingPlan) appendCatalog(products []catalog.Product, category OptionCategory, cat *catalog.Catalog) {
	for _, product := range products {
		opt := MarketingOption{
			Name:     product.Name,
			Price:    product.Price,
			Category: category,
		}
		if idx, ok := cat.DescriptionIndex(product.Name); ok {
			i := idx
			opt.DescriptionIndex = &i
		}
		p.appendOption(opt)
	}
}

func (p *MarketingPlan) appendExternalPlaceholder() {
	opt := p.appendOption(MarketingOption{
		Name:     externalPlaceholderName,
		Price:    decimal.Zero,
		Category: CategoryExternal,
		Active:   true,
	})
	p.ExternalID = &opt.ID
}

// Cost returns the sum of prices over all active options. A plan with no
// options, or no active options, costs zero.
func (p *MarketingPlan) Cost() decimal.Decimal {
	total := decimal.Zero
	for _, opt := range p.Options {
		if opt.Active {
			total = total.Add(opt.Price)
		}
	}
	return total
}

// OptionsForCategory returns the plan's options in the given category, in
// plan order. With activeOnly set, inactive options are filtered out too.
func (p *MarketingPlan) OptionsForCategory(category OptionCategory, activeOnly bool) []MarketingOption {
	var selected []MarketingOption
	for _, opt := range p.Options {
		if opt.Category != category {
			continue
		}
		if activeOnly && !opt.Active {
			continue
		}
		selected = append(selected, opt)
	}
	return selected
}

// OptionByID returns a pointer to the member option with the given ID, or
// nil when no such option belongs to this plan.
func (p *MarketingPlan) OptionByID(id primitive.ObjectID) *MarketingOption {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i]
		}
	}
	return nil
}

// ExternalOption resolves the plan's designated external-marketing option.
// Returns nil when the plan has none (startup plans).
func (p *MarketingPlan) ExternalOption() *MarketingOption {
	if p.ExternalID == nil {
		return nil
	}
	return p.OptionByID(*p.ExternalID)
}

// EnsureExternalRef repairs the external reference on plans that predate
// it (or arrived from the replica without one) by designating the first
// external-category option.
func (p *MarketingPlan) EnsureExternalRef() {
	if p.ExternalOption() != nil {
		return
	}
	p.ExternalID = nil
	for i := range p.Options {
		if p.Options[i].Category == CategoryExternal {
			p.ExternalID = &p.Options[i].ID
			return
		}
	}
}
