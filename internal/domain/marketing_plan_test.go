package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smplanner/marketing-app/internal/catalog"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		FoundationProducts: []catalog.Product{
			{Name: "Practice Branding", Price: decimal.RequireFromString("500")},
			{Name: "Custom Website", Price: decimal.RequireFromString("300")},
		},
		InternalProducts: []catalog.Product{
			{Name: "Patient Referral Program", Price: decimal.RequireFromString("200")},
		},
		Descriptions: []catalog.Description{
			{Title: "Custom Website", Detail: "A practice website."},
		},
	}
}

func TestNewMarketingPlanGeneral(t *testing.T) {
	plan := NewMarketingPlan(PracticeGeneral, testCatalog())

	// External placeholder first, then foundation, then internal.
	require.Len(t, plan.Options, 4)

	external := plan.Options[0]
	assert.Equal(t, CategoryExternal, external.Category)
	assert.Equal(t, "no option selected", external.Name)
	assert.True(t, external.Active)
	assert.True(t, external.Price.IsZero())

	foundation := plan.OptionsForCategory(CategoryFoundation, false)
	require.Len(t, foundation, 2)
	internal := plan.OptionsForCategory(CategoryInternal, false)
	require.Len(t, internal, 1)
	for _, opt := range append(foundation, internal...) {
		assert.False(t, opt.Active, "catalog options start inactive")
	}

	// Only "Custom Website" has a catalog description.
	assert.Nil(t, foundation[0].DescriptionIndex)
	require.NotNil(t, foundation[1].DescriptionIndex)
	assert.Equal(t, 0, *foundation[1].DescriptionIndex)

	// The external reference points at the placeholder.
	require.NotNil(t, plan.ExternalID)
	assert.Equal(t, external.ID, *plan.ExternalID)
}

func TestNewMarketingPlanSpecialty(t *testing.T) {
	plan := NewMarketingPlan(PracticeSpecialty, testCatalog())

	require.Len(t, plan.Options, 4)
	assert.Equal(t, CategoryBusinessToBusiness, plan.Options[0].Category)
	assert.Equal(t, "none", plan.Options[0].Name)
	assert.False(t, plan.Options[0].Active)

	// External placeholder comes last and is active.
	last := plan.Options[len(plan.Options)-1]
	assert.Equal(t, CategoryExternal, last.Category)
	assert.True(t, last.Active)

	ext := plan.ExternalOption()
	require.NotNil(t, ext)
	assert.Equal(t, last.ID, ext.ID)
}

func TestNewMarketingPlanStartup(t *testing.T) {
	plan := NewMarketingPlan(PracticeStartup, testCatalog())

	require.Len(t, plan.Options, 1)
	opt := plan.Options[0]
	assert.Equal(t, CategoryStartup, opt.Category)
	assert.Equal(t, "Startup Marketing Package", opt.Name)
	assert.False(t, opt.Active)
	assert.True(t, opt.Price.IsZero())

	assert.Nil(t, plan.ExternalID)
	assert.Nil(t, plan.ExternalOption())
}

func TestPlanCost(t *testing.T) {
	plan := NewMarketingPlan(PracticeGeneral, testCatalog())

	// Only the zero-priced external placeholder is active.
	assert.True(t, plan.Cost().IsZero())

	foundation := plan.OptionsForCategory(CategoryFoundation, false)
	plan.OptionByID(foundation[0].ID).Active = true
	assert.True(t, plan.Cost().Equal(decimal.RequireFromString("500")))

	plan.OptionByID(foundation[1].ID).Active = true
	assert.True(t, plan.Cost().Equal(decimal.RequireFromString("800")))

	plan.OptionByID(foundation[0].ID).Active = false
	assert.True(t, plan.Cost().Equal(decimal.RequireFromString("300")))
}

func TestPlanCostEmpty(t *testing.T) {
	plan := &MarketingPlan{}
	assert.True(t, plan.Cost().IsZero())
}

func TestOptionsForCategoryActiveOnly(t *testing.T) {
	plan := NewMarketingPlan(PracticeGeneral, testCatalog())

	assert.Empty(t, plan.OptionsForCategory(CategoryFoundation, true))

	foundation := plan.OptionsForCategory(CategoryFoundation, false)
	plan.OptionByID(foundation[1].ID).Active = true

	active := plan.OptionsForCategory(CategoryFoundation, true)
	require.Len(t, active, 1)
	assert.Equal(t, foundation[1].ID, active[0].ID)
}

func TestOptionsForCategoryUnknown(t *testing.T) {
	plan := NewMarketingPlan(PracticeGeneral, testCatalog())
	assert.Empty(t, plan.OptionsForCategory(CategorySuburban, false))
}

func TestEnsureExternalRef(t *testing.T) {
	plan := NewMarketingPlan(PracticeGeneral, testCatalog())

	// A plan arriving from the replica without the reference gets it
	// re-derived from the first external option.
	want := *plan.ExternalID
	plan.ExternalID = nil
	plan.EnsureExternalRef()
	require.NotNil(t, plan.ExternalID)
	assert.Equal(t, want, *plan.ExternalID)

	// A startup plan has nothing to designate.
	startup := NewMarketingPlan(PracticeStartup, testCatalog())
	startup.EnsureExternalRef()
	assert.Nil(t, startup.ExternalID)
}

func TestClientTouchMonotonic(t *testing.T) {
	c := &Client{}
	c.Touch()
	first := c.LastModified
	assert.Greater(t, first, int64(0))

	c.LastModified = first + 100 // Pretend the clock was ahead
	c.Touch()
	assert.GreaterOrEqual(t, c.LastModified, first+100)
}
