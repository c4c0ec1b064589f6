package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PracticeType classifies a client's practice and drives which marketing
// plan template is used when a plan is built for them.
type PracticeType string

const (
	PracticeGeneral   PracticeType = "general"
	PracticeSpecialty PracticeType = "specialty"
	PracticeStartup   PracticeType = "startup"
)

// ValidPracticeType reports whether t is one of the known practice types.
func ValidPracticeType(t PracticeType) bool {
	switch t {
	case PracticeGeneral, PracticeSpecialty, PracticeStartup:
		return true
	}
	return false
}

// Client represents one practice the consultant is working with.
// The marketing plan is embedded: a client owns at most one plan, and the
// plan never outlives its client.
type Client struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecordName   string             `bson:"recordName" json:"recordName"` // Stable opaque key used by the cloud replica
	ConsultantID primitive.ObjectID `bson:"consultantId" json:"consultantId"`

	FirstName    string       `bson:"firstName" json:"firstName"`
	LastName     string       `bson:"lastName" json:"lastName"`
	PracticeName string       `bson:"practiceName" json:"practiceName"`
	PracticeType PracticeType `bson:"practiceType,omitempty" json:"practiceType,omitempty"`

	Phone         string `bson:"phone" json:"phone"`
	Email         string `bson:"email" json:"email"`
	StreetAddress string `bson:"streetAddress" json:"streetAddress"`
	City          string `bson:"city,omitempty" json:"city,omitempty"`
	State         string `bson:"state,omitempty" json:"state,omitempty"`
	Zip           string `bson:"zip" json:"zip"`
	Notes         string `bson:"notes,omitempty" json:"notes,omitempty"`

	// Key of the client photo in object storage; the bytes live in S3.
	PhotoObjectKey *string `bson:"photoObjectKey,omitempty" json:"photoObjectKey,omitempty"`

	MonthlyBudget     decimal.Decimal `bson:"monthlyBudget" json:"monthlyBudget"`
	CurrentProduction decimal.Decimal `bson:"currentProduction" json:"currentProduction"`
	ProductionGoal    decimal.Decimal `bson:"productionGoal" json:"productionGoal"`

	InitialContact time.Time `bson:"initialContact" json:"initialContact"`
	// Unix seconds, refreshed on every mutation.
	LastModified int64 `bson:"lastModified" json:"lastModified"`

	MarketingPlan *MarketingPlan `bson:"marketingPlan,omitempty" json:"marketingPlan,omitempty"`
}

// Touch refreshes the last-modification timestamp. The timestamp never
// moves backwards, even if the wall clock does.
func (c *Client) Touch() {
	if now := time.Now().Unix(); now > c.LastModified {
		c.LastModified = now
	}
}

func (c *Client) FullName() string {
	return c.FirstName + " " + c.LastName
}
