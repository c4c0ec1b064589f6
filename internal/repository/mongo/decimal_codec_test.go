package mongo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type moneyDoc struct {
	Amount decimal.Decimal `bson:"amount"`
}

func TestDecimalRoundTrip(t *testing.T) {
	registry := Registry()

	for _, s := range []string{"0", "500", "1250.50", "0.01", "-3.99"} {
		doc := moneyDoc{Amount: decimal.RequireFromString(s)}

		raw, err := bson.MarshalWithRegistry(registry, doc)
		require.NoError(t, err)

		var got moneyDoc
		require.NoError(t, bson.UnmarshalWithRegistry(registry, raw, &got))
		assert.True(t, got.Amount.Equal(doc.Amount), "round trip of %s", s)
	}
}

func TestDecimalStoredAsString(t *testing.T) {
	raw, err := bson.MarshalWithRegistry(Registry(), moneyDoc{Amount: decimal.RequireFromString("1250.50")})
	require.NoError(t, err)

	// Decoded without the codec, the field reads back as a plain string.
	var plain struct {
		Amount string `bson:"amount"`
	}
	require.NoError(t, bson.Unmarshal(raw, &plain))
	assert.Equal(t, "1250.5", plain.Amount)
}

func TestDecimalDecodeFromNumericTypes(t *testing.T) {
	registry := Registry()

	for name, doc := range map[string]bson.D{
		"double": {{Key: "amount", Value: 499.5}},
		"int32":  {{Key: "amount", Value: int32(200)}},
		"int64":  {{Key: "amount", Value: int64(750)}},
		"null":   {{Key: "amount", Value: nil}},
	} {
		raw, err := bson.Marshal(doc)
		require.NoError(t, err, name)

		var got moneyDoc
		require.NoError(t, bson.UnmarshalWithRegistry(registry, raw, &got), name)
	}

	raw, err := bson.Marshal(bson.D{{Key: "amount", Value: int64(750)}})
	require.NoError(t, err)
	var got moneyDoc
	require.NoError(t, bson.UnmarshalWithRegistry(registry, raw, &got))
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(750)))
}
