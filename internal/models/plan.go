package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Feature is a closed capability tag. Anything outside the enum is
// rejected on decode so a typo can never silently drop an entitlement.
type Feature string

const (
	FeatureFeaturedListing Feature = "Featured Listing"
	FeaturePrioritySupport Feature = "Priority Support"
	FeatureAnalyticsAccess Feature = "Analytics Access"
	FeatureCustomBranding  Feature = "Custom Branding"
)

func ParseFeature(tag string) (Feature, error) {
	switch Feature(tag) {
	case FeatureFeaturedListing, FeaturePrioritySupport, FeatureAnalyticsAccess, FeatureCustomBranding:
		return Feature(tag), nil
	}
	return "", fmt.Errorf("unknown feature tag %q", tag)
}

// FeatureSet is the set of capability tags a plan grants.
type FeatureSet []Feature

func NewFeatureSet(tags []string) (FeatureSet, error) {
	seen := map[Feature]struct{}{}
	var fs FeatureSet
	for _, tag := range tags {
		f, err := ParseFeature(tag)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		fs = append(fs, f)
	}
	return fs, nil
}

func (fs FeatureSet) Has(f Feature) bool {
	for _, have := range fs {
		if have == f {
			return true
		}
	}
	return false
}

func (fs *FeatureSet) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var raw []string
	if err := bson.UnmarshalValue(t, data, &raw); err != nil {
		return err
	}
	set, err := NewFeatureSet(raw)
	if err != nil {
		return err
	}
	*fs = set
	return nil
}

func (fs *FeatureSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	set, err := NewFeatureSet(raw)
	if err != nil {
		return err
	}
	*fs = set
	return nil
}

// Plan is the static reference entity a subscription is bought against.
// Plans are created by an administrator and never deleted while a live
// subscription references them; Deactivate only hides them from sale.
type Plan struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name"          json:"name"`
	Price        float64            `bson:"price"         json:"price"`
	DurationDays int                `bson:"duration_days" json:"duration_days"`
	Features     FeatureSet         `bson:"features"      json:"features"`
	PriorityRank int                `bson:"priority_rank" json:"priority_rank"`
	IsActive     bool               `bson:"is_active"     json:"is_active"`
	CreatedAt    time.Time          `bson:"created_at"    json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"    json:"updated_at"`
}

// PremiumFeatures are the boolean flags projected onto the business record.
type PremiumFeatures struct {
	FeaturedListing bool `bson:"featured_listing" json:"featured_listing"`
	PrioritySupport bool `bson:"priority_support" json:"priority_support"`
	AnalyticsAccess bool `bson:"analytics_access" json:"analytics_access"`
	CustomBranding  bool `bson:"custom_branding"  json:"custom_branding"`
}

func PremiumFeaturesFrom(fs FeatureSet) PremiumFeatures {
	return PremiumFeatures{
		FeaturedListing: fs.Has(FeatureFeaturedListing),
		PrioritySupport: fs.Has(FeaturePrioritySupport),
		AnalyticsAccess: fs.Has(FeatureAnalyticsAccess),
		CustomBranding:  fs.Has(FeatureCustomBranding),
	}
}
