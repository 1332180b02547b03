package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNewFeatureSet(t *testing.T) {
	fs, err := NewFeatureSet([]string{"Featured Listing", "Priority Support", "Featured Listing"})
	if err != nil {
		t.Fatalf("NewFeatureSet returned error: %v", err)
	}
	want := FeatureSet{FeatureFeaturedListing, FeaturePrioritySupport}
	if !reflect.DeepEqual(fs, want) {
		t.Errorf("NewFeatureSet = %v, want %v", fs, want)
	}
}

func TestNewFeatureSet_UnknownTag(t *testing.T) {
	if _, err := NewFeatureSet([]string{"Featured Listing", "Fetured Listing"}); err == nil {
		t.Error("expected error for misspelled tag, got nil")
	}
}

func TestFeatureSet_Has(t *testing.T) {
	fs := FeatureSet{FeatureAnalyticsAccess}
	if !fs.Has(FeatureAnalyticsAccess) {
		t.Error("Has(AnalyticsAccess) = false, want true")
	}
	if fs.Has(FeatureCustomBranding) {
		t.Error("Has(CustomBranding) = true, want false")
	}
}

func TestFeatureSet_UnmarshalJSONRejectsUnknown(t *testing.T) {
	var fs FeatureSet
	if err := json.Unmarshal([]byte(`["Featured Listing","Free Coffee"]`), &fs); err == nil {
		t.Error("expected unmarshal error for unknown tag, got nil")
	}
}

func TestPremiumFeaturesFrom(t *testing.T) {
	fs := FeatureSet{FeatureFeaturedListing, FeatureCustomBranding}
	got := PremiumFeaturesFrom(fs)
	want := PremiumFeatures{FeaturedListing: true, CustomBranding: true}
	if got != want {
		t.Errorf("PremiumFeaturesFrom = %+v, want %+v", got, want)
	}
}

func TestPremiumFeaturesFrom_Empty(t *testing.T) {
	if got := PremiumFeaturesFrom(nil); got != (PremiumFeatures{}) {
		t.Errorf("PremiumFeaturesFrom(nil) = %+v, want zero flags", got)
	}
}
