package postgres

import (
	"context"
	"testing"

	"github.com/routesafe/bridgeguard/internal/core/domain"
)

func TestUpsertBatch_RejectsEmptyID(t *testing.T) {
	repo := NewBridgeRepo(&DB{})

	bridges := []domain.Bridge{
		{ID: "BG-1", Location: domain.GeoPoint{Lat: 51.5, Lon: -1.0}, ClearanceM: 4.2},
		{Location: domain.GeoPoint{Lat: 51.6, Lon: -1.1}, ClearanceM: 3.8},
	}

	err := repo.UpsertBatch(context.Background(), bridges)
	if err == nil {
		t.Fatal("expected error for bridge without an id")
	}
}
