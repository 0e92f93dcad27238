package reportstore

import (
	"context"

	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RejectSorts makes every sorted read send a sort key the server refuses.
func RejectSorts(s *Store) {
	s.findSorted = func(ctx context.Context, filter bson.M, _ bson.D) ([]models.Report, error) {
		return s.findAll(ctx, filter, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: "sideways"}}))
	}
}
