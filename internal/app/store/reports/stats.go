package reportstore

import (
	"context"

	"github.com/wastehub/wastehub/internal/app/system/apperr"
	"github.com/wastehub/wastehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stats are dashboard counters.
type Stats struct {
	Total        int64 `bson:"total" json:"total"`
	Open         int64 `bson:"open" json:"open"`
	Resolved     int64 `bson:"resolved" json:"resolved"`
	HighSeverity int64 `bson:"high" json:"high_severity"`
}

// Stats counts reports. With a nil orgID it covers every report; otherwise
// it covers the same set ByOrg returns.
func (s *Store) Stats(ctx context.Context, orgID *primitive.ObjectID) (Stats, error) {
	match := bson.M{}
	if orgID != nil {
		match = bson.M{"$or": bson.A{
			bson.M{"ngoId": *orgID},
			unassignedFilter(),
		}}
	}
	countIf := func(cond bson.M) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{cond, 1, 0}}}
	}
	pipeline := bson.A{
		bson.M{"$match": match},
		bson.M{"$group": bson.M{
			"_id":      nil,
			"total":    bson.M{"$sum": 1},
			"resolved": countIf(bson.M{"$eq": bson.A{"$status", models.StatusResolved}}),
			"high":     countIf(bson.M{"$eq": bson.A{"$severity", models.SeverityHigh}}),
		}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return Stats{}, apperr.Storage("report stats", err)
	}
	defer cur.Close(ctx)

	var st Stats
	if cur.Next(ctx) {
		if err := cur.Decode(&st); err != nil {
			return Stats{}, apperr.Storage("report stats", err)
		}
	}
	if err := cur.Err(); err != nil {
		return Stats{}, apperr.Storage("report stats", err)
	}
	st.Open = st.Total - st.Resolved
	return st, nil
}
