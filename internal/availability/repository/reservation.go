package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	availerrors "lodgeworks/internal/availability/errors"
	"lodgeworks/pkg/config"
	mongotx "lodgeworks/pkg/db/mongo"
	"lodgeworks/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ReservationsCollection = "Reservations"

// ReservationRepository is the persistence boundary for temporary holds.
type ReservationRepository interface {
	Insert(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindOverlapping(ctx context.Context, resourceID string, checkIn, checkOut time.Time, now time.Time, excludeID string) ([]*model.Reservation, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	ExpireBatch(ctx context.Context, now time.Time) ([]string, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(ReservationsCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoReservationRepository) Insert(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	reservation.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, reservation)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		reservation.ID = oid.Hex()
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", availerrors.ErrInvalidID, id)
	}

	var reservation model.Reservation
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, availerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return &reservation, nil
}

// FindOverlapping returns the holds on the resource that still block
// [checkIn, checkOut) at the given instant: status active, not yet expired,
// window intersecting, optionally excluding one reservation id.
func (r *mongoReservationRepository) FindOverlapping(
	ctx context.Context,
	resourceID string,
	checkIn, checkOut time.Time,
	now time.Time,
	excludeID string,
) ([]*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"resource_id": resourceID,
		"status":      model.ReservationStatusActive,
		"expires_at":  bson.M{"$gt": now},
		"check_in":    bson.M{"$lt": checkOut},
		"check_out":   bson.M{"$gt": checkIn},
	}
	if excludeID != "" {
		objectID, err := primitive.ObjectIDFromHex(excludeID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", availerrors.ErrInvalidID, excludeID)
		}
		filter["_id"] = bson.M{"$ne": objectID}
	}

	opts := options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", availerrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	if result.MatchedCount == 0 {
		return availerrors.ErrNotFound
	}

	return nil
}

// ExpireBatch transitions every active hold whose expiry has passed to
// expired in one UpdateMany, and returns the distinct resource ids touched
// so the caller can invalidate their cached availability. An expiry equal
// to now counts as already expired.
func (r *mongoReservationRepository) ExpireBatch(ctx context.Context, now time.Time) ([]string, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"status":     model.ReservationStatusActive,
		"expires_at": bson.M{"$lte": now},
	}

	rawIDs, err := r.collection.Distinct(ctx, "resource_id", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to collect expiring resource ids: %w", err)
	}

	resourceIDs := make([]string, 0, len(rawIDs))
	for _, raw := range rawIDs {
		if id, ok := raw.(string); ok {
			resourceIDs = append(resourceIDs, id)
		}
	}
	if len(resourceIDs) == 0 {
		return nil, nil
	}

	_, err = r.collection.UpdateMany(ctx, filter,
		bson.M{"$set": bson.M{"status": model.ReservationStatusExpired}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to expire reservations: %w", err)
	}

	return resourceIDs, nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
