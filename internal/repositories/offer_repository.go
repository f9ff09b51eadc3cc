package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jubily/internal/models"
	"jubily/internal/util"
)

var ErrOfferNotFound = errors.New("offer not found")

type OfferRepository struct {
	db *pgxpool.Pool
}

func NewOfferRepository(db *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) Create(ctx context.Context, name, hoplink string, active bool) (*models.Offer, error) {
	o := &models.Offer{
		ID:      util.NewID("off"),
		Name:    name,
		Hoplink: hoplink,
		Active:  active,
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO offers (id, name, hoplink, active)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, o.ID, o.Name, o.Hoplink, o.Active).Scan(&o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OfferRepository) Get(ctx context.Context, id string) (*models.Offer, error) {
	var o models.Offer
	err := r.db.QueryRow(ctx, `
		SELECT id, name, hoplink, active, created_at
		FROM offers
		WHERE id=$1
	`, id).Scan(&o.ID, &o.Name, &o.Hoplink, &o.Active, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// FindActive returns the most recently created active offer, or
// ErrOfferNotFound when no offer is active. Callers treat the offer as
// optional and continue without one.
func (r *OfferRepository) FindActive(ctx context.Context) (*models.Offer, error) {
	var o models.Offer
	err := r.db.QueryRow(ctx, `
		SELECT id, name, hoplink, active, created_at
		FROM offers
		WHERE active
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&o.ID, &o.Name, &o.Hoplink, &o.Active, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
