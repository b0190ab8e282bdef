package services

import (
	"context"
	"fmt"
	"io"

	"imob-crm/internal/logging"
	"imob-crm/internal/storage"
	"imob-crm/pkg/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PropertyInput carries property fields. Nil fields are left unchanged on update.
type PropertyInput struct {
	Kind         *string  `json:"kind"`
	Title        *string  `json:"title"`
	Developer    *string  `json:"developer"`
	Address      *string  `json:"address"`
	City         *string  `json:"city"`
	Neighborhood *string  `json:"neighborhood"`
	Price        *float64 `json:"price"`
	AreaM2       *float64 `json:"area_m2"`
	Bedrooms     *int     `json:"bedrooms"`
	Bathrooms    *int     `json:"bathrooms"`
	ParkingSpots *int     `json:"parking_spots"`
	Status       *string  `json:"status"`
	Description  *string  `json:"description"`
}

// PropertyFilter narrows a property listing
type PropertyFilter struct {
	Kind   string
	Status string
	City   string
	Search string
}

// PropertyService manages the broker's portfolio
type PropertyService struct {
	db    *gorm.DB
	store storage.Provider
	log   *zap.Logger
}

// NewPropertyService creates a PropertyService. store may be nil when
// object storage is not configured.
func NewPropertyService(db *gorm.DB, store storage.Provider) *PropertyService {
	return &PropertyService{db: db, store: store, log: logging.Named("properties")}
}

// StorageEnabled reports whether photo uploads are available
func (s *PropertyService) StorageEnabled() bool { return s.store != nil }

func (in *PropertyInput) apply(p *models.Property) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = trimmed(src)
		}
	}
	set(&p.Kind, in.Kind)
	set(&p.Title, in.Title)
	set(&p.Developer, in.Developer)
	set(&p.Address, in.Address)
	set(&p.City, in.City)
	set(&p.Neighborhood, in.Neighborhood)
	set(&p.Status, in.Status)
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.AreaM2 != nil {
		p.AreaM2 = *in.AreaM2
	}
	if in.Bedrooms != nil {
		p.Bedrooms = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		p.Bathrooms = *in.Bathrooms
	}
	if in.ParkingSpots != nil {
		p.ParkingSpots = *in.ParkingSpots
	}

	switch {
	case p.Title == "":
		return invalid("title is required")
	case !oneOf(p.Kind, models.PropertyKindDevelopment, models.PropertyKindResale):
		return invalid("unknown kind %q", p.Kind)
	case !oneOf(p.Status, models.PropertyStatusAvailable, models.PropertyStatusReserved, models.PropertyStatusSold):
		return invalid("unknown status %q", p.Status)
	case p.Price < 0 || p.AreaM2 < 0:
		return invalid("price and area must not be negative")
	case p.Bedrooms < 0 || p.Bathrooms < 0 || p.ParkingSpots < 0:
		return invalid("room counts must not be negative")
	}
	return nil
}

// List returns one page of the owner's properties, newest first
func (s *PropertyService) List(ctx context.Context, ownerID string, filter PropertyFilter, page Page) ([]models.Property, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Property{}).Where("owner_id = ?", ownerID)
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.City != "" {
		q = q.Where("LOWER(city) = LOWER(?)", filter.City)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(neighborhood) LIKE ? ESCAPE '\\' OR LOWER(developer) LIKE ? ESCAPE '\\')", pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	var props []models.Property
	if err := page.apply(q).Order("created_at DESC, id DESC").Find(&props).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}
	return props, total, nil
}

// Get loads one property
func (s *PropertyService) Get(ctx context.Context, ownerID string, id uint) (*models.Property, error) {
	var prop models.Property
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&prop, id).Error; err != nil {
		return nil, notFound("property", err)
	}
	return &prop, nil
}

// Create stores a new property
func (s *PropertyService) Create(ctx context.Context, ownerID string, in PropertyInput) (*models.Property, error) {
	prop := &models.Property{
		OwnerID: ownerID,
		Kind:    models.PropertyKindResale,
		Status:  models.PropertyStatusAvailable,
		Photos:  []string{},
	}
	if err := in.apply(prop); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(prop).Error; err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}
	return prop, nil
}

// Update applies the non-nil fields of in
func (s *PropertyService) Update(ctx context.Context, ownerID string, id uint, in PropertyInput) (*models.Property, error) {
	prop, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(prop); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(prop).Error; err != nil {
		return nil, fmt.Errorf("failed to update property: %w", err)
	}
	return prop, nil
}

// Delete soft-deletes a property. Negotiations keep their reference.
func (s *PropertyService) Delete(ctx context.Context, ownerID string, id uint) error {
	res := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&models.Property{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete property: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("property %w", ErrNotFound)
	}
	return nil
}

// AddPhoto uploads a photo and appends its URL to the property
func (s *PropertyService) AddPhoto(ctx context.Context, ownerID string, id uint, filename, contentType string, data io.Reader) (*models.Property, error) {
	if s.store == nil {
		return nil, storage.ErrDisabled
	}
	prop, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	key := storage.PhotoKey(prop.ID, filename)
	url, err := s.store.Upload(ctx, key, contentType, data)
	if err != nil {
		return nil, err
	}

	prop.Photos = append(prop.Photos, url)
	if err := s.db.WithContext(ctx).Model(prop).Select("photos").Updates(prop).Error; err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Warn("failed to remove orphan photo", zap.String("key", key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to store photo url: %w", err)
	}
	return prop, nil
}
