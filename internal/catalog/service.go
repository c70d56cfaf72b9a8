// Package catalog serves the product read model consumed by order
// composition, with a Redis read-through cache in front of Postgres.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-vendas/internal/common"
	"github.com/noah-isme/backend-vendas/internal/pricing"
	"github.com/noah-isme/backend-vendas/internal/repo"
)

type productSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (pricing.Product, error)
	List(ctx context.Context, limit, offset int32) ([]pricing.Product, error)
}

// Service orchestrates product reads, DTO assembly and caching.
type Service struct {
	products productSource
	cache    *Cache
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Products productSource
	Cache    *Cache
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Products == nil {
		return nil, errors.New("catalog: product source is required")
	}
	return &Service{products: cfg.Products, cache: cfg.Cache}, nil
}

// Discount is the public shape of a promotion or quantity discount.
type Discount struct {
	Threshold *decimal.Decimal `json:"threshold,omitempty"`
	Kind      string           `json:"kind"`
	Value     decimal.Decimal  `json:"value"`
}

// Product is the public catalog payload.
type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	BasePrice        decimal.Decimal `json:"basePrice"`
	UnitCode         string          `json:"unitCode"`
	UnitFractional   bool            `json:"unitFractional"`
	Promotion        *Discount       `json:"promotion,omitempty"`
	QuantityDiscount *Discount       `json:"quantityDiscount,omitempty"`
}

// PriceQuote is the resolved price for one (product, quantity) pair.
type PriceQuote struct {
	ProductID     string          `json:"productId"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Applied       pricing.Applied `json:"applied"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
}

// Get returns one product, read through the cache.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	key := productCacheKey(id)
	if s.cache != nil {
		var cached Product
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Product{}, common.NotFound("product not found")
		}
		return Product{}, fmt.Errorf("load product: %w", err)
	}
	dto := toDTO(p)
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, dto)
	}
	return dto, nil
}

// Load returns the domain read model consumed by the price resolver,
// served through the same cache as Get.
func (s *Service) Load(ctx context.Context, id uuid.UUID) (pricing.Product, error) {
	dto, err := s.Get(ctx, id)
	if err != nil {
		return pricing.Product{}, err
	}
	return fromDTO(dto)
}

// List returns a page of active products, uncached.
func (s *Service) List(ctx context.Context, limit, offset int32) ([]Product, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.products.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(rows))
	for _, p := range rows {
		out = append(out, toDTO(p))
	}
	return out, nil
}

// ResolvePrice quotes the effective unit price for the quantity. Callers
// use it to preview a line before adding it to a draft.
func (s *Service) ResolvePrice(ctx context.Context, id uuid.UUID, qty decimal.Decimal) (PriceQuote, error) {
	if qty.Sign() <= 0 {
		return PriceQuote{}, common.BadRequest("quantity must be positive", nil)
	}
	p, err := s.Load(ctx, id)
	if err != nil {
		return PriceQuote{}, err
	}
	if !p.Unit.Fractional && !qty.IsInteger() {
		return PriceQuote{}, common.BadRequest(fmt.Sprintf("unit %s does not allow fractional quantities", p.Unit.Code), nil)
	}
	res := pricing.ResolveUnitPrice(p, qty)
	return PriceQuote{
		ProductID:     id.String(),
		Quantity:      qty,
		UnitPrice:     res.UnitPrice,
		OriginalPrice: res.OriginalPrice,
		Applied:       res.Applied,
		LineTotal:     res.LineTotal(qty),
	}, nil
}

// Invalidate drops the cached entry for a product.
func (s *Service) Invalidate(ctx context.Context, id uuid.UUID) error {
	return s.cache.Delete(ctx, productCacheKey(id))
}

func toDTO(p pricing.Product) Product {
	dto := Product{
		ID:             p.ID.String(),
		Name:           p.Name,
		BasePrice:      p.BasePrice,
		UnitCode:       p.Unit.Code,
		UnitFractional: p.Unit.Fractional,
	}
	if p.Promotion != nil {
		dto.Promotion = &Discount{Kind: string(p.Promotion.Kind), Value: p.Promotion.Value}
	}
	if qd := p.QuantityDiscount; qd != nil {
		threshold := qd.Threshold
		dto.QuantityDiscount = &Discount{Threshold: &threshold, Kind: string(qd.Kind), Value: qd.Value}
	}
	return dto
}

func fromDTO(dto Product) (pricing.Product, error) {
	id, err := uuid.Parse(dto.ID)
	if err != nil {
		return pricing.Product{}, fmt.Errorf("parse product id %q: %w", dto.ID, err)
	}
	p := pricing.Product{
		ID:        id,
		Name:      dto.Name,
		BasePrice: dto.BasePrice,
		Unit:      pricing.Unit{Code: dto.UnitCode, Fractional: dto.UnitFractional},
	}
	if dto.Promotion != nil {
		p.Promotion = &pricing.Promotion{
			Kind:  pricing.DiscountKind(dto.Promotion.Kind),
			Value: dto.Promotion.Value,
		}
	}
	if qd := dto.QuantityDiscount; qd != nil && qd.Threshold != nil {
		p.QuantityDiscount = &pricing.QuantityDiscount{
			Threshold: *qd.Threshold,
			Kind:      pricing.DiscountKind(qd.Kind),
			Value:     qd.Value,
		}
	}
	return p, nil
}

func productCacheKey(id uuid.UUID) string {
	return "catalog:product:" + id.String()
}
