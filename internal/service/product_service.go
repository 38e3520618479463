package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"marketplace/internal/apperr"
	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

const productCacheTTL = 30 * time.Second

// ProductService serves catalog reads. Lookups go through a short-lived
// redis cache; stale stock here is fine because the binding stock check
// happens at settlement.
type ProductService struct {
	products repository.ProductRepository
	rdb      *redis.Client
}

func NewProductService(products repository.ProductRepository, rdb *redis.Client) *ProductService {
	return &ProductService{products: products, rdb: rdb}
}

func (s *ProductService) GetByID(ctx context.Context, productID int64) (*entity.Product, error) {
	key := fmt.Sprintf("product:%d", productID)
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.Error().Err(err).Int64("product_id", productID).Msg("Error reading product cache")
		}
		if cached != "" {
			var p entity.Product
			if err := json.Unmarshal([]byte(cached), &p); err == nil {
				return &p, nil
			}
		}
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "product_not_found", "product not found")
		}
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}

	if s.rdb != nil {
		payload, err := json.Marshal(product)
		if err == nil {
			if err := s.rdb.Set(ctx, key, payload, productCacheTTL).Err(); err != nil {
				logger.Error().Err(err).Int64("product_id", productID).Msg("Error writing product cache")
			}
		}
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context) ([]entity.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}
