package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/S3OD177/trendyolxsync/internal/models"
	"github.com/S3OD177/trendyolxsync/pkg/trendyol"
)

// ChunkSize bounds the number of barcodes sent in one buy-box request.
const ChunkSize = 20

// BuyboxSource is the subset of the Trendyol client used for enrichment.
type BuyboxSource interface {
	GetBuyboxInformation(ctx context.Context, barcodes []string) ([]trendyol.BuyboxInfo, error)
}

// PricingService looks up buy-box entries for batches of barcodes.
type PricingService struct {
	source    BuyboxSource
	chunkSize int
}

// NewPricingService constructs a PricingService with the default chunk size.
func NewPricingService(source BuyboxSource) *PricingService {
	return &PricingService{source: source, chunkSize: ChunkSize}
}

// Enrich returns the buy-box entries found for barcodes, keyed by trimmed
// barcode. Blank and duplicate barcodes are dropped before any request. A
// chunk that fails is logged and skipped; its barcodes simply get no entry.
// Only authentication failures and context cancellation abort the call.
func (s *PricingService) Enrich(ctx context.Context, barcodes []string) (map[string]models.PricingEntry, error) {
	unique := dedupeBarcodes(barcodes)
	entries := make(map[string]models.PricingEntry, len(unique))
	if len(unique) == 0 {
		return entries, nil
	}

	for _, chunk := range chunkStrings(unique, s.chunkSize) {
		infos, err := s.source.GetBuyboxInformation(ctx, chunk)
		if err != nil {
			if errors.Is(err, trendyol.ErrUnauthorized) {
				return nil, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn().Err(err).
				Int("chunk_size", len(chunk)).
				Str("first_barcode", chunk[0]).
				Msg("Buybox chunk failed, skipping")
			continue
		}

		for _, info := range infos {
			barcode := info.Barcode.String()
			if barcode == "" {
				continue
			}
			entries[barcode] = models.PricingEntry{
				Barcode:           barcode,
				BuyboxPrice:       info.BuyboxPrice,
				HasMultipleSeller: info.HasMultipleSeller,
				BuyboxOrder:       info.BuyboxOrder,
			}
		}
	}

	log.Debug().Int("requested", len(unique)).Int("found", len(entries)).Msg("Buybox enrichment done")
	return entries, nil
}

// dedupeBarcodes trims barcodes and drops blanks and repeats, keeping first
// occurrence order.
func dedupeBarcodes(barcodes []string) []string {
	seen := make(map[string]struct{}, len(barcodes))
	out := make([]string, 0, len(barcodes))
	for _, b := range barcodes {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

func chunkStrings(items []string, size int) [][]string {
	if size <= 0 {
		size = ChunkSize
	}
	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
