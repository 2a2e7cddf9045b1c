package catalog

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/orders"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

const (
	maxImageWidth    = 1200
	defaultThumbSize = 320
	jpegQuality      = 80
)

// UploadImage stores a product photo and its thumbnail. Everything is
// re-encoded as JPEG at a bounded width, so arbitrary upload sizes never
// reach the storefront.
func (s *Service) UploadImage(ctx context.Context, productID, filename, alt string, r io.Reader, actor string) (*models.ProductImage, error) {
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	var img image.Image
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		img, err = png.Decode(r)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(r)
	default:
		return nil, &orders.ValidationError{Field: "image", Reason: "only PNG, JPG and JPEG are supported"}
	}
	if err != nil {
		return nil, &orders.ValidationError{Field: "image", Reason: "could not decode image"}
	}

	id := uuid.NewString()
	dir := filepath.Join(s.media.UploadDir, "products", productID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	full := resize.Resize(maxImageWidth, 0, img, resize.Lanczos3)
	if err := writeJPEG(filepath.Join(dir, id+".jpg"), full); err != nil {
		return nil, err
	}

	thumbWidth := s.media.ThumbnailWidth
	if thumbWidth <= 0 {
		thumbWidth = defaultThumbSize
	}
	thumb := resize.Resize(uint(thumbWidth), 0, img, resize.Lanczos3)
	if err := writeJPEG(filepath.Join(dir, id+"_thumb.jpg"), thumb); err != nil {
		return nil, err
	}

	productImage := models.ProductImage{
		ID:        id,
		URL:       fmt.Sprintf("/media/products/%s/%s.jpg", productID, id),
		Thumbnail: fmt.Sprintf("/media/products/%s/%s_thumb.jpg", productID, id),
		Alt:       alt,
		Position:  len(product.Images),
		IsPrimary: len(product.Images) == 0,
	}
	product.Images = append(product.Images, productImage)

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "product.image_added", productID, actor, map[string]any{
		"imageId": id,
	})
	return &productImage, nil
}

// DeleteImage drops the image record and its files. The first remaining
// image inherits primary.
func (s *Service) DeleteImage(ctx context.Context, productID, imageID, actor string) error {
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}

	var removed *models.ProductImage
	kept := product.Images[:0]
	for i := range product.Images {
		if product.Images[i].ID == imageID {
			img := product.Images[i]
			removed = &img
			continue
		}
		kept = append(kept, product.Images[i])
	}
	if removed == nil {
		return &orders.ValidationError{Field: "imageId", Reason: "image not on product"}
	}

	for i := range kept {
		kept[i].Position = i
	}
	if removed.IsPrimary && len(kept) > 0 {
		kept[0].IsPrimary = true
	}
	product.Images = kept

	if err := s.products.Update(ctx, product); err != nil {
		return err
	}

	for _, url := range []string{removed.URL, removed.Thumbnail} {
		if url == "" {
			continue
		}
		path := filepath.Join(s.media.UploadDir, strings.TrimPrefix(url, "/media/"))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("image file removal failed", zap.String("path", path), zap.Error(err))
		}
	}

	s.audit.Record(ctx, "product.image_removed", productID, actor, map[string]any{
		"imageId": imageID,
	})
	return nil
}

func writeJPEG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	defer out.Close()
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	return nil
}
