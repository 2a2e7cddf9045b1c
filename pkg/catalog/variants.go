package catalog

import (
	"strings"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/google/uuid"
)

// syncVariants regenerates the variant list from the product's options.
// Every combination of option values gets exactly one variant. Combinations
// that already existed keep their variant untouched; new ones start at the
// product's base price with zero stock.
func syncVariants(p *models.Product) {
	if len(p.Options) == 0 {
		p.Variants = nil
		return
	}

	existing := make(map[string]models.Variant, len(p.Variants))
	for _, v := range p.Variants {
		existing[v.Signature()] = v
	}

	combos := optionCombinations(p.Options)
	variants := make([]models.Variant, 0, len(combos))
	for _, combo := range combos {
		candidate := models.Variant{Options: combo}
		if v, ok := existing[candidate.Signature()]; ok {
			v.Options = combo
			variants = append(variants, v)
			continue
		}
		variants = append(variants, models.Variant{
			ID:      uuid.NewString(),
			SKU:     variantSKU(p, combo),
			Options: combo,
			Price:   p.Price,
			Stock:   0,
		})
	}
	p.Variants = variants
}

// optionCombinations walks the cartesian product of option values in
// declaration order.
func optionCombinations(options []models.ProductOption) []map[string]string {
	combos := []map[string]string{{}}
	for _, option := range options {
		if len(option.Values) == 0 {
			continue
		}
		next := make([]map[string]string, 0, len(combos)*len(option.Values))
		for _, combo := range combos {
			for _, value := range option.Values {
				extended := make(map[string]string, len(combo)+1)
				for k, v := range combo {
					extended[k] = v
				}
				extended[option.Name] = value
				next = append(next, extended)
			}
		}
		combos = next
	}
	if len(combos) == 1 && len(combos[0]) == 0 {
		return nil
	}
	return combos
}

func variantSKU(p *models.Product, combo map[string]string) string {
	base := strings.ToUpper(slugify(p.Name))
	if len(base) > 8 {
		base = base[:8]
	}
	parts := []string{base}
	for _, option := range p.Options {
		if value, ok := combo[option.Name]; ok {
			part := strings.ToUpper(slugStrip.ReplaceAllString(strings.ToLower(value), ""))
			if len(part) > 4 {
				part = part[:4]
			}
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "-")
}
