package app

import (
	"fmt"
	"strconv"
	"strings"

	"trip_activities/internal/domain"
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the first non-empty string found at the given paths.
func lookupStr(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if s, ok := lookupAny(m, p).(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// lookupFloat: number at path (float64/int/string like "8,0") or nil.
func lookupFloat(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// lookupInt: integer at path or nil.
func lookupInt(m map[string]any, paths ...string) *int {
	if f := lookupFloat(m, paths...); f != nil {
		n := int(*f)
		return &n
	}
	return nil
}

// lookupStrSlice: []any of strings at path.
func lookupStrSlice(m map[string]any, path string) []string {
	raw, ok := lookupAny(m, path).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, it := range raw {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

/********** product mapper **********/

// mapSearchResults extracts the product list and total count from a raw
// search response.
func mapSearchResults(raw map[string]any, tagName func(int) (string, bool)) ([]domain.Activity, int) {
	total := 0
	if n := lookupInt(raw, "totalCount"); n != nil {
		total = *n
	}
	prods, _ := raw["products"].([]any)
	acts := make([]domain.Activity, 0, len(prods))
	for _, p := range prods {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		acts = append(acts, mapProduct(pm, tagName))
	}
	return acts, total
}

// mapProduct transforms one provider ProductSummary into the internal
// activity shape.
func mapProduct(p map[string]any, tagName func(int) (string, bool)) domain.Activity {
	act := domain.Activity{
		ID:           lookupStr(p, "productCode"),
		Title:        lookupStr(p, "title"),
		Description:  lookupStr(p, "description"),
		Images:       mapImages(p),
		Flags:        lookupStrSlice(p, "flags"),
		BookingURL:   lookupStr(p, "productUrl"),
		Confirmation: lookupStr(p, "confirmationType"),
		Availability: "available", // real status would need an availability check call
	}
	if act.Confirmation == "" {
		act.Confirmation = "UNKNOWN"
	}

	act.Pricing = domain.Pricing{Currency: "EUR"}
	if f := lookupFloat(p, "pricing.summary.fromPrice"); f != nil {
		act.Pricing.FromPrice = *f
	}
	if c := lookupStr(p, "pricing.currency"); c != "" {
		act.Pricing.Currency = c
	}
	if f := lookupFloat(p, "pricing.summary.fromPriceBeforeDiscount"); f != nil {
		act.Pricing.OriginalPrice = f
		act.Pricing.Discounted = true
	}

	if f := lookupFloat(p, "reviews.combinedAverageRating"); f != nil {
		act.Rating.Average = *f
	}
	if n := lookupInt(p, "reviews.totalReviews"); n != nil {
		act.Rating.Count = *n
	}

	minutes := 0
	if n := lookupInt(p, "duration.fixedDurationInMinutes"); n != nil {
		minutes = *n
	}
	act.Duration = domain.Duration{Minutes: minutes, Formatted: formatDuration(minutes)}

	act.Destination, act.Country = "Unknown", "Unknown"
	if dests, ok := p["destinations"].([]any); ok && len(dests) > 0 {
		if d, ok := dests[0].(map[string]any); ok {
			if n := lookupStr(d, "name"); n != "" {
				act.Destination = n
			}
			if c := lookupStr(d, "country"); c != "" {
				act.Country = c
			}
		}
	}

	act.Categories = mapTagsToCategories(p, tagName)
	return act
}

// mapImages buckets image variants by rendered height: small <= 200px,
// medium <= 600px, large above.
func mapImages(p map[string]any) []domain.ActivityImage {
	raw, ok := p["images"].([]any)
	if !ok {
		return nil
	}
	out := make([]domain.ActivityImage, 0, len(raw))
	for _, it := range raw {
		im, ok := it.(map[string]any)
		if !ok {
			continue
		}
		img := domain.ActivityImage{}
		if v, ok := im["isCover"].(bool); ok {
			img.IsCover = v
		}
		if variants, ok := im["variants"].([]any); ok {
			for i, vr := range variants {
				vm, ok := vr.(map[string]any)
				if !ok {
					continue
				}
				url := lookupStr(vm, "url")
				if url == "" {
					continue
				}
				if i == 0 {
					img.URL = url
				}
				height := 0
				if h := lookupInt(vm, "height"); h != nil {
					height = *h
				}
				switch {
				case height <= 200:
					img.Variants.Small = url
				case height <= 600:
					img.Variants.Medium = url
				default:
					img.Variants.Large = url
				}
			}
		}
		out = append(out, img)
	}
	return out
}

// mapTagsToCategories back-maps provider tag ids to category labels using
// the taxonomy snapshot, keeping at most the first five. Unknown ids keep a
// tag_<id> placeholder; no tags at all reads as "general".
func mapTagsToCategories(p map[string]any, tagName func(int) (string, bool)) []string {
	raw, ok := p["tags"].([]any)
	if !ok || len(raw) == 0 {
		return []string{"general"}
	}
	var out []string
	for _, t := range raw {
		f, ok := t.(float64)
		if !ok {
			continue
		}
		id := int(f)
		if name, ok := tagName(id); ok && name != "" {
			out = append(out, name)
		} else {
			out = append(out, fmt.Sprintf("tag_%d", id))
		}
		if len(out) == 5 {
			break
		}
	}
	if len(out) == 0 {
		return []string{"general"}
	}
	return out
}

// formatDuration renders minutes as "2h 30min", "2h", "45min" or "Flexible".
func formatDuration(minutes int) string {
	if minutes <= 0 {
		return "Flexible"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dmin", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dmin", m)
	}
}
