package upstream

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lekhuynh/vietchoice/internal/domain"
)

// Specification attribute codes carrying provenance data.
const (
	attrOrigin       = "origin"
	attrBrandCountry = "brand_country"
)

// parseDetail converts a raw detail payload into a ProductDetail,
// leaving omitted optional fields nil.
func parseDetail(baseURL string, externalID int64, resp *detailResponse) *ProductDetail {
	name := strings.TrimSpace(resp.Name)
	if name == "" {
		// Some listings ship without a name; the external ID keeps the
		// record usable and insertable.
		name = strconv.FormatInt(externalID, 10)
	}
	d := &ProductDetail{
		ExternalID:      externalID,
		Name:            name,
		Breadcrumbs:     categoryBreadcrumbs(resp.Breadcrumbs, externalID),
		Price:           resp.Price,
		InventoryStatus: resp.InventoryStatus,
	}

	if resp.Brand != nil && strings.TrimSpace(resp.Brand.Name) != "" {
		name := strings.TrimSpace(resp.Brand.Name)
		d.Brand = &name
	}
	if resp.ThumbnailURL != "" {
		u := resp.ThumbnailURL
		d.ImageURL = &u
	}
	if resp.URLPath != "" {
		u := baseURL + "/" + strings.TrimPrefix(resp.URLPath, "/")
		d.ProductURL = &u
	}
	if cleaned := cleanDescription(resp.Description); cleaned != "" {
		d.Description = &cleaned
	}

	d.Origin = specValue(resp.Specifications, attrOrigin)
	d.BrandCountry = specValue(resp.Specifications, attrBrandCountry)

	return d
}

// categoryBreadcrumbs keeps only real category crumbs: the trailing
// crumb for the product itself has category_id 0 and embeds the product
// ID in its URL, and must not leak into the taxonomy.
func categoryBreadcrumbs(crumbs []breadcrumb, externalID int64) []string {
	idToken := strconv.FormatInt(externalID, 10)
	names := make([]string, 0, len(crumbs))
	for _, crumb := range crumbs {
		if crumb.CategoryID <= 0 {
			continue
		}
		if strings.Contains(crumb.URL, idToken) {
			continue
		}
		names = append(names, crumb.Name)
	}
	return names
}

// specValue scans specification blocks for an attribute code and
// returns its trimmed value, or nil when absent or blank.
func specValue(blocks []specBlock, code string) *string {
	for _, block := range blocks {
		for _, attr := range block.Attributes {
			if attr.Code != code {
				continue
			}
			if v := strings.TrimSpace(attr.Value); v != "" {
				return &v
			}
		}
	}
	return nil
}

// cleanDescription strips HTML markup from the upstream description,
// collapsing whitespace. Descriptions arrive as rich HTML fragments.
func cleanDescription(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.Join(strings.Fields(raw), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// summarize derives the rating summary from a first-page reviews
// payload. PositivePercent stays nil when the stars histogram is
// missing or empty; absent data is not the same as zero percent.
func summarize(resp *reviewsResponse) *domain.ReviewSummary {
	s := &domain.ReviewSummary{}
	if resp.RatingAverage != nil {
		s.AvgRating = resp.RatingAverage
	}
	if resp.ReviewsCount != nil {
		s.ReviewCount = resp.ReviewsCount
	} else if resp.Paging.Total > 0 {
		total := resp.Paging.Total
		s.ReviewCount = &total
	}
	s.PositivePercent = positivePercent(resp.Stars)
	return s
}

// positivePercent computes the share of 4 and 5 star reviews from the
// stars histogram.
func positivePercent(stars map[string]starEntry) *float64 {
	if len(stars) == 0 {
		return nil
	}
	total := 0
	positive := 0
	for star, entry := range stars {
		total += entry.Count
		if star == "4" || star == "5" {
			positive += entry.Count
		}
	}
	if total == 0 {
		return nil
	}
	pct := float64(positive) / float64(total) * 100
	return &pct
}

// extractTexts merges each review's title and content into one scoring
// unit, skipping reviews with no text at all.
func extractTexts(resp *reviewsResponse) []string {
	texts := make([]string, 0, len(resp.Data))
	for _, item := range resp.Data {
		title := strings.TrimSpace(item.Title)
		content := strings.TrimSpace(item.Content)
		switch {
		case title != "" && content != "":
			texts = append(texts, title+", "+content)
		case title != "":
			texts = append(texts, title)
		case content != "":
			texts = append(texts, content)
		}
	}
	return texts
}
