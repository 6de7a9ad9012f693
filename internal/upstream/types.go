package upstream

// ProductDetail is the parsed detail payload for one upstream product.
// Optional fields are nil when the upstream response omits them; a
// partial payload is not a failure.
type ProductDetail struct {
	ExternalID      int64
	Name            string
	Brand           *string
	Breadcrumbs     []string
	Price           *float64
	ImageURL        *string
	ProductURL      *string
	Origin          *string
	BrandCountry    *string
	Description     *string
	InventoryStatus string
}

// Available reports whether the upstream inventory state allows sale.
// An empty state is treated as available; only an explicit unavailable
// signal justifies deactivation.
func (d *ProductDetail) Available() bool {
	switch d.InventoryStatus {
	case "", inventoryAvailable:
		return true
	default:
		return false
	}
}

// Raw API payload shapes. Field coverage is limited to what the
// pipeline consumes; everything else in the upstream JSON is ignored.

type searchResponse struct {
	Data []searchItem `json:"data"`
}

type searchItem struct {
	ID            int64    `json:"id"`
	Advertisement bool     `json:"advertisement"`
	Badges        []string `json:"badges"`
}

type detailResponse struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Brand           *brandInfo   `json:"brand"`
	Price           *float64     `json:"price"`
	ThumbnailURL    string       `json:"thumbnail_url"`
	URLPath         string       `json:"url_path"`
	InventoryStatus string       `json:"inventory_status"`
	Description     string       `json:"description"`
	Breadcrumbs     []breadcrumb `json:"breadcrumbs"`
	Specifications  []specBlock  `json:"specifications"`
}

type brandInfo struct {
	Name string `json:"name"`
}

type breadcrumb struct {
	Name       string `json:"name"`
	CategoryID int64  `json:"category_id"`
	URL        string `json:"url"`
}

type specBlock struct {
	Attributes []specAttribute `json:"attributes"`
}

type specAttribute struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

type reviewsResponse struct {
	Data          []reviewItem         `json:"data"`
	Paging        reviewPaging         `json:"paging"`
	RatingAverage *float64             `json:"rating_average"`
	ReviewsCount  *int                 `json:"reviews_count"`
	Stars         map[string]starEntry `json:"stars"`
}

type reviewItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type reviewPaging struct {
	Total int `json:"total"`
}

type starEntry struct {
	Count int `json:"count"`
}
