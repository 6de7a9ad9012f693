package domain

import "time"

// MaxCategoryLevels is the maximum depth of the denormalized taxonomy.
const MaxCategoryLevels = 5

// Category is a denormalized taxonomy path of up to five named levels.
// (Source, CanonicalPath) is unique; rows are created lazily the first
// time a breadcrumb chain maps to an unseen path and are never mutated
// by the pipeline afterwards.
type Category struct {
	ID            int64     `db:"category_id"`
	Source        string    `db:"source"`
	Level1        *string   `db:"level1"`
	Level2        *string   `db:"level2"`
	Level3        *string   `db:"level3"`
	Level4        *string   `db:"level4"`
	Level5        *string   `db:"level5"`
	CanonicalPath string    `db:"canonical_path"`
	LevelCount    int       `db:"level_count"`
	CreatedAt     time.Time `db:"created_at"`
}

// Levels returns the non-nil level names in order.
func (c *Category) Levels() []string {
	out := make([]string, 0, MaxCategoryLevels)
	for _, lv := range []*string{c.Level1, c.Level2, c.Level3, c.Level4, c.Level5} {
		if lv != nil && *lv != "" {
			out = append(out, *lv)
		}
	}
	return out
}
