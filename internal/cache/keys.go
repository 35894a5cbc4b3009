package cache

import "fmt"

// Key prefixes shared by the storefront readers and the back-office
// mutations that invalidate them.
const (
	// CatalogPrefix covers cached catalog listings and product pages.
	CatalogPrefix = "catalog:"
	// ReviewsPrefix covers cached product review listings.
	ReviewsPrefix = "reviews:"
	// SitePrefix covers the active theme and public settings.
	SitePrefix = "site:"
)

// CatalogListKey builds the cache key for one catalog listing window.
func CatalogListKey(search string, categoryID uint64, page, perPage int) string {
	return fmt.Sprintf("%slist:q=%s:cat=%d:p=%d:n=%d", CatalogPrefix, search, categoryID, page, perPage)
}

// ProductKey builds the cache key for one product page.
func ProductKey(slug string) string {
	return CatalogPrefix + "product:" + slug
}

// ReviewsKey builds the cache key for one product's review listing window.
func ReviewsKey(productID uint64, page, perPage int) string {
	return fmt.Sprintf("%s%d:p=%d:n=%d", ReviewsPrefix, productID, page, perPage)
}

// ActiveThemeKey is the cache key for the active theme payload.
const ActiveThemeKey = SitePrefix + "theme"

// PublicSettingsKey is the cache key for the public settings payload.
const PublicSettingsKey = SitePrefix + "settings"
