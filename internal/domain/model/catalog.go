package model

import (
	"sort"
	"strings"
)

// PackageInfo describes one purchasable tier. SecureFileName and
// CouponCode are server-side only and must never reach the client.
type PackageInfo struct {
	PackageType    string
	PDFCount       int
	Price          int64 // rupees
	Title          string
	SecureFileName string
	EmailCount     int
	CouponCode     string // empty when the tier does not support coupons
	CouponDiscount int64  // rupees
}

// Product is legacy display metadata kept for the storefront listing.
type Product struct {
	ProductID      string
	Title          string
	Description    string
	OriginalPrice  int64
	SellingPrice   int64
	SecureFileName string
}

// Catalog is the immutable pricing table, loaded once at startup and
// injected into everything that needs it. Prices are resolved here and
// only here; client-supplied amounts are never trusted.
type Catalog struct {
	packages map[string]PackageInfo
	products []Product
}

func NewCatalog(packages []PackageInfo, products []Product) *Catalog {
	m := make(map[string]PackageInfo, len(packages))
	for _, p := range packages {
		p.CouponCode = strings.TrimSpace(p.CouponCode)
		m[p.PackageType] = p
	}
	return &Catalog{packages: m, products: products}
}

// DefaultCatalog returns the production pricing table.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		[]PackageInfo{
			{PackageType: "1", PDFCount: 1, Price: 30, Title: "Single PDF Package", SecureFileName: "package1.pdf", EmailCount: 500},
			{PackageType: "2", PDFCount: 2, Price: 50, Title: "Double PDF Package", SecureFileName: "package2.pdf", EmailCount: 1000},
			{PackageType: "3", PDFCount: 3, Price: 65, Title: "Triple PDF Package", SecureFileName: "package3.pdf", EmailCount: 1500},
			{PackageType: "5", PDFCount: 5, Price: 79, Title: "Premium PDF Package", SecureFileName: "package4.pdf", EmailCount: 2500, CouponCode: "HELLOBIT", CouponDiscount: 20},
		},
		[]Product{
			{
				ProductID:      "DEFAULT_PDF_1",
				Title:          "Professional Outreach & Communication Learning Guide",
				Description:    "An educational PDF resource containing learning frameworks, example templates, and case studies for professional networking and business communication.",
				OriginalPrice:  475,
				SellingPrice:   75,
				SecureFileName: "product-default.pdf",
			},
		},
	)
}

// Package resolves a tier by its type code.
func (c *Catalog) Package(packageType string) (PackageInfo, bool) {
	p, ok := c.packages[packageType]
	return p, ok
}

// PackageTypes returns all tier codes in stable order.
func (c *Catalog) PackageTypes() []string {
	keys := make([]string, 0, len(c.packages))
	for k := range c.packages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Products returns the legacy product listing.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// SupportsCoupon reports whether the tier is coupon-eligible at all.
func (c *Catalog) SupportsCoupon(packageType string) bool {
	p, ok := c.packages[packageType]
	return ok && p.CouponCode != ""
}

// ValidateCoupon accepts a coupon only when the tier itself carries a
// coupon code and the trimmed input matches it exactly (case-sensitive).
func (c *Catalog) ValidateCoupon(packageType, couponCode string) bool {
	p, ok := c.packages[packageType]
	if !ok || p.CouponCode == "" {
		return false
	}
	code := strings.TrimSpace(couponCode)
	return code != "" && code == p.CouponCode
}
