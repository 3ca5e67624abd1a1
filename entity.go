package appstate

// AuditContext is handed to page-scoped entities while a patch is audited.
type AuditContext struct {
	// Field is the patch key the entity currently occupies.
	Field string
	// Patch is the incoming patch. Predicates must not modify it.
	Patch       Patch
	Kind        Transition
	CurrentPage string
	TargetPage  string
}

// PatchApplicability is implemented by entities that may refuse patches while
// the page they belong to is not the one being shown. Implementations must be
// pure and cheap; they run synchronously inside a transition.
type PatchApplicability interface {
	PatchApplicable(ctx AuditContext) bool
}

// PageScoped is implemented by entities bound to a single page type.
type PageScoped interface {
	PageType() string
}

// Category is the data behind a category landing page.
type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Image         string        `json:"image,omitempty"`
	Subcategories []Subcategory `json:"subcategories,omitempty"`
}

func (c *Category) PageType() string { return PageCategory }

// PatchApplicable keeps the category untouched unless the transition lands
// on a category page.
func (c *Category) PatchApplicable(ctx AuditContext) bool {
	return ctx.TargetPage == PageCategory
}

// Subcategory is a product listing page.
type Subcategory struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Page     int       `json:"page,omitempty"`
	Total    int       `json:"total,omitempty"`
	SortBy   string    `json:"sortBy,omitempty"`
	Products []Product `json:"products,omitempty"`
}

func (s *Subcategory) PageType() string { return PageSubcategory }

func (s *Subcategory) PatchApplicable(ctx AuditContext) bool {
	return ctx.TargetPage == PageSubcategory
}

// Product is a product detail page.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price,omitempty"`
	Description string   `json:"description,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Images      []string `json:"images,omitempty"`
}

func (p *Product) PageType() string { return PageProduct }

func (p *Product) PatchApplicable(ctx AuditContext) bool {
	return ctx.TargetPage == PageProduct
}

// SearchResults is the search page.
type SearchResults struct {
	Query   string    `json:"query"`
	Total   int       `json:"total,omitempty"`
	Results []Product `json:"results,omitempty"`
}

func (s *SearchResults) PageType() string { return PageSearch }

func (s *SearchResults) PatchApplicable(ctx AuditContext) bool {
	return ctx.TargetPage == PageSearch
}
