package appstate

import "strings"

// Page identifiers understood by the built-in entities.
const (
	PageCategory    = "Category"
	PageSubcategory = "Subcategory"
	PageProduct     = "Product"
	PageSearch      = "Search"
	PageError       = "Error"
)

// Tree is the application state tree. Patch keys are the JSON names of its
// fields. Fields tagged scope:"session" outlive navigation; fields tagged
// page:"<Page>" hold the data for that page type. Fields tagged
// scope:"preview" are never asked whether a patch applies.
type Tree struct {
	AMP              bool         `json:"amp"`
	InitialWidth     string       `json:"initialWidth"`
	Page             string       `json:"page,omitempty"`
	Title            string       `json:"title,omitempty"`
	Description      string       `json:"description,omitempty"`
	Loading          bool         `json:"loading"`
	Error            string       `json:"error,omitempty"`
	Stack            string       `json:"stack,omitempty"`
	Location         *Location    `json:"location,omitempty"`
	Breadcrumbs      []Breadcrumb `json:"breadcrumbs"`
	ProductThumbnail string       `json:"productThumbnail,omitempty"`

	Menu Menu  `json:"menu" scope:"session"`
	Tabs *Tabs `json:"tabs,omitempty" scope:"session"`
	User *User `json:"user,omitempty" scope:"session"`
	Cart Cart  `json:"cart" scope:"session"`

	Category    *Category      `json:"category,omitempty" page:"Category"`
	Subcategory *Subcategory   `json:"subcategory,omitempty" page:"Subcategory"`
	Product     *Product       `json:"product,omitempty" page:"Product"`
	Search      *SearchResults `json:"search,omitempty" page:"Search"`

	// Loading previews show the next page while it loads. They belong to no
	// page, so any navigation may replace or clear them.
	LoadingCategory    *Category    `json:"loadingCategory,omitempty" scope:"preview"`
	LoadingSubcategory *Subcategory `json:"loadingSubcategory,omitempty" scope:"preview"`
	LoadingProduct     *Product     `json:"loadingProduct,omitempty" scope:"preview"`
}

// NewTree returns a tree populated with the storefront defaults.
func NewTree() Tree {
	return Tree{
		InitialWidth: "xs",
		Breadcrumbs:  []Breadcrumb{},
	}
}

// CanonicalURL returns the canonical URL for the current location, or an
// empty string when no location is known.
func (t Tree) CanonicalURL() string {
	return t.Location.CanonicalURL()
}

// URI returns the path and query of the current location.
func (t Tree) URI() string {
	return t.Location.URI()
}

// Breadcrumb is a single navigation crumb.
type Breadcrumb struct {
	URL  string `json:"url,omitempty"`
	Text string `json:"text"`
}

// Location describes the URL the tree was rendered for.
type Location struct {
	Protocol string `json:"protocol,omitempty"`
	Hostname string `json:"hostname,omitempty"`
	Pathname string `json:"pathname"`
	Search   string `json:"search"`
	Port     string `json:"port,omitempty"`
}

// CanonicalURL drops the AMP suffix so both variants share one canonical URL.
func (l *Location) CanonicalURL() string {
	if l == nil {
		return ""
	}
	protocol := l.Protocol
	if protocol == "" {
		protocol = "https"
	}
	protocol = strings.TrimSuffix(protocol, ":")
	return protocol + "://" + l.Hostname + strings.TrimSuffix(l.Pathname, ".amp") + l.Search
}

func (l *Location) URI() string {
	if l == nil {
		return ""
	}
	return l.Pathname + l.Search
}

// PortOrDefault returns the port, defaulting to 443.
func (l *Location) PortOrDefault() string {
	if l == nil || l.Port == "" {
		return "443"
	}
	return l.Port
}

// Menu is the navigation drawer.
type Menu struct {
	Open  bool       `json:"open"`
	Level int        `json:"level"`
	Items []MenuItem `json:"items,omitempty"`
}

// MenuItem is a single entry of the navigation drawer.
type MenuItem struct {
	Text  string     `json:"text"`
	URL   string     `json:"url,omitempty"`
	Items []MenuItem `json:"items,omitempty"`
}

// Tabs holds the top navigation tabs and the selected one.
type Tabs struct {
	Selected int       `json:"selected"`
	Items    []TabItem `json:"items,omitempty"`
}

// TabItem is one navigation tab.
type TabItem struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// User is the signed-in shopper.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Cart is the shopper's cart.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Quantity returns the total number of units in the cart.
func (c Cart) Quantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// CartItem is one line of the cart.
type CartItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price,omitempty"`
}
