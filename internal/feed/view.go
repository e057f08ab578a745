package feed

import (
	"fmt"
	"slices"

	"neargrid/internal/domain"
)

// DefaultLocation is used until the viewer's position is known.
var DefaultLocation = domain.Coordinates{Lat: 26.9124, Lng: 75.7873}

// DefaultRadiusPresets are the selectable search radii in kilometres.
var DefaultRadiusPresets = []float64{1, 2, 5, 10}

// DefaultRadiusKm is the radius a new session starts with.
const DefaultRadiusKm = 2.0

// ViewState holds the viewer-controlled projection parameters of a session.
type ViewState struct {
	location        domain.Coordinates
	radiusKm        float64
	presets         []float64
	categories      map[domain.Category]struct{}
	searchText      string
	user            *domain.Identity
	composeCategory domain.Category
	composeSeverity domain.Severity
}

// NewViewState creates a view with every category active, no search text and
// no user. The default radius must be one of the presets.
func NewViewState(presets []float64, defaultRadiusKm float64, location domain.Coordinates) (*ViewState, error) {
	if len(presets) == 0 {
		presets = DefaultRadiusPresets
	}
	for _, p := range presets {
		if p <= 0 {
			return nil, fmt.Errorf("radius preset %v must be positive", p)
		}
	}

	v := &ViewState{
		location:        location,
		presets:         slices.Clone(presets),
		composeCategory: domain.CategorySafety,
		composeSeverity: domain.SeverityLow,
	}
	if err := v.SetRadius(defaultRadiusKm); err != nil {
		return nil, err
	}
	v.SetActiveCategories(domain.AllCategories())
	return v, nil
}

// SetRadius selects one of the radius presets.
func (v *ViewState) SetRadius(km float64) error {
	if !slices.Contains(v.presets, km) {
		return domain.NewValidationError("radius_km", fmt.Sprintf("%v is not one of %v", km, v.presets))
	}
	v.radiusKm = km
	return nil
}

// SetUserLocation moves the viewer.
func (v *ViewState) SetUserLocation(c domain.Coordinates) {
	v.location = c
}

// SetActiveCategories replaces the category filter. A nil or empty list
// leaves an empty, non-nil set that hides every alert.
func (v *ViewState) SetActiveCategories(categories []domain.Category) {
	set := make(map[domain.Category]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	v.categories = set
}

// SetSearchText sets the free-text filter.
func (v *ViewState) SetSearchText(text string) {
	v.searchText = text
}

// SetUser sets or clears the signed-in identity.
func (v *ViewState) SetUser(user *domain.Identity) {
	v.user = user
}

// SetCompose selects the category and severity used for the next alert.
func (v *ViewState) SetCompose(category domain.Category, severity domain.Severity) error {
	if !category.IsValid() {
		return domain.NewValidationError("category", fmt.Sprintf("unknown category %q", category))
	}
	if !severity.IsValid() {
		return domain.NewValidationError("severity", fmt.Sprintf("unknown severity %q", severity))
	}
	v.composeCategory = category
	v.composeSeverity = severity
	return nil
}

func (v *ViewState) Location() domain.Coordinates { return v.location }
func (v *ViewState) RadiusKm() float64 { return v.radiusKm }
func (v *ViewState) Presets() []float64 { return slices.Clone(v.presets) }
func (v *ViewState) SearchText() string { return v.searchText }
func (v *ViewState) User() *domain.Identity { return v.user }

// Compose returns the category and severity selected for the next alert.
func (v *ViewState) Compose() (domain.Category, domain.Severity) {
	return v.composeCategory, v.composeSeverity
}

// ActiveCategories lists the active categories in display order.
func (v *ViewState) ActiveCategories() []domain.Category {
	out := make([]domain.Category, 0, len(v.categories))
	for _, c := range domain.AllCategories() {
		if _, ok := v.categories[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// AuthorName is the name stamped on alerts submitted from this session.
func (v *ViewState) AuthorName() string {
	if v.user == nil || v.user.DisplayName == "" {
		return domain.DefaultAuthorName
	}
	return v.user.DisplayName
}

// ReporterName is the name stamped on news submitted from this session.
func (v *ViewState) ReporterName() string {
	if v.user == nil || v.user.DisplayName == "" {
		return domain.DefaultReporterName
	}
	return v.user.DisplayName
}

// Params returns an immutable copy of the projection parameters.
func (v *ViewState) Params() Params {
	categories := make(map[domain.Category]struct{}, len(v.categories))
	for c := range v.categories {
		categories[c] = struct{}{}
	}
	return Params{
		Location:   v.location,
		RadiusKm:   v.radiusKm,
		Categories: categories,
		SearchText: v.searchText,
	}
}

// Params are the inputs of a projection.
type Params struct {
	Location   domain.Coordinates
	RadiusKm   float64
	Categories map[domain.Category]struct{}
	SearchText string
}

// CategoryActive reports whether alerts of category c pass the filter.
func (p Params) CategoryActive(c domain.Category) bool {
	_, ok := p.Categories[c]
	return ok
}
