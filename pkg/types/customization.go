package types

// CustomCigarSpec captures the five option selections plus personalization
// for a custom-built cigar. Stored as jsonb on cart and order line items so
// the snapshot survives option catalog changes.
type CustomCigarSpec struct {
	Size      string  `json:"size" validate:"required"`
	Binder    string  `json:"binder" validate:"required"`
	Flavor    string  `json:"flavor" validate:"required"`
	BandStyle string  `json:"band_style" validate:"required"`
	BoxType   string  `json:"box_type" validate:"required"`
	BandText  *string `json:"band_text,omitempty" validate:"omitempty,max=18"`
	Engraving *string `json:"engraving,omitempty" validate:"omitempty,max=20"`
}
