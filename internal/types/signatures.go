//nolint:revive // types is a standard Go package name pattern
package types

// Signatory is one cell of the signature grid.
type Signatory struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Designation string `json:"designation,omitempty" yaml:"designation,omitempty" mapstructure:"designation"`
}

// IsEmpty reports whether neither field is set.
func (s Signatory) IsEmpty() bool {
	return s.Name == "" && s.Designation == ""
}

// SignatureLayout is the fixed 2x2 signatory grid printed under every memo.
type SignatureLayout struct {
	TopLeft     Signatory `json:"top_left" yaml:"top_left" mapstructure:"top_left"`
	TopRight    Signatory `json:"top_right" yaml:"top_right" mapstructure:"top_right"`
	BottomLeft  Signatory `json:"bottom_left" yaml:"bottom_left" mapstructure:"bottom_left"`
	BottomRight Signatory `json:"bottom_right" yaml:"bottom_right" mapstructure:"bottom_right"`
}

// WithDefaults fills every empty cell from defaults, cell by cell.
func (l SignatureLayout) WithDefaults(defaults SignatureLayout) SignatureLayout {
	pick := func(cell, fallback Signatory) Signatory {
		if cell.IsEmpty() {
			return fallback
		}
		return cell
	}
	return SignatureLayout{
		TopLeft:     pick(l.TopLeft, defaults.TopLeft),
		TopRight:    pick(l.TopRight, defaults.TopRight),
		BottomLeft:  pick(l.BottomLeft, defaults.BottomLeft),
		BottomRight: pick(l.BottomRight, defaults.BottomRight),
	}
}
