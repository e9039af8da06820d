package stats

// Selectors is the contract with the stats page markup.
type Selectors struct {
	BannerClose       string `yaml:"banner_close"`
	SelectedVariant   string `yaml:"selected_variant"`
	UnselectedVariant string `yaml:"unselected_variant"`
	HeaderCells       string `yaml:"header_cells"`
	BodyRows          string `yaml:"body_rows"`
	PlayerLink        string `yaml:"player_link"`
	PlayerLabelAttr   string `yaml:"player_label_attr"`
	PositionCell      string `yaml:"position_cell"`
	DataCells         string `yaml:"data_cells"`
}

// DefaultSelectors returns the selectors for www.mlb.com/stats.
func DefaultSelectors() Selectors {
	return Selectors{
		BannerClose:       ".banner-close-button",
		SelectedVariant:   ".stats-navigation div.group-secondary button.selected",
		UnselectedVariant: ".stats-navigation div.group-secondary button:not(.selected)",
		HeaderCells:       "table thead tr th button abbr",
		BodyRows:          "table tbody tr",
		PlayerLink:        "a.bui-link",
		PlayerLabelAttr:   "aria-label",
		PositionCell:      "div[class^='position']",
		DataCells:         "td",
	}
}

// withDefaults fills every empty selector from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&s.BannerClose, d.BannerClose)
	fill(&s.SelectedVariant, d.SelectedVariant)
	fill(&s.UnselectedVariant, d.UnselectedVariant)
	fill(&s.HeaderCells, d.HeaderCells)
	fill(&s.BodyRows, d.BodyRows)
	fill(&s.PlayerLink, d.PlayerLink)
	fill(&s.PlayerLabelAttr, d.PlayerLabelAttr)
	fill(&s.PositionCell, d.PositionCell)
	fill(&s.DataCells, d.DataCells)
	return s
}
