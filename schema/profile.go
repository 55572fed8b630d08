package schema

import (
	"fmt"
	"regexp"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// FontConfig holds the two font families and four point sizes a profile
// uses across every slide.
type FontConfig struct {
	Japanese       string `json:"japanese" yaml:"japanese"`
	Latin          string `json:"latin" yaml:"latin"`
	TitleSizePt    int    `json:"title_size_pt" yaml:"title_size_pt"`
	SubtitleSizePt int    `json:"subtitle_size_pt" yaml:"subtitle_size_pt"`
	BodySizePt     int    `json:"body_size_pt" yaml:"body_size_pt"`
	CaptionSizePt  int    `json:"caption_size_pt" yaml:"caption_size_pt"`
}

// ColorScheme is the six-color theme of a profile. Every value is a
// "#RRGGBB" string.
type ColorScheme struct {
	Primary    string `json:"primary" yaml:"primary"`
	Secondary  string `json:"secondary" yaml:"secondary"`
	Accent     string `json:"accent" yaml:"accent"`
	Background string `json:"background" yaml:"background"`
	TextDark   string `json:"text_dark" yaml:"text_dark"`
	TextLight  string `json:"text_light" yaml:"text_light"`
}

// Validate checks that every color is a 6-hex-digit value.
func (c ColorScheme) Validate() error {
	for name, v := range map[string]string{
		"primary":    c.Primary,
		"secondary":  c.Secondary,
		"accent":     c.Accent,
		"background": c.Background,
		"text_dark":  c.TextDark,
		"text_light": c.TextLight,
	} {
		if !hexColorPattern.MatchString(v) {
			return fmt.Errorf("color %s: %q is not a #RRGGBB value", name, v)
		}
	}
	return nil
}

// LecturerProfile is the style profile: read-only input to both prompt
// building and deck rendering.
type LecturerProfile struct {
	Name               string           `json:"name" yaml:"name"`
	DisplayName        string           `json:"display_name" yaml:"display_name"`
	Affiliation        string           `json:"affiliation" yaml:"affiliation"`
	Fonts              FontConfig       `json:"fonts" yaml:"fonts"`
	Colors             ColorScheme      `json:"colors" yaml:"colors"`
	DefaultAudience    AudienceLevel    `json:"default_audience" yaml:"default_audience"`
	ExplanationDepth   ExplanationDepth `json:"explanation_depth" yaml:"explanation_depth"`
	MaxBulletsPerSlide int              `json:"max_bullets_per_slide" yaml:"max_bullets_per_slide"`
	PreferDiagrams     bool             `json:"prefer_diagrams" yaml:"prefer_diagrams"`
	CustomInstructions string           `json:"custom_instructions" yaml:"custom_instructions"`
	Language           Language         `json:"language" yaml:"language"`
}

// Validate checks profile constraints.
func (p *LecturerProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.MaxBulletsPerSlide < 2 || p.MaxBulletsPerSlide > 8 {
		return fmt.Errorf("max_bullets_per_slide must be between 2 and 8, got %d", p.MaxBulletsPerSlide)
	}
	if err := p.Colors.Validate(); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}
	return nil
}

// DefaultProfile returns the built-in Academic Blue style.
func DefaultProfile() LecturerProfile {
	return LecturerProfile{
		Name: "default",
		Fonts: FontConfig{
			Japanese:       "游ゴシック",
			Latin:          "Calibri",
			TitleSizePt:    32,
			SubtitleSizePt: 24,
			BodySizePt:     18,
			CaptionSizePt:  14,
		},
		Colors: ColorScheme{
			Primary:    "#2B579A",
			Secondary:  "#217346",
			Accent:     "#B7472A",
			Background: "#FFFFFF",
			TextDark:   "#333333",
			TextLight:  "#666666",
		},
		DefaultAudience:    AudienceGradStudent,
		ExplanationDepth:   DepthStandard,
		MaxBulletsPerSlide: 5,
		PreferDiagrams:     true,
		Language:           LanguageJapanese,
	}
}

// Presets returns the built-in theme presets. The first entry is the
// default profile under its preset name.
func Presets() []LecturerProfile {
	base := DefaultProfile()

	academic := base
	academic.Name = "academic-blue"
	academic.DisplayName = "Academic Blue"

	forest := base
	forest.Name = "forest-green"
	forest.DisplayName = "Forest Green"
	forest.Colors = ColorScheme{
		Primary:    "#2D5F2D",
		Secondary:  "#4A8C4A",
		Accent:     "#D4A843",
		Background: "#FFFFFF",
		TextDark:   "#2C2C2C",
		TextLight:  "#5A5A5A",
	}

	earth := base
	earth.Name = "warm-earth"
	earth.DisplayName = "Warm Earth"
	earth.Colors = ColorScheme{
		Primary:    "#8B4513",
		Secondary:  "#CD853F",
		Accent:     "#D2691E",
		Background: "#FFFAF0",
		TextDark:   "#3E2723",
		TextLight:  "#795548",
	}

	minimal := base
	minimal.Name = "modern-minimal"
	minimal.DisplayName = "Modern Minimal"
	minimal.Colors = ColorScheme{
		Primary:    "#1A1A2E",
		Secondary:  "#16213E",
		Accent:     "#E94560",
		Background: "#FFFFFF",
		TextDark:   "#1A1A2E",
		TextLight:  "#6C757D",
	}

	ocean := base
	ocean.Name = "ocean-breeze"
	ocean.DisplayName = "Ocean Breeze"
	ocean.Colors = ColorScheme{
		Primary:    "#006994",
		Secondary:  "#00A9CE",
		Accent:     "#FF6B35",
		Background: "#FFFFFF",
		TextDark:   "#2C3E50",
		TextLight:  "#7F8C8D",
	}

	return []LecturerProfile{academic, forest, earth, minimal, ocean}
}

// PresetByName looks up a preset. The second return is false when no
// preset with that name exists.
func PresetByName(name string) (LecturerProfile, bool) {
	for _, p := range Presets() {
		if p.Name == name {
			return p, true
		}
	}
	return LecturerProfile{}, false
}
