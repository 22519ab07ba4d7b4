package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/frame2report/internal/fault"
)

// Template controls the wording and layout of a report. It is stored as YAML.
type Template struct {
	Title           string  `yaml:"title"`
	VideoHeading    string  `yaml:"video_heading" validate:"required"`    // %s = video name
	FindingHeading  string  `yaml:"finding_heading" validate:"required"`  // %d = number within the video
	TimeLine        string  `yaml:"time_line" validate:"required"`        // %s = formatted time
	DescriptionLine string  `yaml:"description_line" validate:"required"` // %s = description
	MissingImage    string  `yaml:"missing_image" validate:"required"`    // %s = reason
	ImageWidthMM    float64 `yaml:"image_width_mm" validate:"gt=0,lte=400"`
	FontFamily      string  `yaml:"font_family" validate:"oneof=sans mono"`
	PageSize        string  `yaml:"page_size" validate:"oneof=A4 A5 Letter Legal"`
	Cover           string  `yaml:"cover,omitempty"` // PDF whose first page opens the report
	CoverDPI        int     `yaml:"cover_dpi" validate:"gte=36,lte=600"`
	QRCodes         bool    `yaml:"qr_codes"`
}

// DefaultTemplate matches the layout of the original letterhead: 6 inch wide
// screenshots under numbered headings.
func DefaultTemplate() *Template {
	return &Template{
		Title:           "Video Review Report",
		VideoHeading:    "Video: %s",
		FindingHeading:  "Finding %d",
		TimeLine:        "Time: %s",
		DescriptionLine: "Description: %s",
		MissingImage:    "[Image could not be added: %s]",
		ImageWidthMM:    152.4,
		FontFamily:      "sans",
		PageSize:        "A4",
		CoverDPI:        96,
	}
}

var validate = validator.New()

// LoadTemplate reads a YAML template over the defaults. Every failure is a
// fault.ErrTemplate.
func LoadTemplate(path string) (*Template, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no template configured", fault.ErrTemplate)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fault.ErrTemplate, err)
	}

	tmpl := DefaultTemplate()
	if err := yaml.Unmarshal(data, tmpl); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", fault.ErrTemplate, path, err)
	}
	if err := validate.Struct(tmpl); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", fault.ErrTemplate, path, err)
	}

	if tmpl.Cover != "" {
		if !filepath.IsAbs(tmpl.Cover) {
			tmpl.Cover = filepath.Join(filepath.Dir(path), tmpl.Cover)
		}
		if _, err := os.Stat(tmpl.Cover); err != nil {
			return nil, fmt.Errorf("%w: cover %v", fault.ErrTemplate, err)
		}
	}
	return tmpl, nil
}

// WriteTemplate stores tmpl as YAML, e.g. to seed a starter template.
func WriteTemplate(tmpl *Template, path string) error {
	data, err := yaml.Marshal(tmpl)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
