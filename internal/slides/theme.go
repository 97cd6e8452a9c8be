package slides

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"sprintreview/internal/config"
	"sprintreview/internal/logging"
)

// BlankImage is a transparent 1x1 GIF used when an image cannot be embedded.
const BlankImage = "data:image/gif;base64,R0lGODlhAQABAIAAAP///wAAACH5BAEAAAAALAAAAAABAAEAAAICRAEAOw=="

var imageTypes = map[string]string{
	"jpg": "image/jpeg",
	"png": "image/png",
	"gif": "image/gif",
}

// ImageDataURI reads a jpg, png or gif file into a data URI. Missing files
// and other types yield BlankImage and false.
func ImageDataURI(path string) (string, bool) {
	if path == "" {
		return BlankImage, false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	mime, ok := imageTypes[ext]
	if !ok {
		logging.SlidesWarn("* Unsupported image type '%s' %s", ext, path)
		return BlankImage, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logging.SlidesWarn("* Image not found: %s", path)
		return BlankImage, false
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), true
}

// Theme holds the resolved look of the HTML deck.
type Theme struct {
	FontDisplay string
	Font        string

	Primary           string
	Secondary         string
	TitleFont         string
	TitleBackground   string
	ContentFont       string
	ContentBackground string
	EndFont           string
	EndBackground     string

	// Data URIs. Backgrounds are empty when the image is unavailable so the
	// colour shows instead.
	TitleImage   string
	SectionImage string
	EndImage     string
	Logo         string
	LogoIcon     string
}

// NewTheme resolves colours and embeds the configured images. Paths are
// relative to baseDir unless absolute.
func NewTheme(cfg config.SlidesConfig, baseDir string) Theme {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) || baseDir == "" {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	background := func(p string) string {
		if uri, ok := ImageDataURI(resolve(p)); ok {
			return uri
		}
		return ""
	}
	logo := func(p string) string {
		uri, _ := ImageDataURI(resolve(p))
		return uri
	}

	return Theme{
		FontDisplay: cfg.FontDisplay,
		Font:        cfg.Font,

		Primary:           color(cfg.ColorPrimary),
		Secondary:         color(cfg.ColorSecondary),
		TitleFont:         color(cfg.ColorTitleFont),
		TitleBackground:   color(cfg.ColorTitleBackground),
		ContentFont:       color(cfg.ColorContentFont),
		ContentBackground: color(cfg.ColorContentBackground),
		EndFont:           color(cfg.ColorEndFont),
		EndBackground:     color(cfg.ColorEndBackground),

		TitleImage:   background(cfg.ImageTitleBackground),
		SectionImage: background(cfg.ImageSectionBackground),
		EndImage:     background(cfg.ImageEndBackground),
		Logo:         logo(cfg.ImageLogo),
		LogoIcon:     logo(cfg.ImageLogoIcon),
	}
}

// color turns "1C5EB0" into "#1C5EB0". Anything that is not six hex digits
// is passed through.
func color(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return hex
	}
	for _, c := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return hex
		}
	}
	return "#" + hex
}
