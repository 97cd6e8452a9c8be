package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all sprintreview configuration.
type Config struct {
	// Jira instance and sprint report to scrape
	Tracker TrackerConfig `yaml:"tracker" toml:"tracker"`

	// Chrome launch / attach settings
	Browser BrowserConfig `yaml:"browser" toml:"browser"`

	// Per-stage selector waits
	Timeouts TimeoutsConfig `yaml:"timeouts" toml:"timeouts"`

	// DOM selectors used while scraping
	Selectors SelectorsConfig `yaml:"selectors" toml:"selectors"`

	Scrape ScrapeConfig `yaml:"scrape" toml:"scrape"`

	// Output files
	Output OutputConfig `yaml:"output" toml:"output"`

	// Slide deck look and text
	Slides SlidesConfig `yaml:"slides" toml:"slides"`

	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// TrackerConfig points at the issue tracker.
type TrackerConfig struct {
	IssueURL        string `yaml:"issue_url" toml:"issue_url"`                 // base URL, ticket key is appended
	SprintReportURL string `yaml:"sprint_report_url" toml:"sprint_report_url"` // Reports > Sprint report of the closed sprint
	TableColumns    int    `yaml:"table_columns" toml:"table_columns"`         // cells in a ticket row
}

// BrowserConfig configures Chrome. Enter chrome://version/ into Chrome to
// find the executable and profile paths.
type BrowserConfig struct {
	ChromeExePath     string   `yaml:"chrome_exe_path" toml:"chrome_exe_path"`
	UserProfilePath   string   `yaml:"user_profile_path" toml:"user_profile_path"`
	DebuggerURL       string   `yaml:"debugger_url" toml:"debugger_url"` // attach to a running Chrome instead of launching
	Headless          bool     `yaml:"headless" toml:"headless"`
	ViewportWidth     int      `yaml:"viewport_width" toml:"viewport_width"`
	ViewportHeight    int      `yaml:"viewport_height" toml:"viewport_height"`
	NavigationTimeout string   `yaml:"navigation_timeout" toml:"navigation_timeout"`
	LaunchFlags       []string `yaml:"launch_flags" toml:"launch_flags"`
}

// TimeoutsConfig bounds every selector wait of the enrichment pipeline.
type TimeoutsConfig struct {
	PeopleModule  string `yaml:"people_module" toml:"people_module"`
	DevPanel      string `yaml:"dev_panel" toml:"dev_panel"`
	PanelToggle   string `yaml:"panel_toggle" toml:"panel_toggle"`
	PRLink        string `yaml:"pr_link" toml:"pr_link"`
	PRList        string `yaml:"pr_list" toml:"pr_list"`
	PRDescription string `yaml:"pr_description" toml:"pr_description"`
}

// SelectorsConfig lists the CSS selectors for the report and issue pages.
type SelectorsConfig struct {
	ReportTable     string `yaml:"report_table" toml:"report_table"`
	ReportRow       string `yaml:"report_row" toml:"report_row"`
	ReportCell      string `yaml:"report_cell" toml:"report_cell"`
	BoardName       string `yaml:"board_name" toml:"board_name"`
	SprintLabel     string `yaml:"sprint_label" toml:"sprint_label"`
	PeopleModule    string `yaml:"people_module" toml:"people_module"`
	Developer       string `yaml:"developer" toml:"developer"`
	Developers      string `yaml:"developers" toml:"developers"`
	Epic            string `yaml:"epic" toml:"epic"`
	DevPanel        string `yaml:"dev_panel" toml:"dev_panel"`
	DevPanelHeading string `yaml:"dev_panel_heading" toml:"dev_panel_heading"`
	CollapsedClass  string `yaml:"collapsed_class" toml:"collapsed_class"`
	PanelToggle     string `yaml:"panel_toggle" toml:"panel_toggle"`
	PRLink          string `yaml:"pr_link" toml:"pr_link"`
	PRListLink      string `yaml:"pr_list_link" toml:"pr_list_link"`
	PRDescription   string `yaml:"pr_description" toml:"pr_description"`
	PRImage         string `yaml:"pr_image" toml:"pr_image"` // relative to PRDescription
}

// ScrapeConfig toggles optional pipeline behaviour.
type ScrapeConfig struct {
	PullRequests    bool   `yaml:"pull_requests" toml:"pull_requests"`
	MilestoneMarker string `yaml:"milestone_marker" toml:"milestone_marker"`
	SprintMarker    string `yaml:"sprint_marker" toml:"sprint_marker"`
}

// OutputConfig names the files written by the commands.
type OutputConfig struct {
	ReportFile   string `yaml:"report_file" toml:"report_file"`
	SlideFile    string `yaml:"slide_file" toml:"slide_file"`
	MarkdownFile string `yaml:"markdown_file" toml:"markdown_file"`
}

// SlidesConfig configures the generated deck.
type SlidesConfig struct {
	Author   string `yaml:"author" toml:"author"`
	Revision string `yaml:"revision" toml:"revision"`
	Subject  string `yaml:"subject" toml:"subject"`
	Title    string `yaml:"title" toml:"title"`

	FontDisplay string `yaml:"font_display" toml:"font_display"`
	Font        string `yaml:"font" toml:"font"`

	ColorPrimary           string `yaml:"color_primary" toml:"color_primary"`
	ColorSecondary         string `yaml:"color_secondary" toml:"color_secondary"`
	ColorTitleFont         string `yaml:"color_title_font" toml:"color_title_font"`
	ColorTitleBackground   string `yaml:"color_title_background" toml:"color_title_background"`
	ColorContentFont       string `yaml:"color_content_font" toml:"color_content_font"`
	ColorContentBackground string `yaml:"color_content_background" toml:"color_content_background"`
	ColorEndFont           string `yaml:"color_end_font" toml:"color_end_font"`
	ColorEndBackground     string `yaml:"color_end_background" toml:"color_end_background"`

	ImageTitleBackground   string `yaml:"image_title_background" toml:"image_title_background"`
	ImageSectionBackground string `yaml:"image_section_background" toml:"image_section_background"`
	ImageEndBackground     string `yaml:"image_end_background" toml:"image_end_background"`
	ImageLogo              string `yaml:"image_logo" toml:"image_logo"`
	ImageLogoIcon          string `yaml:"image_logo_icon" toml:"image_logo_icon"`

	TextOverview   string `yaml:"text_overview" toml:"text_overview"`
	TextEndThanks  string `yaml:"text_end_thanks" toml:"text_end_thanks"`
	TextEndCredits string `yaml:"text_end_credits" toml:"text_end_credits"`

	FilterStatus string `yaml:"filter_status" toml:"filter_status"` // "" keeps every status
	NullValue    string `yaml:"null_value" toml:"null_value"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // console, json
	File   string `yaml:"file" toml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Tracker: TrackerConfig{
			TableColumns: 6,
		},

		Browser: BrowserConfig{
			ChromeExePath:     "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			UserProfilePath:   filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default"),
			Headless:          false,
			ViewportWidth:     1024,
			ViewportHeight:    768,
			NavigationTimeout: "60s",
		},

		Timeouts: TimeoutsConfig{
			PeopleModule:  "30s",
			DevPanel:      "5s",
			PanelToggle:   "3s",
			PRLink:        "3s",
			PRList:        "5s",
			PRDescription: "10s",
		},

		Selectors: SelectorsConfig{
			ReportTable:     "table.aui",
			ReportRow:       "table.aui tr",
			ReportCell:      "td",
			BoardName:       "#ghx-board-name",
			SprintLabel:     "#ghx-items-trigger",
			PeopleModule:    "#peoplemodule",
			Developer:       "span[data-name='Developer']",
			Developers:      "span[data-name='Developers']",
			Epic:            "div.type-gh-epic-link a",
			DevPanel:        "#viewissue-devstatus-panel",
			DevPanelHeading: "#viewissue-devstatus-panel_heading",
			CollapsedClass:  "collapsed",
			PanelToggle:     "#viewissue-devstatus-panel .toggle-title",
			PRLink:          "#viewissue-devstatus-panel a[title*='pull request' i]",
			PRListLink:      ".devstatus-detail-dialog a.pullrequest-link",
			PRDescription:   ".pull-request-description",
			PRImage:         "img",
		},

		Scrape: ScrapeConfig{
			PullRequests:    true,
			MilestoneMarker: "M",
			SprintMarker:    "S",
		},

		Output: OutputConfig{
			ReportFile:   "report.json",
			SlideFile:    "sprint-report.html",
			MarkdownFile: "sprint-report.md",
		},

		Slides: SlidesConfig{
			Revision: "1.0",
			Subject:  "Sprint Review",
			Title:    "Team",

			FontDisplay: "Arial",
			Font:        "Arial",

			ColorPrimary:           "1C5EB0",
			ColorSecondary:         "009999",
			ColorTitleFont:         "FFFFFF",
			ColorTitleBackground:   "1C5EB0",
			ColorContentFont:       "1A1A1A",
			ColorContentBackground: "F7F7F7",
			ColorEndFont:           "FFFFFF",
			ColorEndBackground:     "1A1A1A",

			ImageTitleBackground:   "assets/background.jpg",
			ImageSectionBackground: "assets/background.jpg",
			ImageEndBackground:     "assets/background_end.jpg",
			ImageLogo:              "assets/logo-screen.png",
			ImageLogoIcon:          "assets/logo-icon.png",

			TextOverview:   "Features",
			TextEndThanks:  "Thank you",
			TextEndCredits: "Go Team! 👏",

			FilterStatus: "CLOSED",
			NullValue:    "unassigned",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML or TOML file (chosen by extension)
// and applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := unmarshal(path, data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
			// defaults
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isTOML(path) {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// Save saves configuration to a YAML or TOML file, replacing any existing
// file atomically.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Dump renders the resolved configuration as YAML.
func (c *Config) Dump() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<unprintable config: %v>", err)
	}
	return string(data)
}

func parseDuration(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetNavigationTimeout returns the page load timeout.
func (c *Config) GetNavigationTimeout() time.Duration {
	return parseDuration(c.Browser.NavigationTimeout, 60*time.Second)
}

// GetPeopleModuleTimeout returns the wait for the issue people module.
func (c *Config) GetPeopleModuleTimeout() time.Duration {
	return parseDuration(c.Timeouts.PeopleModule, 30*time.Second)
}

// GetDevPanelTimeout returns the wait for the development panel heading.
func (c *Config) GetDevPanelTimeout() time.Duration {
	return parseDuration(c.Timeouts.DevPanel, 5*time.Second)
}

// GetPanelToggleTimeout returns the wait for the panel expand toggle.
func (c *Config) GetPanelToggleTimeout() time.Duration {
	return parseDuration(c.Timeouts.PanelToggle, 3*time.Second)
}

// GetPRLinkTimeout returns the wait for the pull request summary link.
func (c *Config) GetPRLinkTimeout() time.Duration {
	return parseDuration(c.Timeouts.PRLink, 3*time.Second)
}

// GetPRListTimeout returns the wait for the pull request list to render.
func (c *Config) GetPRListTimeout() time.Duration {
	return parseDuration(c.Timeouts.PRList, 5*time.Second)
}

// GetPRDescriptionTimeout returns the wait for the pull request description.
func (c *Config) GetPRDescriptionTimeout() time.Duration {
	return parseDuration(c.Timeouts.PRDescription, 10*time.Second)
}

// GetTableColumns returns the expected cell count of a ticket row.
func (c *Config) GetTableColumns() int {
	if c.Tracker.TableColumns <= 0 {
		return 6
	}
	return c.Tracker.TableColumns
}
