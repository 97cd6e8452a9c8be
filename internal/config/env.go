package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		*dst = i
	}
}

func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
		*dst = b
	}
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	setString(&c.Output.ReportFile, "REPORT_FILE")
	setString(&c.Output.SlideFile, "SLIDE_FILE")
	setString(&c.Output.MarkdownFile, "MARKDOWN_FILE")

	// Scraper
	setString(&c.Tracker.IssueURL, "ISSUE_URL")
	setString(&c.Tracker.SprintReportURL, "SPRINT_REPORT_URL")
	setInt(&c.Tracker.TableColumns, "SPRINT_REPORT_TABLE_COLUMNS")

	// Browser
	setString(&c.Browser.UserProfilePath, "CHROME_USER_PROFILE_PATH")
	setString(&c.Browser.ChromeExePath, "CHROME_EXE_PATH")
	setString(&c.Browser.DebuggerURL, "CHROME_DEBUGGER_URL")
	setBool(&c.Browser.Headless, "HEADLESS")

	// Slides
	s := &c.Slides
	setString(&s.Author, "AUTHOR")
	setString(&s.Revision, "REVISION")
	setString(&s.Subject, "SUBJECT")
	setString(&s.Title, "TITLE")
	setString(&s.FontDisplay, "FONT_DISPLAY")
	setString(&s.Font, "FONT")
	setString(&s.ColorPrimary, "COLOR_PRIMARY")
	setString(&s.ColorSecondary, "COLOR_SECONDARY")
	setString(&s.ColorTitleFont, "COLOR_TITLE_FONT")
	setString(&s.ColorTitleBackground, "COLOR_TITLE_BACKGROUND")
	setString(&s.ColorContentFont, "COLOR_CONTENT_FONT")
	setString(&s.ColorContentBackground, "COLOR_CONTENT_BACKGROUND")
	setString(&s.ColorEndFont, "COLOR_END_FONT")
	setString(&s.ColorEndBackground, "COLOR_END_BACKGROUND")
	setString(&s.ImageTitleBackground, "IMAGE_TITLE_BACKGROUND")
	setString(&s.ImageSectionBackground, "IMAGE_SECTION_BACKGROUND")
	setString(&s.ImageEndBackground, "IMAGE_END_BACKGROUND")
	setString(&s.TextOverview, "TEXT_OVERVIEW")
	setString(&s.TextEndThanks, "TEXT_END_THANKS")
	setString(&s.TextEndCredits, "TEXT_END_CREDITS")

	setString(&c.Logging.Level, "LOG_LEVEL")
}

// values flattens the settings that Check knows about, keyed by their
// lower-case env var names.
func (c *Config) values() map[string]string {
	s := c.Slides
	return map[string]string{
		"report_file":              c.Output.ReportFile,
		"slide_file":               c.Output.SlideFile,
		"issue_url":                c.Tracker.IssueURL,
		"sprint_report_url":        c.Tracker.SprintReportURL,
		"chrome_user_profile_path": c.Browser.UserProfilePath,
		"chrome_exe_path":          c.Browser.ChromeExePath,
		"author":                   s.Author,
		"revision":                 s.Revision,
		"subject":                  s.Subject,
		"title":                    s.Title,
		"font_display":             s.FontDisplay,
		"font":                     s.Font,
		"color_primary":            s.ColorPrimary,
		"color_secondary":          s.ColorSecondary,
		"color_title_font":         s.ColorTitleFont,
		"color_title_background":   s.ColorTitleBackground,
		"color_content_font":       s.ColorContentFont,
		"color_content_background": s.ColorContentBackground,
		"color_end_font":           s.ColorEndFont,
		"color_end_background":     s.ColorEndBackground,
		"image_title_background":   s.ImageTitleBackground,
		"image_section_background": s.ImageSectionBackground,
		"image_end_background":     s.ImageEndBackground,
		"text_overview":            s.TextOverview,
		"text_end_thanks":          s.TextEndThanks,
		"text_end_credits":         s.TextEndCredits,

		"sprint_report_table_columns": strconv.Itoa(c.Tracker.TableColumns),
	}
}

// ScrapeKeys are the settings a scrape run cannot do without.
var ScrapeKeys = []string{"issue_url", "sprint_report_url"}

// Check returns the env var names (upper case) of the given keys that are
// empty or unknown. With no keys every known setting is checked.
func (c *Config) Check(keys ...string) []string {
	vals := c.values()
	if len(keys) == 0 {
		for k := range vals {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	var missing []string
	for _, k := range keys {
		if v, ok := vals[strings.ToLower(k)]; !ok || v == "" || v == "0" {
			missing = append(missing, strings.ToUpper(k))
		}
	}
	return missing
}
