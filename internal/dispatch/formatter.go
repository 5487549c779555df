package dispatch

import (
	"fmt"

	"github.com/burjnawas/sitecoord/internal/models"
)

// Formatter renders notification text for a configured locale. Formatting
// happens at dispatch time; producers hand over structured values only.
type Formatter interface {
	FormatAlert(alert models.Alert) string
	FormatActivityReminder() string
	FormatReportCaption(reportID, date string) string
}

// EnglishFormatter is the default notification locale.
type EnglishFormatter struct{}

func (EnglishFormatter) FormatAlert(alert models.Alert) string {
	switch alert.Kind {
	case models.AlertHighWind:
		return fmt.Sprintf("High Wind Alert\nWind speed is %.1f km/h. Please exercise caution and stop crane operations.", alert.Value)
	case models.AlertHighRain:
		return fmt.Sprintf("Rain Forecast\nThere is a %.0f%% chance of rain in the coming hours.", alert.Value)
	default:
		return fmt.Sprintf("Weather alert (%s): %.1f exceeds threshold %.1f", alert.Kind, alert.Value, alert.Threshold)
	}
}

func (EnglishFormatter) FormatActivityReminder() string {
	return "Good morning. No site updates have been recorded yet today. " +
		"Please send work details, activities and photos so the daily report can be prepared."
}

func (EnglishFormatter) FormatReportCaption(reportID, date string) string {
	return fmt.Sprintf("Daily site report %s (%s)", reportID, date)
}

// ArabicFormatter renders the bilingual Arabic-first notification bodies
// used on site.
type ArabicFormatter struct{}

func (ArabicFormatter) FormatAlert(alert models.Alert) string {
	switch alert.Kind {
	case models.AlertHighWind:
		return fmt.Sprintf("⚠️ تنبيه رياح قوية / High Wind Alert\n"+
			"سرعة الرياح %.1f كم/س. يرجى توخي الحذر وإيقاف الرافعات.\n"+
			"Wind speed is %.1f km/h. Please exercise caution and stop cranes.",
			alert.Value, alert.Value)
	case models.AlertHighRain:
		return fmt.Sprintf("🌧️ احتمالية أمطار / Rain Forecast\n"+
			"توجد فرصة هطول أمطار بنسبة %.0f%% خلال الساعات القادمة.\n"+
			"There is a %.0f%% chance of rain in the coming hours.",
			alert.Value, alert.Value)
	default:
		return fmt.Sprintf("⚠️ تنبيه طقس (%s): %.1f تجاوز الحد %.1f", alert.Kind, alert.Value, alert.Threshold)
	}
}

func (ArabicFormatter) FormatActivityReminder() string {
	return "صباح الخير، معكم المهندس الذكي للموقع. 👷‍♂️🤖\n" +
		"يرجى البدء بإرسال تفاصيل العمل والأنشطة والصور ليتسنى لي إعداد التقرير اليومي للموقع. 📝📸"
}

func (ArabicFormatter) FormatReportCaption(reportID, date string) string {
	return fmt.Sprintf("📋 التقرير اليومي للموقع %s (%s)", reportID, date)
}

// NewFormatter returns the formatter for a locale tag, defaulting to
// English for unknown tags.
func NewFormatter(locale string) Formatter {
	switch locale {
	case "ar":
		return ArabicFormatter{}
	default:
		return EnglishFormatter{}
	}
}
