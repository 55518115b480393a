package bot

import (
	"fmt"
	"html"
	"strings"

	"tandem/pkg/models"
)

func escape(s string) string {
	return html.EscapeString(s)
}

var tripLabels = map[models.TripType]string{
	models.TripPickup:  "Pickup",
	models.TripDropoff: "Drop-off",
	models.TripBoth:    "Pickup & drop-off",
}

func tripLabel(t models.TripType) string {
	if l, ok := tripLabels[t]; ok {
		return l
	}
	return string(t)
}

func distanceLabel(d string) string {
	switch d {
	case "":
		return "-"
	case models.DistanceMeet:
		return "Meet at a point"
	case "1":
		return "1 mile"
	default:
		return d + " miles"
	}
}

// shortTime trims seconds from a stored "08:15:00".
func shortTime(t string) string {
	if len(t) == len("08:15:00") && strings.Count(t, ":") == 2 {
		return t[:5]
	}
	return t
}

func formatRide(r *models.Ride) string {
	var b strings.Builder
	verified := ""
	if r.DriverVerified {
		verified = " ✅"
	}
	fmt.Fprintf(&b, "🚗 <b>%s</b>%s\n", escape(r.DriverName), verified)
	fmt.Fprintf(&b, "📍 %s · %s\n", escape(r.Postcode), tripLabel(r.TripType))
	fmt.Fprintf(&b, "📏 %s\n", distanceLabel(r.Distance.String()))
	fmt.Fprintf(&b, "📅 %s %s\n", escape(r.Date), escape(shortTime(r.Time)))
	fmt.Fprintf(&b, "💺 %d seat(s) · 🎒 %s", r.SeatsAvailable, escape(r.YearGroups))
	if r.School != "" {
		fmt.Fprintf(&b, "\n🏫 %s", escape(r.School))
	}
	return b.String()
}

func formatMessage(m models.Message) string {
	icon := "💬"
	switch m.Type {
	case models.MessageSent:
		icon = "📤"
	case models.MessageSystem:
		icon = "📢"
	}
	body := escape(m.Body)
	if m.Photo != "" {
		body = "📸 " + body
	}
	return fmt.Sprintf("%s <b>%s</b> <i>%s</i>\n%s", icon, escape(m.Sender), escape(m.Timestamp), body)
}

func formatFeed(msgs []models.Message, limit int) string {
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, formatMessage(m))
	}
	return strings.Join(parts, "\n\n")
}

var yearAliases = map[string]string{
	"r":         models.YearReception,
	"rec":       models.YearReception,
	"reception": models.YearReception,
}

func normalizeYearGroup(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if y, ok := yearAliases[s]; ok {
		return y
	}
	s = strings.TrimPrefix(s, "year")
	s = strings.TrimPrefix(strings.TrimSpace(s), "y")
	if s == "" {
		return ""
	}
	y := "Y" + s
	if models.IsYearGroup(y) {
		return y
	}
	return ""
}

// parseChildren reads "Leo Y2, Mia Reception" into children. The last word (or "Year N")
// of each entry is the year group; entries without a recognisable one keep an empty group.
func parseChildren(text string) []models.Child {
	entries := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' || r == ';' })
	children := make([]models.Child, 0, len(entries))
	for _, e := range entries {
		words := strings.Fields(e)
		if len(words) == 0 {
			continue
		}
		if len(words) >= 3 && strings.EqualFold(words[len(words)-2], "year") {
			words = append(words[:len(words)-2], "Y"+words[len(words)-1])
		}
		if len(words) == 1 {
			children = append(children, models.Child{Name: words[0]})
			continue
		}
		year := normalizeYearGroup(words[len(words)-1])
		name := strings.Join(words[:len(words)-1], " ")
		if year == "" {
			name = strings.Join(words, " ")
		}
		children = append(children, models.Child{Name: name, YearGroup: year})
	}
	return children
}

func formatChildren(children []models.Child) string {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, c.YearGroup))
	}
	return strings.Join(parts, ", ")
}
